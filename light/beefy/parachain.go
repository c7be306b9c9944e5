package beefy

import (
	"fmt"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/crypto/merkle"
	"github.com/tendermint/ibclight/crypto/mmr"
)

// VerifyParachainHeaders verifies that every parachain header of the batch is
// included in the parachain heads of an MMR leaf and that all those leaves
// are included under the client's MMR root. The batch is accepted or rejected
// as a whole. Headers are returned keyed by their BLAKE2b-256 hash.
func VerifyParachainHeaders(state ClientState, proof *ParachainsUpdateProof, opts ...Option) (map[crypto.Hash]*ParachainHeader, error) {
	if state.IsFrozen() {
		return nil, ErrClientFrozen
	}
	if proof == nil || len(proof.Headers) == 0 {
		return nil, fmt.Errorf("%w: no parachain headers", ErrInvalidMmrUpdate)
	}

	var (
		logger  = newOptions(opts).logger
		leaves  = make([]mmr.Leaf, 0, len(proof.Headers))
		seen    = make(map[uint64]struct{}, len(proof.Headers))
		headers = make(map[crypto.Hash]*ParachainHeader, len(proof.Headers))
	)
	for i := range proof.Headers {
		h := &proof.Headers[i]
		if _, ok := seen[h.LeafIndex]; ok {
			return nil, fmt.Errorf("%w: duplicate leaf index %d", ErrInvalidMmrProof, h.LeafIndex)
		}
		seen[h.LeafIndex] = struct{}{}

		leafHash, err := parachainLeafHash(h)
		if err != nil {
			return nil, fmt.Errorf("parachain %d header #%d: %w", h.ParaID, i, err)
		}
		leaves = append(leaves, mmr.Leaf{Index: h.LeafIndex, Hash: leafHash})
		headers[crypto.Blake2b256(h.Header)] = h
	}

	if err := proof.MmrProof.Verify(state.MmrRootHash, leaves); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMmrProof, err)
	}

	logger.Debug("verified parachain headers", "count", len(headers), "mmr_root", state.MmrRootHash)
	return headers, nil
}

// parachainLeafHash rebuilds the MMR leaf of the header from its partial leaf
// and the heads root implied by its heads proof.
func parachainLeafHash(h *ParachainHeader) (crypto.Hash, error) {
	if h.HeadsProof == nil {
		return crypto.Hash{}, fmt.Errorf("%w: missing heads proof", ErrInvalidMmrProof)
	}
	head, err := EncodeParaHead(h.ParaID, h.Header)
	if err != nil {
		return crypto.Hash{}, err
	}

	headsProof := merkle.Proof{
		Total:    h.HeadsProof.Total,
		Index:    h.HeadsProof.Index,
		LeafHash: merkle.Keccak.LeafHash(head),
		Aunts:    h.HeadsProof.Aunts,
	}
	if len(headsProof.Aunts) > merkle.MaxAunts {
		return crypto.Hash{}, fmt.Errorf("%w: %d aunts in heads proof", ErrInvalidMmrProof, len(headsProof.Aunts))
	}
	root := headsProof.ComputeRootHash(merkle.Keccak)
	if root == nil {
		return crypto.Hash{}, fmt.Errorf("%w: heads proof does not fit index %d of %d",
			ErrInvalidMmrProof, headsProof.Index, headsProof.Total)
	}
	headsRoot, err := crypto.HashFromBytes(root)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("%w: %v", ErrInvalidMmrProof, err)
	}

	return LeafHash(MmrLeaf{
		Version:               h.PartialLeaf.Version,
		ParentNumberAndHash:   h.PartialLeaf.ParentNumberAndHash,
		BeefyNextAuthoritySet: h.PartialLeaf.BeefyNextAuthoritySet,
		LeafExtra:             headsRoot,
	})
}

// Package beefy verifies BEEFY finality proofs of a Substrate relay chain:
// signed commitments to an MMR root, authority set rotation and batches of
// parachain headers proven against that root.
package beefy

import (
	"fmt"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/crypto/merkle"
	"github.com/tendermint/ibclight/crypto/mmr"
	"github.com/tendermint/ibclight/types"
)

// MmrRootID is the payload id of the MMR root in a BEEFY commitment.
var MmrRootID = [2]byte{'m', 'h'}

// AuthoritySet is a BEEFY validator set: its id, its size and the keccak
// merkle root of the keccak hashes of its compressed public keys.
type AuthoritySet struct {
	ID   uint64      `json:"id"`
	Len  uint32      `json:"len"`
	Root crypto.Hash `json:"root"`
}

func (s AuthoritySet) String() string {
	return fmt.Sprintf("AuthoritySet{id: %d, len: %d, root: %v}", s.ID, s.Len, s.Root)
}

// ClientState tracks the finalized MMR root of a relay chain and the two
// authority sets that may sign the next commitment.
type ClientState struct {
	LatestBeefyHeight uint32 `json:"latest_beefy_height"`
	// BeefyActivationBlock is the block before the first MMR leaf.
	BeefyActivationBlock uint32       `json:"beefy_activation_block"`
	MmrRootHash          crypto.Hash  `json:"mmr_root_hash"`
	CurrentAuthorities   AuthoritySet `json:"current_authorities"`
	NextAuthorities      AuthoritySet `json:"next_authorities"`
	// FrozenHeight is zero unless the client was frozen.
	FrozenHeight uint32 `json:"frozen_height,omitempty"`
}

// ClientType implements the client state variants.
func (ClientState) ClientType() types.ClientType {
	return types.Beefy
}

// GetLatestHeight returns the latest finalized relay chain block.
func (cs ClientState) GetLatestHeight() types.Height {
	return types.NewHeight(0, uint64(cs.LatestBeefyHeight))
}

// IsFrozen reports whether the client was frozen.
func (cs ClientState) IsFrozen() bool {
	return cs.FrozenHeight != 0
}

// Freeze returns a copy of the client state frozen at its latest height.
func (cs ClientState) Freeze() ClientState {
	cs.FrozenHeight = cs.LatestBeefyHeight
	if cs.FrozenHeight == 0 {
		cs.FrozenHeight = 1
	}
	return cs
}

// ValidateBasic checks the authority set ordering.
func (cs ClientState) ValidateBasic() error {
	if cs.CurrentAuthorities.ID > cs.NextAuthorities.ID {
		return fmt.Errorf("%w: current authority set id %d is above next %d",
			ErrInvalidAuthoritySetID, cs.CurrentAuthorities.ID, cs.NextAuthorities.ID)
	}
	if cs.CurrentAuthorities.Len == 0 || cs.NextAuthorities.Len == 0 {
		return fmt.Errorf("%w: empty authority set", ErrInvalidAuthoritySetID)
	}
	return nil
}

// LeafIndex returns the MMR leaf index of the block.
func (cs ClientState) LeafIndex(blockNumber uint32) (uint64, error) {
	if blockNumber <= cs.BeefyActivationBlock {
		return 0, fmt.Errorf("%w: block %d is not above the activation block %d",
			ErrInvalidMmrUpdate, blockNumber, cs.BeefyActivationBlock)
	}
	return uint64(blockNumber - cs.BeefyActivationBlock - 1), nil
}

// PayloadItem is one entry of a commitment payload.
type PayloadItem struct {
	ID   [2]byte `json:"id"`
	Data []byte  `json:"data"`
}

// Commitment is what BEEFY authorities sign.
type Commitment struct {
	Payload        []PayloadItem `json:"payload"`
	BlockNumber    uint32        `json:"block_number"`
	ValidatorSetID uint64        `json:"validator_set_id"`
}

// MmrRoot returns the 32-byte MMR root carried by the payload.
func (c Commitment) MmrRoot() (crypto.Hash, error) {
	for _, item := range c.Payload {
		if item.ID != MmrRootID {
			continue
		}
		root, err := crypto.HashFromBytes(item.Data)
		if err != nil {
			return crypto.Hash{}, fmt.Errorf("%w: mmr root payload: %v", ErrInvalidMmrUpdate, err)
		}
		return root, nil
	}
	return crypto.Hash{}, fmt.Errorf("%w: commitment has no mmr root payload", ErrInvalidMmrUpdate)
}

// CommitmentSignature is the recoverable secp256k1 signature of the
// authority at AuthorityIndex.
type CommitmentSignature struct {
	AuthorityIndex uint32 `json:"authority_index"`
	Signature      []byte `json:"signature"`
}

// SignedCommitment is a commitment with a sparse list of signatures.
type SignedCommitment struct {
	Commitment Commitment            `json:"commitment"`
	Signatures []CommitmentSignature `json:"signatures"`
}

// ParentNumberAndHash identifies the parent of the block a leaf was added in.
type ParentNumberAndHash struct {
	ParentNumber uint32      `json:"parent_number"`
	ParentHash   crypto.Hash `json:"parent_hash"`
}

// MmrLeaf is the leaf appended to the relay chain MMR at every block.
type MmrLeaf struct {
	Version               uint8               `json:"version"`
	ParentNumberAndHash   ParentNumberAndHash `json:"parent_number_and_hash"`
	BeefyNextAuthoritySet AuthoritySet        `json:"beefy_next_authority_set"`
	// LeafExtra is the merkle root of the parachain heads.
	LeafExtra crypto.Hash `json:"leaf_extra"`
}

// MmrUpdateProof proves a new MMR root and the latest leaf under it.
// AuthorityProofs holds a membership proof per signature, in the same order.
type MmrUpdateProof struct {
	SignedCommitment SignedCommitment `json:"signed_commitment"`
	LatestMmrLeaf    MmrLeaf          `json:"latest_mmr_leaf"`
	LeafIndex        uint64           `json:"leaf_index"`
	MmrProof         mmr.Proof        `json:"mmr_proof"`
	AuthorityProofs  []*merkle.Proof  `json:"authority_proofs"`
}

// ClientType implements the client message variants.
func (*MmrUpdateProof) ClientType() types.ClientType {
	return types.Beefy
}

// PartialMmrLeaf is an MMR leaf without its LeafExtra, which is recomputed
// from the parachain heads proof.
type PartialMmrLeaf struct {
	Version               uint8               `json:"version"`
	ParentNumberAndHash   ParentNumberAndHash `json:"parent_number_and_hash"`
	BeefyNextAuthoritySet AuthoritySet        `json:"beefy_next_authority_set"`
}

// ParachainHeader is a SCALE encoded parachain header with the proofs that
// place it in the relay chain MMR.
type ParachainHeader struct {
	ParaID      uint32         `json:"para_id"`
	Header      []byte         `json:"header"`
	PartialLeaf PartialMmrLeaf `json:"partial_leaf"`
	// HeadsProof proves the para head in the heads root of the leaf. Its
	// LeafHash is recomputed from ParaID and Header.
	HeadsProof *merkle.Proof `json:"heads_proof"`
	LeafIndex  uint64        `json:"leaf_index"`
}

// ParachainsUpdateProof is a batch of parachain headers proven by a single
// MMR batch proof.
type ParachainsUpdateProof struct {
	Headers  []ParachainHeader `json:"parachain_headers"`
	MmrProof mmr.Proof         `json:"mmr_proof"`
}

// ClientType implements the client message variants.
func (*ParachainsUpdateProof) ClientType() types.ClientType {
	return types.Beefy
}

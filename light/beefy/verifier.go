package beefy

import (
	"fmt"

	"github.com/tendermint/ibclight/crypto/merkle"
	"github.com/tendermint/ibclight/crypto/mmr"
	"github.com/tendermint/ibclight/crypto/sigverify"
	"github.com/tendermint/ibclight/libs/log"
	"github.com/tendermint/ibclight/light/votepower"
)

// IsOutdated reports whether a commitment is older than the client state and
// can be skipped without verification.
func IsOutdated(state ClientState, c Commitment) bool {
	return c.ValidatorSetID < state.CurrentAuthorities.ID || c.BlockNumber <= state.LatestBeefyHeight
}

// VerifyMmrRootWithProof verifies that more than 2/3 of the authority set
// that signed the commitment did so, that the latest leaf is included under
// the signed MMR root and returns the client state advanced to the
// commitment. state is never modified.
//
// Authority sets rotate by exactly one epoch when the commitment is signed by
// the next set or the latest leaf announces the set after it.
func VerifyMmrRootWithProof(state ClientState, update *MmrUpdateProof, opts ...Option) (ClientState, error) {
	if state.IsFrozen() {
		return ClientState{}, ErrClientFrozen
	}
	if update == nil {
		return ClientState{}, fmt.Errorf("%w: nil update", ErrInvalidMmrUpdate)
	}

	var (
		logger     = newOptions(opts).logger
		commitment = update.SignedCommitment.Commitment
	)

	authorities, err := signingAuthorities(state, commitment)
	if err != nil {
		return ClientState{}, err
	}

	if err := verifySignatures(authorities, update, logger.With("block", commitment.BlockNumber)); err != nil {
		return ClientState{}, err
	}

	mmrRoot, err := commitment.MmrRoot()
	if err != nil {
		return ClientState{}, err
	}

	// the latest leaf must be the one added in the commitment block
	leafIndex, err := state.LeafIndex(commitment.BlockNumber)
	if err != nil {
		return ClientState{}, err
	}
	if update.LeafIndex != leafIndex {
		return ClientState{}, fmt.Errorf("%w: latest leaf index %d, expected %d for block %d",
			ErrInvalidMmrUpdate, update.LeafIndex, leafIndex, commitment.BlockNumber)
	}

	leafHash, err := LeafHash(update.LatestMmrLeaf)
	if err != nil {
		return ClientState{}, err
	}
	if err := update.MmrProof.Verify(mmrRoot, []mmr.Leaf{{Index: update.LeafIndex, Hash: leafHash}}); err != nil {
		return ClientState{}, fmt.Errorf("%w: %v", ErrInvalidMmrProof, err)
	}

	newState := state
	newState.LatestBeefyHeight = commitment.BlockNumber
	newState.MmrRootHash = mmrRoot

	next := update.LatestMmrLeaf.BeefyNextAuthoritySet
	switch {
	case next.ID == state.NextAuthorities.ID+1:
		newState.CurrentAuthorities = state.NextAuthorities
		newState.NextAuthorities = next
	case commitment.ValidatorSetID != state.CurrentAuthorities.ID:
		return ClientState{}, fmt.Errorf("%w: commitment signed by the next authority set %d but the leaf announces set %d",
			ErrInvalidMmrUpdate, commitment.ValidatorSetID, next.ID)
	case next != state.NextAuthorities:
		return ClientState{}, fmt.Errorf("%w: leaf announces %v, expected %v or the set after it",
			ErrInvalidMmrUpdate, next, state.NextAuthorities)
	}

	return newState, nil
}

// signingAuthorities returns the authority set that must have signed c.
func signingAuthorities(state ClientState, c Commitment) (AuthoritySet, error) {
	var (
		current = state.CurrentAuthorities
		next    = state.NextAuthorities
	)
	switch {
	case c.ValidatorSetID < current.ID:
		return AuthoritySet{}, fmt.Errorf("%w: validator set id %d, current authority set id %d",
			ErrOutdatedCommitment, c.ValidatorSetID, current.ID)
	case c.ValidatorSetID == current.ID:
		// checked below
	case c.ValidatorSetID == current.ID+1 && c.ValidatorSetID == next.ID:
		current = next
	default:
		return AuthoritySet{}, fmt.Errorf("%w: validator set id %d, current %d, next %d",
			ErrInvalidAuthoritySetID, c.ValidatorSetID, current.ID, next.ID)
	}

	if c.BlockNumber <= state.LatestBeefyHeight {
		return AuthoritySet{}, fmt.Errorf("%w: block %d, latest beefy height %d",
			ErrOutdatedCommitment, c.BlockNumber, state.LatestBeefyHeight)
	}
	return current, nil
}

// verifySignatures checks that more than 2/3 of the authorities signed the
// commitment. Signatures that do not recover to a member of the set are
// excluded.
func verifySignatures(authorities AuthoritySet, update *MmrUpdateProof, logger log.Logger) error {
	signatures := update.SignedCommitment.Signatures

	// reject before any cryptography
	if !votepower.QuorumReached(uint64(authorities.Len), uint64(len(signatures))) {
		return SignatureThresholdError{Valid: uint64(len(signatures)), Len: authorities.Len}
	}
	if len(update.AuthorityProofs) != len(signatures) {
		return fmt.Errorf("%w: %d authority proofs for %d signatures",
			ErrInvalidMmrUpdate, len(update.AuthorityProofs), len(signatures))
	}

	digest, err := CommitmentHash(update.SignedCommitment.Commitment)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMmrUpdate, err)
	}

	tally := votepower.NewTally(uint(authorities.Len))
	for i, sig := range signatures {
		if sig.AuthorityIndex >= authorities.Len {
			return fmt.Errorf("%w: authority index %d out of range %d",
				ErrInvalidMmrUpdate, sig.AuthorityIndex, authorities.Len)
		}
		idx := uint(sig.AuthorityIndex)
		if tally.Seen(idx) {
			return votepower.DuplicateVoteError{Index: idx}
		}

		var power uint64
		if err := verifyAuthority(authorities, sig, update.AuthorityProofs[i], digest[:]); err != nil {
			logger.Debug("excluding beefy signature", "authority", sig.AuthorityIndex, "err", err)
		} else {
			power = 1
		}
		if err := tally.Add(votepower.Signer{Index: idx, Power: power}); err != nil {
			return err
		}
	}

	if !votepower.QuorumReached(uint64(authorities.Len), tally.Power()) {
		return SignatureThresholdError{Valid: tally.Power(), Len: authorities.Len}
	}
	return nil
}

// verifyAuthority recovers the signer of digest and checks it is the
// authority at sig.AuthorityIndex.
func verifyAuthority(authorities AuthoritySet, sig CommitmentSignature, proof *merkle.Proof, digest []byte) error {
	pub, err := sigverify.RecoverCompressed(sig.Signature, digest)
	if err != nil {
		return err
	}
	if proof == nil {
		return fmt.Errorf("%w: missing authority proof", merkle.ErrInvalidProof)
	}
	if proof.Total != int64(authorities.Len) || proof.Index != int64(sig.AuthorityIndex) {
		return fmt.Errorf("%w: proof for leaf %d of %d, expected %d of %d", merkle.ErrInvalidProof,
			proof.Index, proof.Total, sig.AuthorityIndex, authorities.Len)
	}
	return proof.Verify(merkle.Keccak, authorities.Root[:], pub)
}

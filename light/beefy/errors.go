package beefy

import (
	"errors"
	"fmt"

	"github.com/tendermint/ibclight/light/votepower"
)

var (
	// ErrIncompleteSignatureThreshold is returned when fewer than 2/3+ of the
	// authorities produced valid signatures.
	ErrIncompleteSignatureThreshold = errors.New("incomplete signature threshold")
	// ErrInvalidMmrUpdate is returned for malformed updates.
	ErrInvalidMmrUpdate = errors.New("invalid mmr update")
	// ErrInvalidAuthoritySetID is returned when the commitment was signed by
	// neither the current nor the next authority set.
	ErrInvalidAuthoritySetID = errors.New("invalid authority set id")
	// ErrOutdatedCommitment is returned for commitments older than the
	// client state.
	ErrOutdatedCommitment = errors.New("outdated commitment")
	// ErrInvalidMmrProof is returned when a leaf is not included under the
	// MMR root.
	ErrInvalidMmrProof = errors.New("invalid mmr proof")
	// ErrDuplicateVote is returned when an authority index signed twice.
	ErrDuplicateVote = votepower.ErrDuplicateVote
	// ErrDecode is returned for malformed SCALE input.
	ErrDecode = errors.New("failed to decode beefy message")
	// ErrClientFrozen is returned for any update of a frozen client.
	ErrClientFrozen = errors.New("client is frozen")
)

// SignatureThresholdError reports how many valid signatures were found out of
// the authority set size.
type SignatureThresholdError struct {
	Valid uint64
	Len   uint32
}

func (e SignatureThresholdError) Error() string {
	return fmt.Sprintf("%v: %d valid signatures of %d authorities", ErrIncompleteSignatureThreshold, e.Valid, e.Len)
}

func (e SignatureThresholdError) Is(target error) bool {
	return target == ErrIncompleteSignatureThreshold
}

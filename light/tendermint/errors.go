package tendermint

import (
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/ibclight/light/votepower"
)

var (
	// ErrMissingHeaderField is returned when a header, commit or validator
	// set is absent.
	ErrMissingHeaderField = errors.New("missing header field")
	// ErrDecode is returned for malformed protobuf input.
	ErrDecode = errors.New("failed to decode client message")
	// ErrDuplicateVote is returned when a validator signed the same commit
	// twice.
	ErrDuplicateVote = votepower.ErrDuplicateVote
	// ErrInsufficientVotingPower is matched by InsufficientVotingPowerError.
	ErrInsufficientVotingPower = errors.New("insufficient voting power")
	// ErrTimeMonotonicityViolation means a header breaks the time ordering of
	// the consensus states known for the client.
	ErrTimeMonotonicityViolation = errors.New("time monotonicity violation")
	// ErrBlockIDMismatch means two headers at the same height commit to
	// different blocks.
	ErrBlockIDMismatch = errors.New("block id mismatch")
	// ErrInvalidTrustedHeight is returned when the trusted height is above
	// the header height or no consensus state is known for it.
	ErrInvalidTrustedHeight = errors.New("invalid trusted height")
	// ErrClientFrozen is returned for any update of a frozen client.
	ErrClientFrozen = errors.New("client is frozen")
	// ErrInvalidClientState is returned by ClientState.ValidateBasic.
	ErrInvalidClientState = errors.New("invalid client state")
)

// InsufficientVotingPowerError means the signers of a commit do not hold
// enough voting power.
type InsufficientVotingPowerError struct {
	Got    uint64
	Needed uint64
}

func (e InsufficientVotingPowerError) Error() string {
	return fmt.Sprintf("invalid commit -- insufficient voting power: got %d, needed more than %d", e.Got, e.Needed)
}

func (e InsufficientVotingPowerError) Is(target error) bool {
	return target == ErrInsufficientVotingPower
}

// ErrOldHeaderExpired means the trusted consensus state has expired according
// to the trusting period and current time. If so, the light client must be
// reset subjectively.
type ErrOldHeaderExpired struct {
	At  time.Time
	Now time.Time
}

func (e ErrOldHeaderExpired) Error() string {
	return fmt.Sprintf("old header has expired at %v (now: %v)", e.At, e.Now)
}

// ErrNewValSetCantBeTrusted means the new validator set cannot be trusted
// because < 1/3rd (+trustLevel+) of the old validator set has signed.
type ErrNewValSetCantBeTrusted struct {
	Reason InsufficientVotingPowerError
}

func (e ErrNewValSetCantBeTrusted) Error() string {
	return fmt.Sprintf("cant trust new val set: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrNewValSetCantBeTrusted) Unwrap() error {
	return e.Reason
}

// ErrInvalidHeader means the header either failed the basic validation or
// commit is not signed by 2/3+.
type ErrInvalidHeader struct {
	Reason error
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrInvalidHeader) Unwrap() error {
	return e.Reason
}

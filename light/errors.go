package light

import (
	"errors"
	"fmt"

	"github.com/tendermint/ibclight/light/beefy"
	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

var (
	// ErrUnexpectedMessage is returned when a client message does not belong
	// to the client it is submitted to.
	ErrUnexpectedMessage = errors.New("unexpected client message")
	// ErrMisbehaviourNotProven is returned when a submitted misbehaviour
	// verifies but its headers do not conflict.
	ErrMisbehaviourNotProven = errors.New("misbehaviour not proven")
)

// ErrMisbehaviour means the client was frozen because a header conflicts with
// the consensus states it already trusts.
type ErrMisbehaviour struct {
	ClientID string
	Height   types.Height
	Reason   error
}

func (e ErrMisbehaviour) Error() string {
	return fmt.Sprintf("client %s frozen by misbehaviour at %v: %v", e.ClientID, e.Height, e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrMisbehaviour) Unwrap() error {
	return e.Reason
}

// ErrorKind groups verification errors by how a caller should react to them.
type ErrorKind int

const (
	// KindNone is the kind of a nil error.
	KindNone ErrorKind = iota
	// KindDecode is malformed input. The call is never retried with the same
	// bytes.
	KindDecode
	// KindThreshold is a well formed proof without enough signatures. A new
	// proof is needed from the source chain.
	KindThreshold
	// KindStaleness is an outdated commitment or trusted state. Callers may
	// skip it and wait for a newer one.
	KindStaleness
	// KindStructural is a sign of misbehaviour or a fork and may warrant
	// freezing the client.
	KindStructural
	// KindInvalid is any other rejection.
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDecode:
		return "decode"
	case KindThreshold:
		return "threshold"
	case KindStaleness:
		return "staleness"
	case KindStructural:
		return "structural"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Classify returns the kind of a verification error.
func Classify(err error) ErrorKind {
	var (
		expired      tendermint.ErrOldHeaderExpired
		misbehaviour ErrMisbehaviour
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, tendermint.ErrDecode), errors.Is(err, beefy.ErrDecode):
		return KindDecode
	case errors.As(err, &misbehaviour),
		errors.Is(err, tendermint.ErrBlockIDMismatch),
		errors.Is(err, tendermint.ErrTimeMonotonicityViolation),
		errors.Is(err, beefy.ErrInvalidAuthoritySetID):
		return KindStructural
	case errors.Is(err, tendermint.ErrInsufficientVotingPower),
		errors.Is(err, beefy.ErrIncompleteSignatureThreshold):
		return KindThreshold
	case errors.Is(err, beefy.ErrOutdatedCommitment), errors.As(err, &expired):
		return KindStaleness
	default:
		return KindInvalid
	}
}

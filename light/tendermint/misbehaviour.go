package tendermint

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tendermint/ibclight/types"
)

// ConsensusStateReader gives access to the consensus states stored for a
// client. The boolean result is false when no state exists.
type ConsensusStateReader interface {
	ConsensusState(height types.Height) (ConsensusState, bool, error)
	// PrevConsensusState returns the consensus state at the greatest height
	// strictly below height.
	PrevConsensusState(height types.Height) (ConsensusState, bool, error)
	// NextConsensusState returns the consensus state at the lowest height
	// strictly above height.
	NextConsensusState(height types.Height) (ConsensusState, bool, error)
}

// HeadersCompatible reports whether two headers may both belong to the same
// canonical chain: headers at equal heights must commit to the same block and
// a higher header must have a strictly later time.
func HeadersCompatible(h1, h2 *Header) bool {
	return headersConflict(h1, h2) == nil
}

func headersConflict(h1, h2 *Header) error {
	sh1, sh2 := h1.SignedHeader, h2.SignedHeader
	switch c := h1.Height().Compare(h2.Height()); {
	case c == 0:
		if !sh1.Commit.BlockID.Equals(sh2.Commit.BlockID) {
			return fmt.Errorf("%w: %v and %v at height %v",
				ErrBlockIDMismatch, sh1.Commit.BlockID, sh2.Commit.BlockID, h1.Height())
		}
	case c > 0:
		if !sh1.Time.After(sh2.Time) {
			return fmt.Errorf("%w: header at %v has time %v not after %v of header at %v",
				ErrTimeMonotonicityViolation, h1.Height(), sh1.Time, sh2.Time, h2.Height())
		}
	default:
		if !sh1.Time.Before(sh2.Time) {
			return fmt.Errorf("%w: header at %v has time %v not before %v of header at %v",
				ErrTimeMonotonicityViolation, h1.Height(), sh1.Time, sh2.Time, h2.Height())
		}
	}
	return nil
}

// CheckForMisbehaviour inspects a client message for misbehaviour. A
// Misbehaviour is checked for conflicting headers; a Header is checked
// against the consensus states already stored for the client.
//
// When misbehaviour is found it returns true and an error wrapping
// ErrBlockIDMismatch or ErrTimeMonotonicityViolation that describes it.
// Otherwise it returns false and an error only if the check itself failed.
func CheckForMisbehaviour(reader ConsensusStateReader, msg ClientMessage) (bool, error) {
	switch msg := msg.(type) {
	case *Misbehaviour:
		if err := msg.ValidateBasic(); err != nil {
			return false, err
		}
		if err := headersConflict(msg.Header1, msg.Header2); err != nil {
			return true, err
		}
		return false, nil

	case *Header:
		if err := msg.ValidateBasic(); err != nil {
			return false, err
		}
		return checkHeaderAgainstStore(reader, msg)

	default:
		return false, fmt.Errorf("unexpected client message %T", msg)
	}
}

func checkHeaderAgainstStore(reader ConsensusStateReader, h *Header) (bool, error) {
	var (
		height = h.Height()
		cons   = h.ConsensusState()
	)

	existing, ok, err := reader.ConsensusState(height)
	if err != nil {
		return false, err
	}
	if ok {
		if !existing.Equal(cons) {
			return true, fmt.Errorf("%w: conflicting consensus state at height %v", ErrBlockIDMismatch, height)
		}
		// the same header was already accepted
		return false, nil
	}

	prev, ok, err := reader.PrevConsensusState(height)
	if err != nil {
		return false, err
	}
	if ok && !prev.Timestamp.Before(cons.Timestamp) {
		return true, fmt.Errorf("%w: previous consensus state time %v is not before header time %v",
			ErrTimeMonotonicityViolation, prev.Timestamp, cons.Timestamp)
	}

	next, ok, err := reader.NextConsensusState(height)
	if err != nil {
		return false, err
	}
	if ok && !next.Timestamp.After(cons.Timestamp) {
		return true, fmt.Errorf("%w: next consensus state time %v is not after header time %v",
			ErrTimeMonotonicityViolation, next.Timestamp, cons.Timestamp)
	}

	return false, nil
}

// VerifyMisbehaviour verifies both headers of m against their trusted
// consensus states. It returns true if both verify and they conflict.
//
// Unlike VerifyHeader, headers are not checked against each other in time or
// against the local clock: a conflicting header is valid evidence as long as
// enough trusted validators signed it.
func VerifyMisbehaviour(cs ClientState, trusted1, trusted2 ConsensusState, m *Misbehaviour,
	now time.Time, opts ...Option) (bool, error) {
	if cs.IsFrozen() {
		return false, ErrClientFrozen
	}
	if err := m.ValidateBasic(); err != nil {
		return false, err
	}

	if err := verifyMisbehaviourHeader(cs, trusted1, m.Header1, now, opts); err != nil {
		return false, fmt.Errorf("verifying header 1: %w", err)
	}
	if err := verifyMisbehaviourHeader(cs, trusted2, m.Header2, now, opts); err != nil {
		return false, fmt.Errorf("verifying header 2: %w", err)
	}

	if err := headersConflict(m.Header1, m.Header2); err != nil {
		newOptions(opts).logger.Info("misbehaviour verified", "evidence", m.String(), "reason", err)
		return true, nil
	}
	return false, nil
}

func verifyMisbehaviourHeader(cs ClientState, trusted ConsensusState, h *Header, now time.Time, opts []Option) error {
	if err := checkTrustedHeader(cs, trusted, h, now); err != nil {
		return err
	}

	signedHeader := h.SignedHeader
	if err := signedHeader.ValidateBasic(cs.ChainID); err != nil {
		return ErrInvalidHeader{err}
	}

	if vhash := h.ValidatorSet.Hash(); !bytes.Equal(signedHeader.ValidatorsHash, vhash) {
		return ErrInvalidHeader{fmt.Errorf("expected header validators (%X) to match those that were supplied (%X)",
			signedHeader.ValidatorsHash, vhash)}
	}

	if err := VerifyCommitTrusting(cs.ChainID, h.TrustedValidators, signedHeader.Commit, cs.TrustLevel, opts...); err != nil {
		return err
	}

	return VerifyCommit(cs.ChainID, h.ValidatorSet, signedHeader.Commit.BlockID,
		signedHeader.Height, signedHeader.Commit, opts...)
}

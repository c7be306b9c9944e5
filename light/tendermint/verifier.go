package tendermint

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// VerifyHeader verifies the header against the trusted consensus state at
// header.TrustedHeight. It ensures that:
//
//	a) the client is not frozen (ErrClientFrozen)
//	b) the header is well formed and its trusted height is not above its own
//	c) the trusted validators hash to the trusted NextValidatorsHash
//	d) the trusted consensus state can still be trusted (ErrOldHeaderExpired)
//	e) the header is valid for the chain and not from the future
//	f) for adjacent headers the validator set is the trusted next set,
//	   otherwise trustLevel of the trusted validators signed
//	g) more than 2/3 of the header validators signed
//
// now is the local time of the verifier.
func VerifyHeader(cs ClientState, trusted ConsensusState, h *Header, now time.Time, opts ...Option) error {
	if cs.IsFrozen() {
		return ErrClientFrozen
	}
	if err := h.ValidateBasic(); err != nil {
		return err
	}

	if err := checkTrustedHeader(cs, trusted, h, now); err != nil {
		return err
	}

	var (
		signedHeader = h.SignedHeader
		height       = h.Height()
	)

	if err := verifyNewHeaderAndVals(cs, trusted, h, now); err != nil {
		return ErrInvalidHeader{err}
	}

	if h.TrustedHeight.Increment().EQ(height) {
		// Check the validator hashes are the same
		if !bytes.Equal(signedHeader.ValidatorsHash, trusted.NextValidatorsHash) {
			return ErrInvalidHeader{fmt.Errorf("expected old header next validators (%X) to match those from new header (%X)",
				trusted.NextValidatorsHash,
				signedHeader.ValidatorsHash,
			)}
		}
	} else {
		// Ensure that +`trustLevel` (default 1/3) or more of last trusted validators signed correctly.
		if err := VerifyCommitTrusting(cs.ChainID, h.TrustedValidators, signedHeader.Commit, cs.TrustLevel, opts...); err != nil {
			return err
		}
	}

	// Ensure that +2/3 of new validators signed correctly.
	//
	// NOTE: this should always be the last check because the header
	// validators can be intentionally made very large to DOS the light
	// client.
	if err := VerifyCommit(cs.ChainID, h.ValidatorSet, signedHeader.Commit.BlockID,
		signedHeader.Height, signedHeader.Commit, opts...); err != nil {
		var insufficient InsufficientVotingPowerError
		if errors.As(err, &insufficient) || errors.Is(err, ErrDuplicateVote) {
			return err
		}
		return ErrInvalidHeader{err}
	}

	return nil
}

// checkTrustedHeader ensures the trusted validators are the ones committed to
// by the trusted consensus state and that the state has not expired.
func checkTrustedHeader(cs ClientState, trusted ConsensusState, h *Header, now time.Time) error {
	if tvalHash := h.TrustedValidators.Hash(); !bytes.Equal(tvalHash, trusted.NextValidatorsHash) {
		return ErrInvalidHeader{fmt.Errorf("trusted validators %X do not hash to latest trusted validators; expected %X",
			tvalHash, trusted.NextValidatorsHash)}
	}

	if trusted.Expired(cs.TrustingPeriod, now) {
		return ErrOldHeaderExpired{trusted.Timestamp.Add(cs.TrustingPeriod), now}
	}
	return nil
}

func verifyNewHeaderAndVals(cs ClientState, trusted ConsensusState, h *Header, now time.Time) error {
	signedHeader := h.SignedHeader

	if err := signedHeader.ValidateBasic(cs.ChainID); err != nil {
		return fmt.Errorf("untrustedHeader.ValidateBasic failed: %w", err)
	}

	if !signedHeader.Time.After(trusted.Timestamp) {
		return fmt.Errorf("expected new header time %v to be after old header time %v",
			signedHeader.Time,
			trusted.Timestamp)
	}

	if !signedHeader.Time.Before(now.Add(cs.MaxClockDrift)) {
		return fmt.Errorf("new header has a time from the future %v (now: %v; max clock drift: %v)",
			signedHeader.Time,
			now,
			cs.MaxClockDrift)
	}

	if vhash := h.ValidatorSet.Hash(); !bytes.Equal(signedHeader.ValidatorsHash, vhash) {
		return fmt.Errorf("expected new header validators (%X) to match those that were supplied (%X) at height %d",
			signedHeader.ValidatorsHash,
			vhash,
			signedHeader.Height,
		)
	}

	return nil
}

// UpdateState returns the client state with its latest height raised to the
// header height, if higher, and the consensus state of the header.
func UpdateState(cs ClientState, h *Header) (ClientState, ConsensusState) {
	if height := h.Height(); height.GT(cs.LatestHeight) {
		cs.LatestHeight = height
	}
	return cs, h.ConsensusState()
}

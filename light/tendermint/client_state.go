package tendermint

import (
	"bytes"
	"fmt"
	"time"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"

	ibcmath "github.com/tendermint/ibclight/libs/math"
	"github.com/tendermint/ibclight/types"
)

var (
	// DefaultTrustLevel - new header can be trusted if at least one correct
	// validator signed it.
	DefaultTrustLevel = ibcmath.Fraction{Numerator: 1, Denominator: 3}

	// FrozenHeight is the height a client is frozen at once misbehaviour was
	// proven.
	FrozenHeight = types.NewHeight(0, 1)
)

// ClientState tracks a Tendermint chain.
type ClientState struct {
	ChainID         string           `json:"chain_id"`
	TrustLevel      ibcmath.Fraction `json:"trust_level"`
	TrustingPeriod  time.Duration    `json:"trusting_period"`
	UnbondingPeriod time.Duration    `json:"unbonding_period"`
	MaxClockDrift   time.Duration    `json:"max_clock_drift"`
	LatestHeight    types.Height     `json:"latest_height"`
	FrozenHeight    types.Height     `json:"frozen_height"`
}

// ClientType implements the client state and message variants.
func (ClientState) ClientType() types.ClientType {
	return types.Tendermint
}

// GetLatestHeight returns the latest verified height.
func (cs ClientState) GetLatestHeight() types.Height {
	return cs.LatestHeight
}

// IsFrozen reports whether misbehaviour was proven for the client.
func (cs ClientState) IsFrozen() bool {
	return !cs.FrozenHeight.IsZero()
}

// Freeze returns a copy of the client state frozen at FrozenHeight.
func (cs ClientState) Freeze() ClientState {
	cs.FrozenHeight = FrozenHeight
	return cs
}

// ValidateBasic performs stateless validation of the client parameters.
func (cs ClientState) ValidateBasic() error {
	if cs.ChainID == "" {
		return fmt.Errorf("%w: chain id cannot be empty", ErrInvalidClientState)
	}
	if err := cs.TrustLevel.ValidateTrustLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClientState, err)
	}
	if cs.TrustingPeriod <= 0 {
		return fmt.Errorf("%w: trusting period must be positive", ErrInvalidClientState)
	}
	if cs.UnbondingPeriod <= 0 {
		return fmt.Errorf("%w: unbonding period must be positive", ErrInvalidClientState)
	}
	if cs.MaxClockDrift <= 0 {
		return fmt.Errorf("%w: max clock drift must be positive", ErrInvalidClientState)
	}
	if cs.TrustingPeriod >= cs.UnbondingPeriod {
		return fmt.Errorf("%w: trusting period (%s) should be < unbonding period (%s)",
			ErrInvalidClientState, cs.TrustingPeriod, cs.UnbondingPeriod)
	}
	if cs.LatestHeight.RevisionHeight == 0 {
		return fmt.Errorf("%w: latest revision height cannot be zero", ErrInvalidClientState)
	}
	if cs.LatestHeight.RevisionNumber != types.ParseChainID(cs.ChainID) {
		return fmt.Errorf("%w: latest height revision number must match chain id revision number (%d != %d)",
			ErrInvalidClientState, cs.LatestHeight.RevisionNumber, types.ParseChainID(cs.ChainID))
	}
	return nil
}

// ConsensusState is the trusted state of the chain at a height.
type ConsensusState struct {
	Timestamp          time.Time         `json:"timestamp"`
	Root               cmtbytes.HexBytes `json:"root"`
	NextValidatorsHash cmtbytes.HexBytes `json:"next_validators_hash"`
}

// ClientType implements the consensus state variants.
func (ConsensusState) ClientType() types.ClientType {
	return types.Tendermint
}

// Equal reports whether both consensus states commit to the same data.
func (cs ConsensusState) Equal(other ConsensusState) bool {
	return cs.Timestamp.Equal(other.Timestamp) &&
		bytes.Equal(cs.Root, other.Root) &&
		bytes.Equal(cs.NextValidatorsHash, other.NextValidatorsHash)
}

// Expired returns true if the consensus state is no longer within the
// trusting period at now.
func (cs ConsensusState) Expired(trustingPeriod time.Duration, now time.Time) bool {
	expirationTime := cs.Timestamp.Add(trustingPeriod)
	return !expirationTime.After(now)
}

package tendermint

import (
	"fmt"
	"time"

	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/tendermint/ibclight/types"
)

// Header is a signed header together with the validator set that signed it
// and the trusted height and validators it is verified against.
type Header struct {
	SignedHeader      *cmttypes.SignedHeader
	ValidatorSet      *cmttypes.ValidatorSet
	TrustedHeight     types.Height
	TrustedValidators *cmttypes.ValidatorSet
}

// ClientType implements the client message variants.
func (*Header) ClientType() types.ClientType {
	return types.Tendermint
}

// Height returns the IBC height of the header. The revision number is
// derived from the chain id.
func (h *Header) Height() types.Height {
	if h == nil || h.SignedHeader == nil || h.SignedHeader.Header == nil {
		return types.ZeroHeight
	}
	revision := types.ParseChainID(h.SignedHeader.ChainID)
	return types.NewHeight(revision, uint64(h.SignedHeader.Height))
}

// Time returns the block time of the header.
func (h *Header) Time() time.Time {
	return h.SignedHeader.Time
}

// ConsensusState returns the consensus state committed to by the header.
func (h *Header) ConsensusState() ConsensusState {
	return ConsensusState{
		Timestamp:          h.SignedHeader.Time,
		Root:               h.SignedHeader.AppHash,
		NextValidatorsHash: h.SignedHeader.NextValidatorsHash,
	}
}

// ValidateBasic checks that every field is present and that the trusted
// height does not exceed the header height.
func (h *Header) ValidateBasic() error {
	switch {
	case h == nil:
		return fmt.Errorf("%w: header", ErrMissingHeaderField)
	case h.SignedHeader == nil:
		return fmt.Errorf("%w: signed header", ErrMissingHeaderField)
	case h.SignedHeader.Header == nil:
		return fmt.Errorf("%w: header of the signed header", ErrMissingHeaderField)
	case h.SignedHeader.Commit == nil:
		return fmt.Errorf("%w: commit", ErrMissingHeaderField)
	case h.ValidatorSet == nil:
		return fmt.Errorf("%w: validator set", ErrMissingHeaderField)
	case h.TrustedValidators == nil:
		return fmt.Errorf("%w: trusted validators", ErrMissingHeaderField)
	}

	if h.SignedHeader.Height <= 0 {
		return ErrInvalidHeader{fmt.Errorf("non-positive height %d", h.SignedHeader.Height)}
	}
	height := h.Height()
	if h.TrustedHeight.RevisionNumber != height.RevisionNumber {
		return fmt.Errorf("%w: trusted height revision %d does not match header revision %d",
			ErrInvalidTrustedHeight, h.TrustedHeight.RevisionNumber, height.RevisionNumber)
	}
	if h.TrustedHeight.GT(height) {
		return fmt.Errorf("%w: trusted height %v is greater than header height %v",
			ErrInvalidTrustedHeight, h.TrustedHeight, height)
	}
	if err := h.ValidatorSet.ValidateBasic(); err != nil {
		return ErrInvalidHeader{fmt.Errorf("validator set: %w", err)}
	}
	if err := h.TrustedValidators.ValidateBasic(); err != nil {
		return ErrInvalidHeader{fmt.Errorf("trusted validator set: %w", err)}
	}
	return nil
}

// Misbehaviour is evidence of two conflicting headers for the same client.
// Header1 is at a height greater or equal to Header2.
type Misbehaviour struct {
	ClientID string
	Header1  *Header
	Header2  *Header
}

// ClientType implements the client message variants.
func (*Misbehaviour) ClientType() types.ClientType {
	return types.Tendermint
}

func (m *Misbehaviour) String() string {
	return fmt.Sprintf("Misbehaviour{client: %s, header1: %v, header2: %v}",
		m.ClientID, m.Header1.Height(), m.Header2.Height())
}

// ValidateBasic checks both headers and their order.
func (m *Misbehaviour) ValidateBasic() error {
	if m == nil {
		return fmt.Errorf("%w: misbehaviour", ErrMissingHeaderField)
	}
	if err := m.Header1.ValidateBasic(); err != nil {
		return fmt.Errorf("header 1: %w", err)
	}
	if err := m.Header2.ValidateBasic(); err != nil {
		return fmt.Errorf("header 2: %w", err)
	}
	if m.Header1.SignedHeader.ChainID != m.Header2.SignedHeader.ChainID {
		return ErrInvalidHeader{fmt.Errorf("headers are from different chains: %s and %s",
			m.Header1.SignedHeader.ChainID, m.Header2.SignedHeader.ChainID)}
	}
	if m.Header1.Height().LT(m.Header2.Height()) {
		return ErrInvalidHeader{fmt.Errorf("header 1 height %v is less than header 2 height %v",
			m.Header1.Height(), m.Header2.Height())}
	}
	return nil
}

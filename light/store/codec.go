package store

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/tendermint/ibclight/light/beefy"
	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

// envelope is the stored form of a client state.
type envelope struct {
	Type       types.ClientType        `cbor:"1,keyasint"`
	Tendermint *tendermint.ClientState `cbor:"2,keyasint,omitempty"`
	Beefy      *beefy.ClientState      `cbor:"3,keyasint,omitempty"`
}

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	modeErr     error
	modeErrOnce sync.Once
)

func modes() (cbor.EncMode, cbor.DecMode, error) {
	modeErrOnce.Do(func() {
		encMode, modeErr = cbor.EncOptions{
			Sort: cbor.SortCoreDeterministic,
			// consensus state times keep their nanoseconds
			Time: cbor.TimeRFC3339Nano,
		}.EncMode()
		if modeErr != nil {
			return
		}
		decMode, modeErr = cbor.DecOptions{
			ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		}.DecMode()
	})
	return encMode, decMode, modeErr
}

func marshal(v interface{}) ([]byte, error) {
	em, _, err := modes()
	if err != nil {
		return nil, err
	}
	return em.Marshal(v)
}

func unmarshal(bz []byte, v interface{}) error {
	_, dm, err := modes()
	if err != nil {
		return err
	}
	return dm.Unmarshal(bz, v)
}

func encodeClientState(cs ClientState) ([]byte, error) {
	env := envelope{Type: cs.ClientType()}
	switch cs := cs.(type) {
	case tendermint.ClientState:
		env.Tendermint = &cs
	case *tendermint.ClientState:
		env.Tendermint = cs
	case beefy.ClientState:
		env.Beefy = &cs
	case *beefy.ClientState:
		env.Beefy = cs
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownClientType, cs)
	}
	return marshal(env)
}

func decodeClientState(bz []byte) (ClientState, error) {
	var env envelope
	if err := unmarshal(bz, &env); err != nil {
		return nil, fmt.Errorf("decoding client state: %w", err)
	}
	switch {
	case env.Type == types.Tendermint && env.Tendermint != nil:
		return *env.Tendermint, nil
	case env.Type == types.Beefy && env.Beefy != nil:
		return *env.Beefy, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClientType, env.Type)
	}
}

func encodeConsensusState(cs tendermint.ConsensusState) ([]byte, error) {
	return marshal(cs)
}

func decodeConsensusState(bz []byte) (tendermint.ConsensusState, error) {
	var cs tendermint.ConsensusState
	if err := unmarshal(bz, &cs); err != nil {
		return tendermint.ConsensusState{}, fmt.Errorf("decoding consensus state: %w", err)
	}
	return cs, nil
}

// Package light keeps IBC light clients of Tendermint chains and BEEFY relay
// chains up to date.
//
// A Verifier reads the state of a client from a store.Arena, verifies a
// client message against it with the verifier of the client type and writes
// the new state back. Verification errors are grouped with Classify.
package light

import (
	"github.com/tendermint/ibclight/light/beefy"
	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

// ClientState is a tendermint.ClientState or a beefy.ClientState.
type ClientState interface {
	ClientType() types.ClientType
	GetLatestHeight() types.Height
	IsFrozen() bool
	ValidateBasic() error
}

// ClientMessage is one of *tendermint.Header, *tendermint.Misbehaviour,
// *beefy.MmrUpdateProof or *beefy.ParachainsUpdateProof.
type ClientMessage interface {
	ClientType() types.ClientType
}

var (
	_ ClientState = tendermint.ClientState{}
	_ ClientState = beefy.ClientState{}

	_ ClientMessage = (*tendermint.Header)(nil)
	_ ClientMessage = (*tendermint.Misbehaviour)(nil)
	_ ClientMessage = (*beefy.MmrUpdateProof)(nil)
	_ ClientMessage = (*beefy.ParachainsUpdateProof)(nil)
)

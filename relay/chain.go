// Package relay resolves the heights at which packet proofs are queried and
// decides whether the connection delay has passed for a proof.
//
// Chains are reached only through the Chain interface; this package performs
// no I/O of its own.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/ibclight/types"
)

var (
	// ErrPacketNotTimedOut is returned when a packet has timed out neither by
	// height nor by timestamp on the sink.
	ErrPacketNotTimedOut = errors.New("packet has not timed out")
	// ErrInvalidBlockTime is returned when a chain reports a zero expected
	// block time.
	ErrInvalidBlockTime = errors.New("invalid expected block time")
	// ErrConsensusStateNotFound is returned by Chain implementations when no
	// consensus state exists at the requested height.
	ErrConsensusStateNotFound = errors.New("consensus state not found")
	// ErrClientUpdateNotFound is returned by Chain implementations when the
	// client was never updated to the requested height.
	ErrClientUpdateNotFound = errors.New("client update not found")
)

// Chain is the view of a chain that proof height resolution needs.
type Chain interface {
	// Name identifies the chain in logs.
	Name() string
	// ClientID is the id of the light client of the counterparty hosted on
	// this chain.
	ClientID() string
	// AccountID is the relayer account on this chain.
	AccountID() string
	// ExpectedBlockTime is the average block time of the chain.
	ExpectedBlockTime() time.Duration

	// QueryHeader returns the encoded client message that updates the
	// counterparty's client of this chain to height at.
	QueryHeader(ctx context.Context, at types.Height) ([]byte, error)
	// QueryProof returns a proof of the keys at height.
	QueryProof(ctx context.Context, at types.Height, keys [][]byte) ([]byte, error)
	// QueryClientConsensusTimestamp returns the timestamp of the consensus
	// state at consensusHeight of client clientID, as stored on this chain at
	// height at. A missing consensus state yields ErrConsensusStateNotFound.
	QueryClientConsensusTimestamp(ctx context.Context, at types.Height, clientID string,
		consensusHeight types.Height) (time.Time, error)
	// QueryClientUpdateTimeAndHeight returns the local height and time at which
	// client clientID was updated to consensusHeight, or
	// ErrClientUpdateNotFound.
	QueryClientUpdateTimeAndHeight(ctx context.Context, clientID string,
		consensusHeight types.Height) (types.Height, time.Time, error)
	// ProofHeight maps a height to the height that proofs queried at it are
	// verified against by the counterparty.
	ProofHeight(ctx context.Context, at types.Height) (types.Height, error)
}

// QueryProofWithHeader queries a proof of keys on chain at height at
// together with the header the counterparty's client must be updated with
// to verify it. The returned height is the one the proof is verified at.
func QueryProofWithHeader(ctx context.Context, chain Chain, at types.Height, keys [][]byte) (proof, header []byte,
	proofHeight types.Height, err error) {
	proofHeight, err = chain.ProofHeight(ctx, at)
	if err != nil {
		return nil, nil, types.Height{}, fmt.Errorf("proof height of %v on %s: %w", at, chain.Name(), err)
	}
	proof, err = chain.QueryProof(ctx, at, keys)
	if err != nil {
		return nil, nil, types.Height{}, fmt.Errorf("proof at %v on %s: %w", at, chain.Name(), err)
	}
	header, err = chain.QueryHeader(ctx, proofHeight)
	if err != nil {
		return nil, nil, types.Height{}, fmt.Errorf("header at %v on %s: %w", proofHeight, chain.Name(), err)
	}
	return proof, header, proofHeight, nil
}

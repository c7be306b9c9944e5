package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/ibclight/types"
)

// CalculateBlockDelay returns the number of blocks expected within delay,
// rounded up. A zero block time yields no block delay.
func CalculateBlockDelay(delay, expectedBlockTime time.Duration) uint64 {
	if expectedBlockTime <= 0 || delay <= 0 {
		return 0
	}
	blocks := delay / expectedBlockTime
	if delay%expectedBlockTime != 0 {
		blocks++
	}
	return uint64(blocks)
}

// HasDelayElapsed reports whether both the time delay and the block delay
// passed since the client was updated. A time delay alone is not enough since
// block times can be skewed by the chain.
func HasDelayElapsed(now time.Time, currentHeight types.Height, updateTime time.Time, updateHeight types.Height,
	delay time.Duration, blockDelay uint64) bool {
	if now.Before(updateTime.Add(delay)) {
		return false
	}
	earliest := types.NewHeight(updateHeight.RevisionNumber, updateHeight.RevisionHeight+blockDelay)
	if earliest.RevisionHeight < updateHeight.RevisionHeight {
		// overflow
		return false
	}
	return !currentHeight.LT(earliest)
}

// VerifyDelayOn selects the chain whose client the delay is checked on.
type VerifyDelayOn uint8

const (
	// VerifyDelayOnSource checks the client of the sink hosted on the source.
	VerifyDelayOnSource VerifyDelayOn = iota
	// VerifyDelayOnSink checks the client of the source hosted on the sink.
	VerifyDelayOnSink
)

func (v VerifyDelayOn) String() string {
	if v == VerifyDelayOnSink {
		return "sink"
	}
	return "source"
}

// DelayParams are the latest known heights and times of both chains.
type DelayParams struct {
	SourceTimestamp time.Time
	SourceHeight    types.Height
	SinkTimestamp   time.Time
	SinkHeight      types.Height
	ConnectionDelay time.Duration
	ProofHeight     types.Height
}

// VerifyDelayPassed reports whether the connection delay passed for a proof
// at p.ProofHeight on the client selected by on. A client that was never
// updated to the proof height has not passed the delay.
func VerifyDelayPassed(ctx context.Context, source, sink Chain, p DelayParams, on VerifyDelayOn, opts ...Option) (bool, error) {
	var (
		host, counterparty Chain
		now                time.Time
		current            types.Height
	)
	switch on {
	case VerifyDelayOnSource:
		host, counterparty, now, current = source, sink, p.SourceTimestamp, p.SourceHeight
	case VerifyDelayOnSink:
		host, counterparty, now, current = sink, source, p.SinkTimestamp, p.SinkHeight
	default:
		return false, fmt.Errorf("unknown delay target %d", on)
	}

	logger := newOptions(opts).logger.With("host", host.Name(), "counterparty", counterparty.Name())

	proofHeight, err := counterparty.ProofHeight(ctx, p.ProofHeight)
	if err != nil {
		return false, fmt.Errorf("proof height of %v on %s: %w", p.ProofHeight, counterparty.Name(), err)
	}

	if on == VerifyDelayOnSink {
		// the proof is verified against this consensus state
		if _, err := host.QueryClientConsensusTimestamp(ctx, current, host.ClientID(), proofHeight); err != nil {
			return false, fmt.Errorf("consensus state of %s at %v on %s: %w",
				host.ClientID(), proofHeight, host.Name(), err)
		}
	}

	updateHeight, updateTime, err := host.QueryClientUpdateTimeAndHeight(ctx, host.ClientID(), proofHeight)
	if errors.Is(err, ErrClientUpdateNotFound) {
		logger.Debug("client was not updated to proof height", "proof_height", proofHeight)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	blockDelay := CalculateBlockDelay(p.ConnectionDelay, host.ExpectedBlockTime())
	elapsed := HasDelayElapsed(now, current, updateTime, updateHeight, p.ConnectionDelay, blockDelay)
	logger.Debug("verified connection delay",
		"proof_height", proofHeight,
		"update_height", updateHeight,
		"update_time", updateTime,
		"block_delay", blockDelay,
		"elapsed", elapsed)
	return elapsed, nil
}

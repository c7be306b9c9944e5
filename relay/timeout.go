package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	ibcmath "github.com/tendermint/ibclight/libs/math"
	"github.com/tendermint/ibclight/types"
)

// EstimateParams are the chain heads and block times used to extrapolate
// the sink height at which a packet timed out.
type EstimateParams struct {
	SourceHeight    types.Height
	SourceTimestamp time.Time
	SinkHeight      types.Height
	SourceBlockTime time.Duration
	SinkBlockTime   time.Duration
}

// EstimateTimeoutHeight estimates the first sink height at which p is timed
// out. Height timeouts are exact. For timestamp timeouts the packet lifetime
// in source blocks is turned into a duration, projected back onto the sink to
// find the sink height at packet creation, and the time to the timeout is
// added in sink blocks. For both timeouts the lower of the two is returned.
func EstimateTimeoutHeight(p Packet, variant TimeoutVariant, e EstimateParams) (types.Height, error) {
	if variant == TimeoutHeight {
		return p.TimeoutHeight, nil
	}
	if variant != TimeoutTimestamp && variant != TimeoutBoth {
		return types.Height{}, fmt.Errorf("unknown timeout variant %d", variant)
	}
	if e.SinkBlockTime <= 0 || e.SourceBlockTime < 0 {
		return types.Height{}, fmt.Errorf("%w: source %v, sink %v", ErrInvalidBlockTime, e.SourceBlockTime, e.SinkBlockTime)
	}

	var (
		sinkBlockTime  = uint64(e.SinkBlockTime)
		lifetimeBlocks = ibcmath.SaturatingSubUint64(e.SourceHeight.RevisionHeight, p.CreationHeight)
	)
	lifetime, err := ibcmath.SafeMulUint64(uint64(e.SourceBlockTime), lifetimeBlocks)
	if err != nil {
		return types.Height{}, fmt.Errorf("packet lifetime: %w", err)
	}
	sourceNow, err := ibcmath.SafeConvertUint64(e.SourceTimestamp.UnixNano())
	if err != nil {
		return types.Height{}, fmt.Errorf("source timestamp: %w", err)
	}
	if lifetime > sourceNow {
		return types.Height{}, fmt.Errorf("packet lifetime %v exceeds source time %v", time.Duration(lifetime), e.SourceTimestamp)
	}

	var (
		createdAt       = sourceNow - lifetime
		untilTimeout    = ibcmath.SaturatingSubUint64(p.TimeoutTimestamp, createdAt)
		createdAtOnSink = ibcmath.SaturatingSubUint64(e.SinkHeight.RevisionHeight, lifetime/sinkBlockTime)
	)
	timeoutOnSink, err := ibcmath.SafeAddUint64(createdAtOnSink, untilTimeout/sinkBlockTime)
	if err != nil {
		return types.Height{}, fmt.Errorf("timeout height: %w", err)
	}

	estimate := types.NewHeight(e.SinkHeight.RevisionNumber, ibcmath.SaturatingSubUint64(timeoutOnSink, 1))
	if variant == TimeoutBoth && p.TimeoutHeight.LT(estimate) {
		estimate = p.TimeoutHeight
	}
	return estimate, nil
}

// SearchParams bound the search for a proof height.
type SearchParams struct {
	// At is the host height the client is queried at.
	At types.Height
	// HostTimestamp is the host time at At.
	HostTimestamp time.Time
	// Start is the first counterparty height considered.
	Start types.Height
	// LatestClientHeight is the last counterparty height considered.
	LatestClientHeight types.Height
	// TimeoutHeight, if not zero, is the lowest acceptable height.
	TimeoutHeight types.Height
	// TimeoutTimestamp, if not zero, is the earliest acceptable consensus
	// state time.
	TimeoutTimestamp time.Time
	// ConnectionDelay, if not zero, must have passed since the client was
	// updated to the returned height.
	ConnectionDelay time.Duration
}

// FindSuitableProofHeight returns the lowest counterparty height in
// [Start, LatestClientHeight] for which the host's client has a consensus
// state satisfying the bounds of p. It scans linearly when a height bound is
// given and binary searches on consensus state time otherwise. The boolean
// result is false if no such height exists.
func FindSuitableProofHeight(ctx context.Context, host, counterparty Chain, p SearchParams, opts ...Option) (types.Height, bool, error) {
	logger := newOptions(opts).logger.With("host", host.Name(), "counterparty", counterparty.Name())

	s := &search{ctx: ctx, host: host, counterparty: counterparty, params: p}

	var (
		found types.Height
		ok    bool
		err   error
	)
	switch {
	case !p.TimeoutHeight.IsZero():
		found, ok, err = s.linear()
	case !p.TimeoutTimestamp.IsZero():
		found, ok, err = s.binary()
	default:
		return types.Height{}, false, errors.New("search needs a timeout height or timestamp")
	}
	if err != nil || !ok {
		logger.Debug("no suitable proof height", "start", p.Start, "latest", p.LatestClientHeight, "err", err)
		return types.Height{}, false, err
	}

	logger.Debug("found proof height", "height", found)
	return found, true, nil
}

type search struct {
	ctx          context.Context
	host         Chain
	counterparty Chain
	params       SearchParams
}

func (s *search) height(h uint64) types.Height {
	return types.NewHeight(s.params.Start.RevisionNumber, h)
}

// timestamp returns the time of the consensus state at h and false if the
// host has none.
func (s *search) timestamp(h uint64) (time.Time, bool, error) {
	if err := s.ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	ts, err := s.host.QueryClientConsensusTimestamp(s.ctx, s.params.At, s.host.ClientID(), s.height(h))
	if errors.Is(err, ErrConsensusStateNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

func (s *search) delayPassed(h types.Height) (bool, error) {
	return VerifyDelayPassed(s.ctx, s.host, s.counterparty, DelayParams{
		SourceTimestamp: s.params.HostTimestamp,
		SourceHeight:    s.params.At,
		ConnectionDelay: s.params.ConnectionDelay,
		ProofHeight:     h,
	}, VerifyDelayOnSource)
}

func (s *search) linear() (types.Height, bool, error) {
	var (
		start  = s.params.Start.RevisionHeight
		latest = s.params.LatestClientHeight.RevisionHeight
	)
	if s.params.TimeoutHeight.RevisionNumber == s.params.Start.RevisionNumber &&
		s.params.TimeoutHeight.RevisionHeight > start {
		start = s.params.TimeoutHeight.RevisionHeight
	}

	for h := start; h <= latest && h >= start; h++ {
		ts, ok, err := s.timestamp(h)
		if err != nil {
			return types.Height{}, false, err
		}
		if !ok {
			continue
		}
		if !s.params.TimeoutTimestamp.IsZero() && ts.Before(s.params.TimeoutTimestamp) {
			continue
		}
		if s.params.ConnectionDelay > 0 {
			passed, err := s.delayPassed(s.height(h))
			if err != nil {
				return types.Height{}, false, err
			}
			if !passed {
				continue
			}
		}
		return s.height(h), true, nil
	}
	return types.Height{}, false, nil
}

// binary finds the lowest height whose consensus state is not before the
// timeout timestamp. Heights without a consensus state are skipped. Consensus
// state times grow with height, and so does the time of the client update to
// a height, so the connection delay is only checked for the result.
func (s *search) binary() (types.Height, bool, error) {
	var (
		lo, hi = s.params.Start.RevisionHeight, s.params.LatestClientHeight.RevisionHeight
		best   uint64
		found  bool
	)
	for lo <= hi {
		mid := lo + (hi-lo)/2

		// the first height at or above mid with a consensus state
		probe := mid
		ts, ok, err := s.timestamp(probe)
		for ; err == nil && !ok && probe < hi; ts, ok, err = s.timestamp(probe) {
			probe++
		}
		if err != nil {
			return types.Height{}, false, err
		}

		switch {
		case !ok || !ts.Before(s.params.TimeoutTimestamp):
			if ok {
				best, found = probe, true
			}
			if mid == 0 {
				return s.result(best, found)
			}
			hi = mid - 1
		default:
			lo = probe + 1
		}
	}
	return s.result(best, found)
}

func (s *search) result(h uint64, found bool) (types.Height, bool, error) {
	if !found {
		return types.Height{}, false, nil
	}
	if s.params.ConnectionDelay > 0 {
		passed, err := s.delayPassed(s.height(h))
		if err != nil || !passed {
			return types.Height{}, false, err
		}
	}
	return s.height(h), true, nil
}

// TimeoutParams are the chain heads a timeout proof height is resolved from.
type TimeoutParams struct {
	SourceHeight               types.Height
	SourceTimestamp            time.Time
	SinkHeight                 types.Height
	SinkTimestamp              time.Time
	LatestClientHeightOnSource types.Height
	Packet                     Packet
	SourceDelayPeriod          time.Duration
}

// GetTimeoutProofHeight returns the sink height at which the non-receipt of
// a timed out packet should be proven to the source.
func GetTimeoutProofHeight(ctx context.Context, source, sink Chain, p TimeoutParams, opts ...Option) (types.Height, bool, error) {
	variant, err := p.Packet.TimeoutVariant(p.SinkTimestamp, p.SinkHeight)
	if err != nil {
		return types.Height{}, false, err
	}

	start, err := EstimateTimeoutHeight(p.Packet, variant, EstimateParams{
		SourceHeight:    p.SourceHeight,
		SourceTimestamp: p.SourceTimestamp,
		SinkHeight:      p.SinkHeight,
		SourceBlockTime: source.ExpectedBlockTime(),
		SinkBlockTime:   sink.ExpectedBlockTime(),
	})
	if err != nil {
		return types.Height{}, false, err
	}

	newOptions(opts).logger.Debug("resolving timeout proof height",
		"packet", p.Packet, "variant", variant, "start", start,
		"latest_client_height", p.LatestClientHeightOnSource)

	search := SearchParams{
		At:                 p.SourceHeight,
		HostTimestamp:      p.SourceTimestamp,
		Start:              start,
		LatestClientHeight: p.LatestClientHeightOnSource,
		ConnectionDelay:    p.SourceDelayPeriod,
	}
	if variant == TimeoutHeight || variant == TimeoutBoth {
		search.TimeoutHeight = p.Packet.TimeoutHeight
	}
	if variant == TimeoutTimestamp || variant == TimeoutBoth {
		search.TimeoutTimestamp = p.Packet.TimeoutTime()
	}
	return FindSuitableProofHeight(ctx, source, sink, search, opts...)
}

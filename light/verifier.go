package light

import (
	"context"
	"fmt"
	"time"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/libs/log"
	"github.com/tendermint/ibclight/light/beefy"
	"github.com/tendermint/ibclight/light/store"
	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

// Option sets a parameter for the verifier.
type Option func(*Verifier)

// Logger option can be used to set a logger for the verifier.
func Logger(l log.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// WithMetrics sets the metrics the verifier reports to.
func WithMetrics(m *Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// Clock option sets the source of the local time headers are checked
// against. Default: time.Now.
func Clock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// Verifier updates light clients kept in an arena. Each update reads the
// client state, verifies the client message against it and writes the new
// state back while holding the client lock, so updates of a client are
// applied one at a time.
type Verifier struct {
	arena   *store.Arena
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewVerifier returns a Verifier of the clients in arena.
//
// See all Option(s) for the additional configuration.
func NewVerifier(arena *store.Arena, options ...Option) *Verifier {
	v := &Verifier{
		arena:   arena,
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
		now:     time.Now,
	}
	for _, o := range options {
		o(v)
	}
	return v
}

// CreateClient validates and stores the initial state of a client together
// with its trusted consensus states.
func (v *Verifier) CreateClient(clientID string, cs ClientState, consensus ...store.ConsensusEntry) error {
	if err := cs.ValidateBasic(); err != nil {
		return err
	}
	if err := v.arena.Create(clientID, cs, consensus...); err != nil {
		return err
	}
	v.logger.Info("client created", "client", clientID, "type", cs.ClientType(), "height", cs.GetLatestHeight())
	v.metrics.LatestHeight.With("client_id", clientID).Set(float64(cs.GetLatestHeight().RevisionHeight))
	return nil
}

// ClientState returns the current state of a client.
func (v *Verifier) ClientState(clientID string) (ClientState, error) {
	cs, err := v.arena.Store().ClientState(clientID)
	if err != nil {
		return nil, err
	}
	return asClientState(cs)
}

// UpdateClient verifies msg against the state of clientID and stores the
// resulting state.
//
// A tendermint header that verifies but conflicts with a trusted consensus
// state freezes the client: the frozen state is stored and returned together
// with an ErrMisbehaviour. A verified tendermint misbehaviour freezes the
// client without an error. Errors can be grouped with Classify.
func (v *Verifier) UpdateClient(ctx context.Context, clientID string, msg ClientMessage) (ClientState, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnexpectedMessage)
	}

	var (
		start        = time.Now()
		clientType   = msg.ClientType()
		misbehaviour error
		frozen       bool
	)

	next, err := v.arena.Update(ctx, clientID, func(current store.ClientState) (store.ClientState, []store.ConsensusEntry, error) {
		if current.ClientType() != clientType {
			return nil, nil, fmt.Errorf("%w: %T for %s client %s", ErrUnexpectedMessage, msg, current.ClientType(), clientID)
		}

		switch cs := current.(type) {
		case tendermint.ClientState:
			next, consensus, err := v.updateTendermint(clientID, cs, msg, &misbehaviour)
			if err == nil && next.IsFrozen() {
				frozen = true
			}
			return next, consensus, err
		case beefy.ClientState:
			next, err := v.updateBeefy(cs, msg)
			return next, nil, err
		default:
			return nil, nil, fmt.Errorf("%w: %T", store.ErrUnknownClientType, current)
		}
	})

	v.metrics.VerificationSeconds.With("client_type", clientType.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		v.reject(clientID, clientType, err)
		return nil, err
	}

	if frozen {
		v.metrics.FrozenClients.With("client_type", clientType.String()).Add(1)
		v.logger.Error("client frozen", "client", clientID, "height", next.GetLatestHeight(), "err", misbehaviour)
	} else {
		v.metrics.Updates.With("client_type", clientType.String()).Add(1)
		v.metrics.LatestHeight.With("client_id", clientID).Set(float64(next.GetLatestHeight().RevisionHeight))
		v.logger.Info("client updated", "client", clientID, "height", next.GetLatestHeight())
	}

	cs, err := asClientState(next)
	if err != nil {
		return nil, err
	}
	return cs, misbehaviour
}

func (v *Verifier) updateTendermint(clientID string, cs tendermint.ClientState, msg ClientMessage,
	misbehaviour *error) (tendermint.ClientState, []store.ConsensusEntry, error) {
	var (
		reader = v.arena.Store().ConsensusReader(clientID)
		now    = v.now()
		opts   = []tendermint.Option{tendermint.WithLogger(v.logger.With("client", clientID))}
	)

	switch msg := msg.(type) {
	case *tendermint.Header:
		if err := msg.ValidateBasic(); err != nil {
			return cs, nil, err
		}
		trusted, err := trustedConsensusState(reader, msg.TrustedHeight)
		if err != nil {
			return cs, nil, err
		}
		if err := tendermint.VerifyHeader(cs, trusted, msg, now, opts...); err != nil {
			return cs, nil, err
		}

		found, err := tendermint.CheckForMisbehaviour(reader, msg)
		if found {
			*misbehaviour = ErrMisbehaviour{ClientID: clientID, Height: msg.Height(), Reason: err}
			return cs.Freeze(), nil, nil
		}
		if err != nil {
			return cs, nil, err
		}

		next, consensus := tendermint.UpdateState(cs, msg)
		return next, []store.ConsensusEntry{{Height: msg.Height(), State: consensus}}, nil

	case *tendermint.Misbehaviour:
		if err := msg.ValidateBasic(); err != nil {
			return cs, nil, err
		}
		trusted1, err := trustedConsensusState(reader, msg.Header1.TrustedHeight)
		if err != nil {
			return cs, nil, err
		}
		trusted2, err := trustedConsensusState(reader, msg.Header2.TrustedHeight)
		if err != nil {
			return cs, nil, err
		}

		ok, err := tendermint.VerifyMisbehaviour(cs, trusted1, trusted2, msg, now, opts...)
		if err != nil {
			return cs, nil, err
		}
		if !ok {
			return cs, nil, fmt.Errorf("%w: %v", ErrMisbehaviourNotProven, msg)
		}
		return cs.Freeze(), nil, nil

	default:
		return cs, nil, fmt.Errorf("%w: %T for a tendermint client", ErrUnexpectedMessage, msg)
	}
}

func (v *Verifier) updateBeefy(cs beefy.ClientState, msg ClientMessage) (beefy.ClientState, error) {
	update, ok := msg.(*beefy.MmrUpdateProof)
	if !ok {
		return cs, fmt.Errorf("%w: %T does not update a beefy client", ErrUnexpectedMessage, msg)
	}
	return beefy.VerifyMmrRootWithProof(cs, update, beefy.WithLogger(v.logger))
}

// VerifyParachainHeaders verifies a batch of parachain headers against the
// MMR root of a BEEFY client. The client state is not changed.
func (v *Verifier) VerifyParachainHeaders(ctx context.Context, clientID string,
	proof *beefy.ParachainsUpdateProof) (map[crypto.Hash]*beefy.ParachainHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	headers, err := v.verifyParachainHeaders(clientID, proof)
	v.metrics.VerificationSeconds.With("client_type", types.Beefy.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		v.reject(clientID, types.Beefy, err)
		return nil, err
	}

	v.logger.Info("parachain headers verified", "client", clientID, "headers", len(headers))
	return headers, nil
}

func (v *Verifier) verifyParachainHeaders(clientID string,
	proof *beefy.ParachainsUpdateProof) (map[crypto.Hash]*beefy.ParachainHeader, error) {
	current, err := v.arena.Store().ClientState(clientID)
	if err != nil {
		return nil, err
	}
	cs, ok := current.(beefy.ClientState)
	if !ok {
		return nil, fmt.Errorf("%w: parachain headers for %s client %s",
			ErrUnexpectedMessage, current.ClientType(), clientID)
	}
	return beefy.VerifyParachainHeaders(cs, proof, beefy.WithLogger(v.logger.With("client", clientID)))
}

// CheckForMisbehaviour checks a tendermint client message against the
// consensus states trusted by clientID without verifying its signatures.
func (v *Verifier) CheckForMisbehaviour(clientID string, msg tendermint.ClientMessage) (bool, error) {
	return tendermint.CheckForMisbehaviour(v.arena.Store().ConsensusReader(clientID), msg)
}

func (v *Verifier) reject(clientID string, clientType types.ClientType, err error) {
	kind := Classify(err)
	v.metrics.Rejections.With("client_type", clientType.String(), "kind", kind.String()).Add(1)

	switch kind {
	case KindStaleness:
		v.logger.Debug("skipping stale client message", "client", clientID, "err", err)
	case KindStructural:
		v.logger.Error("client message violates client structure", "client", clientID, "err", err)
	default:
		v.logger.Info("client message rejected", "client", clientID, "kind", kind, "err", err)
	}
}

func trustedConsensusState(reader tendermint.ConsensusStateReader, h types.Height) (tendermint.ConsensusState, error) {
	cs, ok, err := reader.ConsensusState(h)
	if err != nil {
		return tendermint.ConsensusState{}, err
	}
	if !ok {
		return tendermint.ConsensusState{}, fmt.Errorf("%w: no consensus state at %v", tendermint.ErrInvalidTrustedHeight, h)
	}
	return cs, nil
}

func asClientState(cs store.ClientState) (ClientState, error) {
	res, ok := cs.(ClientState)
	if !ok {
		return nil, fmt.Errorf("%w: %T", store.ErrUnknownClientType, cs)
	}
	return res, nil
}

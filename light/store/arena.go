package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tendermint/ibclight/types"
)

// UpdateFunc computes the next state of a client from its current state.
// Returning a nil state leaves the client untouched.
type UpdateFunc func(current ClientState) (next ClientState, consensus []ConsensusEntry, err error)

// Arena owns the client states of a Store. Updates of one client id are
// serialized while different clients update in parallel.
type Arena struct {
	store *Store

	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

// NewArena returns an Arena writing through to s.
func NewArena(s *Store) *Arena {
	return &Arena{
		store: s,
		locks: make(map[string]*sync.Mutex),
	}
}

// Store returns the underlying store.
func (a *Arena) Store() *Store {
	return a.store
}

func (a *Arena) lock(clientID string) *sync.Mutex {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	l, ok := a.locks[clientID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[clientID] = l
	}
	return l
}

// Update reads the state of clientID, applies fn and writes the result back,
// holding the client lock throughout. The write is a compare-and-swap on the
// latest height read, so a writer bypassing the arena is detected with
// ErrConcurrentUpdate.
func (a *Arena) Update(ctx context.Context, clientID string, fn UpdateFunc) (ClientState, error) {
	l := a.lock(clientID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := a.store.ClientState(clientID)
	if err != nil {
		return nil, err
	}

	next, consensus, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	if err := a.store.CompareAndSwapClientState(clientID, current.GetLatestHeight(), next, consensus...); err != nil {
		return nil, err
	}
	return next, nil
}

// Create stores the initial state of clientID. It fails with
// ErrClientExists if the client already has a state.
func (a *Arena) Create(clientID string, cs ClientState, consensus ...ConsensusEntry) error {
	l := a.lock(clientID)
	l.Lock()
	defer l.Unlock()

	_, err := a.store.ClientState(clientID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrClientExists, clientID)
	case !errors.Is(err, ErrClientNotFound):
		return err
	}
	return a.store.CompareAndSwapClientState(clientID, types.ZeroHeight, cs, consensus...)
}

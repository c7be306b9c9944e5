// Package store persists light client states by client id.
//
// Client states of every client type are kept in one tm-db database under
// orderedcode keys, so consensus states of a client iterate in height order.
// Values are CBOR envelopes tagged with the client type.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/ibclight/light/beefy"
	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

var (
	// ErrClientNotFound is returned when no state is stored for a client id.
	ErrClientNotFound = errors.New("client state not found")
	// ErrConcurrentUpdate is returned by CompareAndSwapClientState when the
	// stored latest height is not the expected one.
	ErrConcurrentUpdate = errors.New("client state was updated concurrently")
	// ErrClientExists is returned when creating a client that already has a
	// state.
	ErrClientExists = errors.New("client already exists")
	// ErrUnknownClientType is returned for states of an unsupported type.
	ErrUnknownClientType = errors.New("unknown client type")
)

const (
	prefixClientState    = int64(1)
	prefixConsensusState = int64(2)
)

// ClientState is the part of a client state the store needs to know about.
// The stored value is a tendermint.ClientState or a beefy.ClientState.
type ClientState interface {
	ClientType() types.ClientType
	GetLatestHeight() types.Height
}

// ConsensusEntry is a consensus state to store with a client state.
type ConsensusEntry struct {
	Height types.Height
	State  tendermint.ConsensusState
}

// Store keeps client states and tendermint consensus states. All methods are
// safe for concurrent use.
type Store struct {
	db dbm.DB

	// serializes CompareAndSwapClientState
	mtx sync.Mutex
}

// New returns a Store on top of db.
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// SaveClientState stores cs under clientID, replacing any previous state.
func (s *Store) SaveClientState(clientID string, cs ClientState) error {
	bz, err := encodeClientState(cs)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.db.SetSync(clientStateKey(clientID), bz)
}

// ClientState loads the state of clientID. It returns ErrClientNotFound if
// there is none.
func (s *Store) ClientState(clientID string) (ClientState, error) {
	bz, err := s.db.Get(clientStateKey(clientID))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	cs, err := decodeClientState(bz)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", clientID, err)
	}
	return cs, nil
}

// CompareAndSwapClientState stores cs and the consensus entries in one batch
// if the latest height of the stored state equals expected. A zero expected
// height matches a missing state. ErrConcurrentUpdate is returned otherwise.
func (s *Store) CompareAndSwapClientState(clientID string, expected types.Height, cs ClientState,
	consensus ...ConsensusEntry) error {
	bz, err := encodeClientState(cs)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	current, err := s.ClientState(clientID)
	switch {
	case errors.Is(err, ErrClientNotFound):
		if !expected.IsZero() {
			return fmt.Errorf("%w: %s has no state, expected height %v", ErrConcurrentUpdate, clientID, expected)
		}
	case err != nil:
		return err
	case !current.GetLatestHeight().EQ(expected):
		return fmt.Errorf("%w: %s is at %v, expected %v",
			ErrConcurrentUpdate, clientID, current.GetLatestHeight(), expected)
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Set(clientStateKey(clientID), bz); err != nil {
		return err
	}
	for _, entry := range consensus {
		cbz, err := encodeConsensusState(entry.State)
		if err != nil {
			return err
		}
		if err := b.Set(consensusStateKey(clientID, entry.Height), cbz); err != nil {
			return err
		}
	}
	return b.WriteSync()
}

// SaveConsensusState stores the consensus state of clientID at h.
func (s *Store) SaveConsensusState(clientID string, h types.Height, cs tendermint.ConsensusState) error {
	bz, err := encodeConsensusState(cs)
	if err != nil {
		return err
	}
	return s.db.SetSync(consensusStateKey(clientID, h), bz)
}

// ConsensusState loads the consensus state of clientID at h. The boolean
// result is false if there is none.
func (s *Store) ConsensusState(clientID string, h types.Height) (tendermint.ConsensusState, bool, error) {
	bz, err := s.db.Get(consensusStateKey(clientID, h))
	if err != nil || len(bz) == 0 {
		return tendermint.ConsensusState{}, false, err
	}
	cs, err := decodeConsensusState(bz)
	if err != nil {
		return tendermint.ConsensusState{}, false, err
	}
	return cs, true, nil
}

// PrevConsensusState returns the consensus state of clientID at the greatest
// height below h.
func (s *Store) PrevConsensusState(clientID string, h types.Height) (tendermint.ConsensusState, bool, error) {
	itr, err := s.db.ReverseIterator(consensusStatePrefix(clientID), consensusStateKey(clientID, h))
	if err != nil {
		return tendermint.ConsensusState{}, false, err
	}
	return firstConsensusState(itr)
}

// NextConsensusState returns the consensus state of clientID at the lowest
// height above h.
func (s *Store) NextConsensusState(clientID string, h types.Height) (tendermint.ConsensusState, bool, error) {
	// orderedcode keys are prefix free: nothing sorts between key and key+0x00
	start := append(consensusStateKey(clientID, h), 0x00)
	itr, err := s.db.Iterator(start, prefixEnd(consensusStatePrefix(clientID)))
	if err != nil {
		return tendermint.ConsensusState{}, false, err
	}
	return firstConsensusState(itr)
}

// ConsensusHeights returns the heights of the consensus states of clientID
// in ascending order.
func (s *Store) ConsensusHeights(clientID string) ([]types.Height, error) {
	prefix := consensusStatePrefix(clientID)
	itr, err := s.db.Iterator(prefix, prefixEnd(prefix))
	if err != nil {
		return nil, err
	}
	defer itr.Close()

	var heights []types.Height
	for ; itr.Valid(); itr.Next() {
		id, h, err := parseConsensusStateKey(itr.Key())
		if err != nil {
			return nil, err
		}
		if id != clientID {
			return nil, fmt.Errorf("consensus state of %s under the prefix of %s", id, clientID)
		}
		heights = append(heights, h)
	}
	return heights, itr.Error()
}

// ConsensusReader returns the consensus states of clientID as a
// tendermint.ConsensusStateReader.
func (s *Store) ConsensusReader(clientID string) tendermint.ConsensusStateReader {
	return consensusReader{store: s, clientID: clientID}
}

type consensusReader struct {
	store    *Store
	clientID string
}

func (r consensusReader) ConsensusState(h types.Height) (tendermint.ConsensusState, bool, error) {
	return r.store.ConsensusState(r.clientID, h)
}

func (r consensusReader) PrevConsensusState(h types.Height) (tendermint.ConsensusState, bool, error) {
	return r.store.PrevConsensusState(r.clientID, h)
}

func (r consensusReader) NextConsensusState(h types.Height) (tendermint.ConsensusState, bool, error) {
	return r.store.NextConsensusState(r.clientID, h)
}

func firstConsensusState(itr dbm.Iterator) (tendermint.ConsensusState, bool, error) {
	defer itr.Close()

	if !itr.Valid() {
		return tendermint.ConsensusState{}, false, itr.Error()
	}
	cs, err := decodeConsensusState(itr.Value())
	if err != nil {
		return tendermint.ConsensusState{}, false, err
	}
	return cs, true, nil
}

//-----------------------------------------------------------------------------
// keys

func clientStateKey(clientID string) []byte {
	key, err := orderedcode.Append(nil, prefixClientState, clientID)
	if err != nil {
		panic(err)
	}
	return key
}

func consensusStatePrefix(clientID string) []byte {
	key, err := orderedcode.Append(nil, prefixConsensusState, clientID)
	if err != nil {
		panic(err)
	}
	return key
}

func consensusStateKey(clientID string, h types.Height) []byte {
	key, err := orderedcode.Append(nil, prefixConsensusState, clientID, h.RevisionNumber, h.RevisionHeight)
	if err != nil {
		panic(err)
	}
	return key
}

func parseConsensusStateKey(key []byte) (string, types.Height, error) {
	var (
		prefix   int64
		clientID string
		h        types.Height
	)
	remaining, err := orderedcode.Parse(string(key), &prefix, &clientID, &h.RevisionNumber, &h.RevisionHeight)
	if err != nil {
		return "", types.Height{}, err
	}
	if len(remaining) != 0 {
		return "", types.Height{}, fmt.Errorf("expected complete key but got remainder: %x", remaining)
	}
	if prefix != prefixConsensusState {
		return "", types.Height{}, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixConsensusState, prefix)
	}
	return clientID, h, nil
}

// prefixEnd returns the first key above every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

var (
	_ tendermint.ConsensusStateReader = consensusReader{}
	_ ClientState                     = tendermint.ClientState{}
	_ ClientState                     = beefy.ClientState{}
)

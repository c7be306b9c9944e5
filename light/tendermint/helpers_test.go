package tendermint_test

import (
	"bytes"
	"testing"
	"time"

	cmtproto "github.com/cometbft/cometbft/api/cometbft/types/v1"
	cmtversion "github.com/cometbft/cometbft/api/cometbft/version/v1"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/crypto/tmhash"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/cometbft/cometbft/version"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

const (
	chainID       = "testchain-1"
	maxClockDrift = 10 * time.Second
)

var bTime, _ = time.Parse(time.RFC3339, "2006-01-02T15:04:05Z")

// privKeys is a helper type for testing.
//
// It lets us simulate signing with many keys. The main use case is to create
// a set, and call GenSignedHeader to get properly signed header for testing.
type privKeys []cmtcrypto.PrivKey

// genPrivKeys produces an array of private keys to generate commits.
func genPrivKeys(n int) privKeys {
	res := make(privKeys, n)
	for i := range res {
		res[i] = cmted25519.GenPrivKey()
	}
	return res
}

// Extend adds n more keys (to remove, just take a slice).
func (pkz privKeys) Extend(n int) privKeys {
	extra := genPrivKeys(n)
	return append(pkz, extra...)
}

// ToValidators produces a valset from the set of keys.
// The first key has weight `init` and it increases by `inc` every step
// so we can have all the same weight, or a simple linear distribution
// (should be enough for testing).
func (pkz privKeys) ToValidators(init, inc int64) *cmttypes.ValidatorSet {
	res := make([]*cmttypes.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = cmttypes.NewValidator(k.PubKey(), init+int64(i)*inc)
	}
	return cmttypes.NewValidatorSet(res)
}

// WithPowers produces a valset where key i has powers[i].
func (pkz privKeys) WithPowers(powers ...int64) *cmttypes.ValidatorSet {
	res := make([]*cmttypes.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = cmttypes.NewValidator(k.PubKey(), powers[i])
	}
	return cmttypes.NewValidatorSet(res)
}

func valIndex(valSet *cmttypes.ValidatorSet, addr []byte) int {
	for i, val := range valSet.Validators {
		if bytes.Equal(val.Address, addr) {
			return i
		}
	}
	return -1
}

// signHeader properly signs the header with the keys whose indices are
// listed. With no indices every key signs.
func (pkz privKeys) signHeader(t testing.TB, header *cmttypes.Header, valSet *cmttypes.ValidatorSet, signers ...int) *cmttypes.Commit {
	t.Helper()

	commitSigs := make([]cmttypes.CommitSig, valSet.Size())
	for i := range commitSigs {
		commitSigs[i] = cmttypes.NewCommitSigAbsent()
	}

	blockID := cmttypes.BlockID{
		Hash:          header.Hash(),
		PartSetHeader: cmttypes.PartSetHeader{Total: 1, Hash: cmtcrypto.CRandBytes(32)},
	}

	if len(signers) == 0 {
		for i := range pkz {
			signers = append(signers, i)
		}
	}

	// Fill in the votes we want.
	for _, i := range signers {
		vote := makeVote(t, header, valSet, pkz[i], blockID)
		commitSigs[vote.ValidatorIndex] = vote.CommitSig()
	}

	return &cmttypes.Commit{
		Height:     header.Height,
		Round:      1,
		BlockID:    blockID,
		Signatures: commitSigs,
	}
}

func makeVote(t testing.TB, header *cmttypes.Header, valset *cmttypes.ValidatorSet, key cmtcrypto.PrivKey, blockID cmttypes.BlockID) *cmttypes.Vote {
	t.Helper()

	addr := key.PubKey().Address()
	idx := valIndex(valset, addr)
	require.GreaterOrEqual(t, idx, 0, "key is not in the validator set")

	vote := &cmttypes.Vote{
		ValidatorAddress: addr,
		ValidatorIndex:   int32(idx),
		Height:           header.Height,
		Round:            1,
		Timestamp:        header.Time.Add(time.Second),
		Type:             cmtproto.PrecommitType,
		BlockID:          blockID,
	}

	v := vote.ToProto()
	// Sign it
	signBytes := cmttypes.VoteSignBytes(header.ChainID, v)
	sig, err := key.Sign(signBytes)
	require.NoError(t, err)

	vote.Signature = sig

	return vote
}

func genHeader(chainID string, height int64, bTime time.Time,
	valset, nextValset *cmttypes.ValidatorSet, appHash []byte) *cmttypes.Header {

	return &cmttypes.Header{
		Version: cmtversion.Consensus{Block: version.BlockProtocol, App: 0},
		ChainID: chainID,
		Height:  height,
		Time:    bTime,
		// LastBlockID
		// LastCommitHash
		ValidatorsHash:     valset.Hash(),
		NextValidatorsHash: nextValset.Hash(),
		DataHash:           hash("data_hash"),
		AppHash:            appHash,
		ConsensusHash:      hash("cons_hash"),
		LastResultsHash:    hash("results_hash"),
		ProposerAddress:    valset.Validators[0].Address,
	}
}

// GenSignedHeader calls genHeader and signHeader and combines them into a SignedHeader.
func (pkz privKeys) GenSignedHeader(t testing.TB, chainID string, height int64, bTime time.Time,
	valset, nextValset *cmttypes.ValidatorSet, appHash []byte, signers ...int) *cmttypes.SignedHeader {
	t.Helper()

	header := genHeader(chainID, height, bTime, valset, nextValset, appHash)
	return &cmttypes.SignedHeader{
		Header: header,
		Commit: pkz.signHeader(t, header, valset, signers...),
	}
}

func hash(s string) []byte {
	return tmhash.Sum([]byte(s))
}

func height(h uint64) types.Height {
	return types.NewHeight(types.ParseChainID(chainID), h)
}

func newClientState(latest uint64) tendermint.ClientState {
	return tendermint.ClientState{
		ChainID:         chainID,
		TrustLevel:      tendermint.DefaultTrustLevel,
		TrustingPeriod:  3 * time.Hour,
		UnbondingPeriod: 4 * time.Hour,
		MaxClockDrift:   maxClockDrift,
		LatestHeight:    height(latest),
	}
}

// trustedState returns the consensus state committed to by a signed header.
func trustedState(sh *cmttypes.SignedHeader) tendermint.ConsensusState {
	return tendermint.ConsensusState{
		Timestamp:          sh.Time,
		Root:               sh.AppHash,
		NextValidatorsHash: sh.NextValidatorsHash,
	}
}

// memReader is an in-memory ConsensusStateReader.
type memReader map[uint64]tendermint.ConsensusState

func (r memReader) ConsensusState(h types.Height) (tendermint.ConsensusState, bool, error) {
	cs, ok := r[h.RevisionHeight]
	return cs, ok, nil
}

func (r memReader) PrevConsensusState(h types.Height) (tendermint.ConsensusState, bool, error) {
	var (
		best  uint64
		found bool
	)
	for k := range r {
		if k < h.RevisionHeight && (!found || k > best) {
			best, found = k, true
		}
	}
	return r[best], found, nil
}

func (r memReader) NextConsensusState(h types.Height) (tendermint.ConsensusState, bool, error) {
	var (
		best  uint64
		found bool
	)
	for k := range r {
		if k > h.RevisionHeight && (!found || k < best) {
			best, found = k, true
		}
	}
	return r[best], found, nil
}

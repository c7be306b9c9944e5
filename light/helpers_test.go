package light_test

import (
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

const chainID = "test-chain-1"

var bTime = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

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

// ChangeKeys replaces the first delta keys with new ones.
func (pkz privKeys) ChangeKeys(delta int) privKeys {
	newKeys := pkz[delta:]
	return newKeys.Extend(delta)
}

// ToValidators produces a valset from the set of keys.
func (pkz privKeys) ToValidators(power int64) *cmttypes.ValidatorSet {
	res := make([]*cmttypes.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = cmttypes.NewValidator(k.PubKey(), power)
	}
	return cmttypes.NewValidatorSet(res)
}

// signHeader signs the header with every key.
func (pkz privKeys) signHeader(t testing.TB, header *cmttypes.Header, valSet *cmttypes.ValidatorSet) *cmttypes.Commit {
	t.Helper()

	blockID := cmttypes.BlockID{
		Hash:          header.Hash(),
		PartSetHeader: cmttypes.PartSetHeader{Total: 1, Hash: cmtcrypto.CRandBytes(32)},
	}

	commitSigs := make([]cmttypes.CommitSig, valSet.Size())
	for _, key := range pkz {
		addr := key.PubKey().Address()
		idx, _ := valSet.GetByAddress(addr)
		require.GreaterOrEqual(t, idx, int32(0), "key is not in the validator set")

		vote := &cmttypes.Vote{
			ValidatorAddress: addr,
			ValidatorIndex:   idx,
			Height:           header.Height,
			Round:            1,
			Timestamp:        header.Time.Add(time.Second),
			Type:             cmtproto.PrecommitType,
			BlockID:          blockID,
		}
		sig, err := key.Sign(cmttypes.VoteSignBytes(header.ChainID, vote.ToProto()))
		require.NoError(t, err)
		vote.Signature = sig
		commitSigs[idx] = vote.CommitSig()
	}

	return &cmttypes.Commit{
		Height:     header.Height,
		Round:      1,
		BlockID:    blockID,
		Signatures: commitSigs,
	}
}

// GenSignedHeader returns a header at height signed by all of pkz.
func (pkz privKeys) GenSignedHeader(t testing.TB, height int64, bTime time.Time,
	valset, nextValset *cmttypes.ValidatorSet, appHash []byte) *cmttypes.SignedHeader {
	t.Helper()

	header := &cmttypes.Header{
		Version:            cmtversion.Consensus{Block: version.BlockProtocol, App: 0},
		ChainID:            chainID,
		Height:             height,
		Time:               bTime,
		ValidatorsHash:     valset.Hash(),
		NextValidatorsHash: nextValset.Hash(),
		DataHash:           hash("data_hash"),
		AppHash:            appHash,
		ConsensusHash:      hash("cons_hash"),
		LastResultsHash:    hash("results_hash"),
		ProposerAddress:    valset.Validators[0].Address,
	}
	return &cmttypes.SignedHeader{
		Header: header,
		Commit: pkz.signHeader(t, header, valset),
	}
}

// chain is a generated tendermint chain whose validator set changes by one
// key every block.
type chain struct {
	headers map[int64]*cmttypes.SignedHeader
	vals    map[int64]*cmttypes.ValidatorSet
	keys    map[int64]privKeys
}

// genChain generates numBlocks headers one minute apart.
func genChain(t testing.TB, numBlocks int64, valSize int) chain {
	t.Helper()

	var (
		c = chain{
			headers: make(map[int64]*cmttypes.SignedHeader, numBlocks),
			vals:    make(map[int64]*cmttypes.ValidatorSet, numBlocks+1),
			keys:    make(map[int64]privKeys, numBlocks+1),
		}
		keys = genPrivKeys(valSize)
	)
	for height := int64(1); height <= numBlocks; height++ {
		newKeys := keys.ChangeKeys(1)
		c.keys[height] = keys
		c.vals[height] = keys.ToValidators(10)
		c.headers[height] = keys.GenSignedHeader(t, height, bTime.Add(time.Duration(height)*time.Minute),
			c.vals[height], newKeys.ToValidators(10), hash("app_hash"))
		keys = newKeys
	}
	c.keys[numBlocks+1] = keys
	c.vals[numBlocks+1] = keys.ToValidators(10)
	return c
}

// fork returns a header at height signed by the validators of the chain
// that commits to another app hash at time t.
func (c chain) fork(t testing.TB, height, trustedHeight int64, blockTime time.Time) *tendermint.Header {
	t.Helper()

	sh := c.keys[height].GenSignedHeader(t, height, blockTime, c.vals[height], c.vals[height+1], hash("fork_app_hash"))
	return &tendermint.Header{
		SignedHeader:      sh,
		ValidatorSet:      c.vals[height],
		TrustedHeight:     tmHeight(uint64(trustedHeight)),
		TrustedValidators: c.vals[trustedHeight+1],
	}
}

// header returns the client message for height trusting trustedHeight.
func (c chain) header(height, trustedHeight int64) *tendermint.Header {
	return &tendermint.Header{
		SignedHeader:      c.headers[height],
		ValidatorSet:      c.vals[height],
		TrustedHeight:     tmHeight(uint64(trustedHeight)),
		TrustedValidators: c.vals[trustedHeight+1],
	}
}

func (c chain) consensusState(height int64) tendermint.ConsensusState {
	sh := c.headers[height]
	return tendermint.ConsensusState{
		Timestamp:          sh.Time,
		Root:               sh.AppHash,
		NextValidatorsHash: sh.NextValidatorsHash,
	}
}

func tmHeight(h uint64) types.Height {
	return types.NewHeight(types.ParseChainID(chainID), h)
}

func tmClientState(latest uint64) tendermint.ClientState {
	return tendermint.ClientState{
		ChainID:         chainID,
		TrustLevel:      tendermint.DefaultTrustLevel,
		TrustingPeriod:  3 * time.Hour,
		UnbondingPeriod: 4 * time.Hour,
		MaxClockDrift:   10 * time.Second,
		LatestHeight:    tmHeight(latest),
	}
}

func hash(s string) []byte {
	return tmhash.Sum([]byte(s))
}

package tendermint_test

import (
	"testing"
	"time"

	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

func TestVerifyAdjacentHeaders(t *testing.T) {
	const (
		lastHeight = 1
		nextHeight = 2
	)

	var (
		keys    = genPrivKeys(4)
		vals    = keys.ToValidators(20, 10)
		extKeys = keys.Extend(1)
		header  = keys.GenSignedHeader(t, chainID, lastHeight, bTime, vals, vals, hash("app_hash"))
		trusted = trustedState(header)
		cs      = newClientState(lastHeight)
		now     = bTime.Add(2 * time.Hour)
	)

	newHeader := func(sh *cmttypes.SignedHeader, newVals *cmttypes.ValidatorSet) *tendermint.Header {
		return &tendermint.Header{
			SignedHeader:      sh,
			ValidatorSet:      newVals,
			TrustedHeight:     height(lastHeight),
			TrustedValidators: vals,
		}
	}

	testCases := []struct {
		name       string
		header     *tendermint.Header
		now        time.Time
		expErr     error
		expErrText string
	}{
		{
			"valid adjacent header",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(1*time.Hour), vals, vals,
				hash("app_hash")), vals),
			now, nil, "",
		},
		{
			"different chain id",
			newHeader(keys.GenSignedHeader(t, "otherchain-1", nextHeight, bTime.Add(1*time.Hour), vals, vals,
				hash("app_hash")), vals),
			now, nil, "header belongs to another chain",
		},
		{
			"new header's time is before old header's time",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(-1*time.Hour), vals, vals,
				hash("app_hash")), vals),
			now, nil, "to be after old header time",
		},
		{
			"new header's time is from the future",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(3*time.Hour), vals, vals,
				hash("app_hash")), vals),
			now, nil, "new header has a time from the future",
		},
		{
			"new header's time is from the future, but it's acceptable (< maxClockDrift)",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight,
				bTime.Add(2*time.Hour).Add(maxClockDrift).Add(-1*time.Millisecond), vals, vals,
				hash("app_hash")), vals),
			now, nil, "",
		},
		{
			"3/3 signed, but the validator set is different",
			newHeader(extKeys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(1*time.Hour),
				extKeys.ToValidators(50, 50), vals, hash("app_hash")), keys.ToValidators(50, 50)),
			now, nil, "to match those that were supplied",
		},
		{
			"trusted period expired",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(1*time.Hour), vals, vals,
				hash("app_hash")), vals),
			bTime.Add(4 * time.Hour), nil, "old header has expired",
		},
		{
			"2/3 signed",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(1*time.Hour), vals, vals,
				hash("app_hash"), 1, 2, 3), vals),
			now, nil, "",
		},
		{
			"less than 2/3 signed",
			newHeader(keys.GenSignedHeader(t, chainID, nextHeight, bTime.Add(1*time.Hour), vals, vals,
				hash("app_hash"), 0, 1, 2), vals),
			now, tendermint.ErrInsufficientVotingPower, "",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tendermint.VerifyHeader(cs, trusted, tc.header, tc.now)
			switch {
			case tc.expErr != nil:
				require.ErrorIs(t, err, tc.expErr)
			case tc.expErrText != "":
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.expErrText)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestVerifyAdjacentRequiresTrustedNextValidators(t *testing.T) {
	var (
		keys    = genPrivKeys(4)
		vals    = keys.ToValidators(10, 0)
		newKeys = genPrivKeys(4)
		newVals = newKeys.ToValidators(10, 0)
		header  = keys.GenSignedHeader(t, chainID, 1, bTime, vals, vals, hash("app_hash"))
		cs      = newClientState(1)
	)

	// the new set is fully signed but the trusted state committed to another
	// next set
	sh := newKeys.GenSignedHeader(t, chainID, 2, bTime.Add(time.Hour), newVals, newVals, hash("app_hash"))
	h := &tendermint.Header{SignedHeader: sh, ValidatorSet: newVals, TrustedHeight: height(1), TrustedValidators: vals}

	err := tendermint.VerifyHeader(cs, trustedState(header), h, bTime.Add(2*time.Hour))
	var invalid tendermint.ErrInvalidHeader
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "expected old header next validators")
}

func TestVerifyNonAdjacentHeaders(t *testing.T) {
	var (
		keys    = genPrivKeys(5)
		vals    = keys.ToValidators(10, 0)
		header  = keys.GenSignedHeader(t, chainID, 1, bTime, vals, vals, hash("app_hash"))
		trusted = trustedState(header)
		cs      = newClientState(1)
		now     = bTime.Add(2 * time.Hour)

		// 3/5 of the old validators remain
		lessKeys = keys[2:].Extend(2)
		lessVals = lessKeys.ToValidators(10, 0)

		// 1/5 of the old validators remain
		fewKeys = keys[4:].Extend(4)
		fewVals = fewKeys.ToValidators(10, 0)
	)

	newHeader := func(sh *cmttypes.SignedHeader, newVals *cmttypes.ValidatorSet) *tendermint.Header {
		return &tendermint.Header{
			SignedHeader:      sh,
			ValidatorSet:      newVals,
			TrustedHeight:     height(1),
			TrustedValidators: vals,
		}
	}

	testCases := []struct {
		name   string
		header *tendermint.Header
		expErr error
	}{
		{
			"same validators, 3/3 signed",
			newHeader(keys.GenSignedHeader(t, chainID, 3, bTime.Add(time.Hour), vals, vals, hash("app_hash")), vals),
			nil,
		},
		{
			"different validators, more than 1/3 of old validators signed",
			newHeader(lessKeys.GenSignedHeader(t, chainID, 10, bTime.Add(time.Hour), lessVals, lessVals, hash("app_hash")), lessVals),
			nil,
		},
		{
			"different validators, less than 1/3 of old validators signed",
			newHeader(fewKeys.GenSignedHeader(t, chainID, 10, bTime.Add(time.Hour), fewVals, fewVals, hash("app_hash")), fewVals),
			tendermint.ErrInsufficientVotingPower,
		},
		{
			"trusted height above header height",
			&tendermint.Header{
				SignedHeader:      keys.GenSignedHeader(t, chainID, 3, bTime.Add(time.Hour), vals, vals, hash("app_hash")),
				ValidatorSet:      vals,
				TrustedHeight:     height(4),
				TrustedValidators: vals,
			},
			tendermint.ErrInvalidTrustedHeight,
		},
		{
			"trusted height of another revision",
			&tendermint.Header{
				SignedHeader:      keys.GenSignedHeader(t, chainID, 3, bTime.Add(time.Hour), vals, vals, hash("app_hash")),
				ValidatorSet:      vals,
				TrustedHeight:     types.NewHeight(0, 1),
				TrustedValidators: vals,
			},
			tendermint.ErrInvalidTrustedHeight,
		},
		{
			"missing validator set",
			&tendermint.Header{
				SignedHeader:      keys.GenSignedHeader(t, chainID, 3, bTime.Add(time.Hour), vals, vals, hash("app_hash")),
				TrustedHeight:     height(1),
				TrustedValidators: vals,
			},
			tendermint.ErrMissingHeaderField,
		},
		{
			"missing commit",
			newHeader(&cmttypes.SignedHeader{Header: genHeader(chainID, 3, bTime.Add(time.Hour), vals, vals, hash("app_hash"))}, vals),
			tendermint.ErrMissingHeaderField,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tendermint.VerifyHeader(cs, trusted, tc.header, now)
			if tc.expErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.expErr)
		})
	}
}

func TestVerifyHeaderTrustedValidatorsMismatch(t *testing.T) {
	var (
		keys   = genPrivKeys(4)
		vals   = keys.ToValidators(10, 0)
		header = keys.GenSignedHeader(t, chainID, 1, bTime, vals, vals, hash("app_hash"))
		other  = genPrivKeys(4).ToValidators(10, 0)
	)

	sh := keys.GenSignedHeader(t, chainID, 3, bTime.Add(time.Hour), vals, vals, hash("app_hash"))
	h := &tendermint.Header{SignedHeader: sh, ValidatorSet: vals, TrustedHeight: height(1), TrustedValidators: other}

	err := tendermint.VerifyHeader(newClientState(1), trustedState(header), h, bTime.Add(2*time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not hash to latest trusted validators")
}

func TestVerifyHeaderFrozenClient(t *testing.T) {
	var (
		keys   = genPrivKeys(4)
		vals   = keys.ToValidators(10, 0)
		header = keys.GenSignedHeader(t, chainID, 1, bTime, vals, vals, hash("app_hash"))
		sh     = keys.GenSignedHeader(t, chainID, 2, bTime.Add(time.Hour), vals, vals, hash("app_hash"))
		h      = &tendermint.Header{SignedHeader: sh, ValidatorSet: vals, TrustedHeight: height(1), TrustedValidators: vals}
	)

	cs := newClientState(1).Freeze()
	require.True(t, cs.IsFrozen())

	err := tendermint.VerifyHeader(cs, trustedState(header), h, bTime.Add(2*time.Hour))
	require.ErrorIs(t, err, tendermint.ErrClientFrozen)
}

func TestUpdateState(t *testing.T) {
	var (
		keys = genPrivKeys(4)
		vals = keys.ToValidators(10, 0)
		sh   = keys.GenSignedHeader(t, chainID, 7, bTime, vals, vals, hash("app_hash"))
		h    = &tendermint.Header{SignedHeader: sh, ValidatorSet: vals, TrustedHeight: height(1), TrustedValidators: vals}
	)

	cs, cons := tendermint.UpdateState(newClientState(5), h)
	assert.Equal(t, height(7), cs.LatestHeight)
	assert.Equal(t, trustedState(sh), cons)

	// an older header does not lower the latest height
	cs, _ = tendermint.UpdateState(newClientState(9), h)
	assert.Equal(t, height(9), cs.LatestHeight)
}

func TestClientStateValidateBasic(t *testing.T) {
	testCases := []struct {
		name     string
		malleate func(cs *tendermint.ClientState)
		expPass  bool
	}{
		{"valid", func(cs *tendermint.ClientState) {}, true},
		{"empty chain id", func(cs *tendermint.ClientState) { cs.ChainID = "" }, false},
		{"trust level too low", func(cs *tendermint.ClientState) { cs.TrustLevel.Denominator = 4 }, false},
		{"zero trusting period", func(cs *tendermint.ClientState) { cs.TrustingPeriod = 0 }, false},
		{"trusting period above unbonding", func(cs *tendermint.ClientState) { cs.TrustingPeriod = 5 * time.Hour }, false},
		{"zero clock drift", func(cs *tendermint.ClientState) { cs.MaxClockDrift = 0 }, false},
		{"zero latest height", func(cs *tendermint.ClientState) { cs.LatestHeight = height(0) }, false},
		{"revision mismatch", func(cs *tendermint.ClientState) { cs.LatestHeight = types.NewHeight(2, 5) }, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := newClientState(5)
			tc.malleate(&cs)
			err := cs.ValidateBasic()
			if tc.expPass {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tendermint.ErrInvalidClientState)
			}
		})
	}
}

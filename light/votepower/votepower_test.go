package votepower_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	ibcmath "github.com/tendermint/ibclight/libs/math"
	"github.com/tendermint/ibclight/light/votepower"
)

func TestQuorumReached(t *testing.T) {
	testCases := []struct {
		total, participating uint64
		want                 bool
	}{
		{0, 0, false},
		{3, 2, false},
		{3, 3, true},
		{30, 20, false},
		{30, 21, true},
		{31, 21, true},
		{100, 66, false},
		{100, 67, true},
		{math.MaxUint64, math.MaxUint64, true},
		{math.MaxUint64, math.MaxUint64 / 3 * 2, false},
		{math.MaxUint64, math.MaxUint64/3*2 + 1, true},
	}

	for i, tc := range testCases {
		assert.Equal(t, tc.want, votepower.QuorumReached(tc.total, tc.participating), "#%d %d/%d", i, tc.participating, tc.total)
	}
}

func TestNeeded(t *testing.T) {
	for _, total := range []uint64{1, 2, 3, 10, 30, 31, 100, math.MaxUint64} {
		needed := votepower.Needed(total)
		assert.True(t, votepower.QuorumReached(total, needed), "total %d", total)
		assert.False(t, votepower.QuorumReached(total, needed-1), "total %d", total)
	}
}

func TestTrustLevelReached(t *testing.T) {
	oneThird := ibcmath.Fraction{Numerator: 1, Denominator: 3}
	assert.False(t, votepower.TrustLevelReached(30, 10, oneThird))
	assert.True(t, votepower.TrustLevelReached(30, 11, oneThird))
	assert.True(t, votepower.TrustLevelReached(math.MaxUint64, math.MaxUint64, oneThird))
}

func TestTallyDuplicates(t *testing.T) {
	tally := votepower.NewTally(4)
	require.NoError(t, tally.Add(votepower.Signer{Index: 1, Power: 10}))
	require.NoError(t, tally.Add(votepower.Signer{Index: 2, Power: 5}))

	err := tally.Add(votepower.Signer{Index: 1, Power: 10})
	require.ErrorIs(t, err, votepower.ErrDuplicateVote)
	var dup votepower.DuplicateVoteError
	require.ErrorAs(t, err, &dup)
	assert.EqualValues(t, 1, dup.Index)

	assert.EqualValues(t, 15, tally.Power())
	assert.EqualValues(t, 2, tally.Count())
	assert.True(t, tally.Seen(2))
	assert.False(t, tally.Seen(3))

	// indices beyond the initial size grow the set
	require.NoError(t, tally.Add(votepower.Signer{Index: 100, Power: 1}))
	assert.True(t, tally.Seen(100))
}

func TestTallyOverflow(t *testing.T) {
	tally := votepower.NewTally(2)
	require.NoError(t, tally.Add(votepower.Signer{Index: 0, Power: math.MaxUint64}))
	err := tally.Add(votepower.Signer{Index: 1, Power: 1})
	require.ErrorIs(t, err, ibcmath.ErrOverflowUint64)
	assert.False(t, tally.Seen(1))
	assert.EqualValues(t, uint64(math.MaxUint64), tally.Power())
}

func TestAccumulate(t *testing.T) {
	power, err := votepower.Accumulate([]votepower.Signer{{Index: 0, Power: 1}, {Index: 1, Power: 2}, {Index: 2, Power: 3}})
	require.NoError(t, err)
	assert.EqualValues(t, 6, power)

	power, err = votepower.Accumulate([]votepower.Signer{{Index: 0, Power: 1}, {Index: 1, Power: 2}, {Index: 0, Power: 1}})
	require.ErrorIs(t, err, votepower.ErrDuplicateVote)
	assert.EqualValues(t, 3, power)
}

func TestQuorumMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint64().Draw(t, "total").(uint64)
		a := rapid.Uint64Range(0, total).Draw(t, "a").(uint64)
		b := rapid.Uint64Range(a, total).Draw(t, "b").(uint64)
		if votepower.QuorumReached(total, a) && !votepower.QuorumReached(total, b) {
			t.Fatalf("quorum reached with %d but not with %d of %d", a, b, total)
		}
	})
}

func TestAccumulateOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		powers := rapid.SliceOfN(rapid.Uint64Range(0, 1<<40), 0, 50).Draw(t, "powers").([]uint64)
		signers := make([]votepower.Signer, len(powers))
		for i, p := range powers {
			signers[i] = votepower.Signer{Index: uint(i), Power: p}
		}
		shuffled := append([]votepower.Signer(nil), signers...)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := rapid.IntRange(0, i).Draw(t, "j").(int)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}

		p1, err := votepower.Accumulate(signers)
		if err != nil {
			t.Fatal(err)
		}
		p2, err := votepower.Accumulate(shuffled)
		if err != nil {
			t.Fatal(err)
		}
		if p1 != p2 {
			t.Fatalf("order changed power: %d vs %d", p1, p2)
		}
	})
}

func TestDuplicatesNeverIncreasePower(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n").(int)
		tally := votepower.NewTally(uint(n))
		for i := 0; i < n; i++ {
			_ = tally.Add(votepower.Signer{Index: uint(i), Power: uint64(i + 1)})
		}
		before := tally.Power()

		idx := rapid.IntRange(0, n-1).Draw(t, "dup").(int)
		err := tally.Add(votepower.Signer{Index: uint(idx), Power: 1000})
		if err == nil {
			t.Fatal("duplicate accepted")
		}
		if tally.Power() != before {
			t.Fatalf("duplicate changed power from %d to %d", before, tally.Power())
		}
	})
}

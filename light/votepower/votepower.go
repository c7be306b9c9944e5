// Package votepower accumulates voting power of the signers of a commitment
// and decides whether a supermajority or a trust level was reached.
package votepower

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	ibcmath "github.com/tendermint/ibclight/libs/math"
)

// ErrDuplicateVote is returned when the same signer is counted twice.
var ErrDuplicateVote = errors.New("duplicate vote")

// DuplicateVoteError names the signer index that voted twice.
type DuplicateVoteError struct {
	Index uint
}

func (e DuplicateVoteError) Error() string {
	return fmt.Sprintf("duplicate vote from signer #%d", e.Index)
}

func (e DuplicateVoteError) Is(target error) bool {
	return target == ErrDuplicateVote
}

// Signer is a participant's position in its set and its voting power.
type Signer struct {
	Index uint
	Power uint64
}

// Tally sums the power of distinct signers.
type Tally struct {
	seen  *bitset.BitSet
	power uint64
	count uint
}

// NewTally returns a tally sized for a set of size signers. The set grows if
// larger indices are added.
func NewTally(size uint) *Tally {
	return &Tally{seen: bitset.New(size)}
}

// Add counts the signer. A signer that was already counted is rejected and
// its power is not added again.
func (t *Tally) Add(s Signer) error {
	if t.seen.Test(s.Index) {
		return DuplicateVoteError{Index: s.Index}
	}
	sum, err := ibcmath.SafeAddUint64(t.power, s.Power)
	if err != nil {
		return err
	}
	t.seen.Set(s.Index)
	t.power = sum
	t.count++
	return nil
}

// Seen reports whether the signer index has been counted.
func (t *Tally) Seen(index uint) bool {
	return t.seen.Test(index)
}

// Power returns the accumulated power.
func (t *Tally) Power() uint64 {
	return t.power
}

// Count returns the number of distinct signers.
func (t *Tally) Count() uint {
	return t.count
}

// Accumulate sums the power of signers. It stops at the first duplicate and
// returns the power accumulated so far together with the error.
func Accumulate(signers []Signer) (uint64, error) {
	t := NewTally(uint(len(signers)))
	for _, s := range signers {
		if err := t.Add(s); err != nil {
			return t.Power(), err
		}
	}
	return t.Power(), nil
}

// QuorumReached reports whether participating is strictly more than two
// thirds of total.
func QuorumReached(total, participating uint64) bool {
	// participating/1 > 2/3 * total  <=>  participating*3 > total*2
	return ibcmath.GreaterRatio(participating, 2, total, 3)
}

// TrustLevelReached reports whether participating is strictly more than
// trustLevel of total.
func TrustLevelReached(total, participating uint64, trustLevel ibcmath.Fraction) bool {
	// participating*den > total*num
	return ibcmath.GreaterRatio(participating, trustLevel.Numerator, total, trustLevel.Denominator)
}

// Needed returns the smallest power that reaches a quorum of total.
func Needed(total uint64) uint64 {
	return (total/3)*2 + (total%3)*2/3 + 1
}

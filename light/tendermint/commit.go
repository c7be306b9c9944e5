package tendermint

import (
	"errors"
	"fmt"

	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/tendermint/ibclight/crypto/sigverify"
	ibcmath "github.com/tendermint/ibclight/libs/math"
	"github.com/tendermint/ibclight/light/votepower"
)

// VerifyCommit verifies +2/3 of the set had signed the given commit.
//
// Every non-absent vote is resolved to its validator by address. A
// validator signing twice is an error. Votes with an invalid signature are
// excluded from the tally, and only votes for the block count.
func VerifyCommit(chainID string, vals *cmttypes.ValidatorSet, blockID cmttypes.BlockID,
	height int64, commit *cmttypes.Commit, opts ...Option) error {
	if vals == nil {
		return fmt.Errorf("%w: nil validator set", ErrMissingHeaderField)
	}
	if commit == nil {
		return fmt.Errorf("%w: nil commit", ErrMissingHeaderField)
	}

	if vals.Size() != len(commit.Signatures) {
		return fmt.Errorf("invalid commit -- wrong set size: %v vs %v", vals.Size(), len(commit.Signatures))
	}

	// Validate Height and BlockID.
	if height != commit.Height {
		return fmt.Errorf("invalid commit -- wrong height: %v vs %v", height, commit.Height)
	}
	if !blockID.Equals(commit.BlockID) {
		return fmt.Errorf("invalid commit -- wrong block ID: want %v, got %v",
			blockID, commit.BlockID)
	}

	total, err := totalVotingPower(vals)
	if err != nil {
		return err
	}

	tallied, err := tallyCommit(chainID, vals, commit, newOptions(opts))
	if err != nil {
		return err
	}

	if !votepower.QuorumReached(total, tallied) {
		return InsufficientVotingPowerError{Got: tallied, Needed: votepower.Needed(total) - 1}
	}
	return nil
}

// VerifyCommitTrusting verifies that trustLevel of the validator set signed
// this commit.
//
// NOTE the given validators do not necessarily correspond to the validator set
// for this commit, but there may be some intersection. Signers unknown to
// vals are skipped.
func VerifyCommitTrusting(chainID string, vals *cmttypes.ValidatorSet, commit *cmttypes.Commit,
	trustLevel ibcmath.Fraction, opts ...Option) error {
	// sanity checks
	if vals == nil {
		return fmt.Errorf("%w: nil validator set", ErrMissingHeaderField)
	}
	if trustLevel.Denominator == 0 {
		return errors.New("trustLevel has zero Denominator")
	}
	if commit == nil {
		return fmt.Errorf("%w: nil commit", ErrMissingHeaderField)
	}

	total, err := totalVotingPower(vals)
	if err != nil {
		return err
	}

	tallied, err := tallyCommit(chainID, vals, commit, newOptions(opts))
	if err != nil {
		return err
	}

	if !votepower.TrustLevelReached(total, tallied, trustLevel) {
		needed, _ := ibcmath.MulDivUint64(total, trustLevel.Numerator, trustLevel.Denominator)
		return ErrNewValSetCantBeTrusted{InsufficientVotingPowerError{Got: tallied, Needed: needed}}
	}
	return nil
}

func totalVotingPower(vals *cmttypes.ValidatorSet) (uint64, error) {
	var total uint64
	for _, val := range vals.Validators {
		power, err := ibcmath.SafeConvertUint64(val.VotingPower)
		if err != nil {
			return 0, fmt.Errorf("validator %v: negative voting power", val.Address)
		}
		if total, err = ibcmath.SafeAddUint64(total, power); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// vote is a commit signature resolved to its validator.
type vote struct {
	valIdx    uint
	val       *cmttypes.Validator
	signBytes []byte
	signature []byte
}

// tallyCommit returns the voting power of vals that validly signed the block
// of commit.
func tallyCommit(chainID string, vals *cmttypes.ValidatorSet, commit *cmttypes.Commit, o *options) (uint64, error) {
	byAddress := make(map[string]uint, len(vals.Validators))
	for i, val := range vals.Validators {
		byAddress[string(val.Address)] = uint(i)
	}

	var (
		seen  = votepower.NewTally(uint(len(vals.Validators)))
		votes = make([]vote, 0, len(commit.Signatures))
	)
	for idx, commitSig := range commit.Signatures {
		// OK, some signatures can be absent.
		if commitSig.BlockIDFlag == cmttypes.BlockIDFlagAbsent {
			continue
		}

		valIdx, ok := byAddress[string(commitSig.ValidatorAddress)]
		if !ok {
			continue
		}

		// check for double vote of validator on the same commit
		if err := seen.Add(votepower.Signer{Index: valIdx}); err != nil {
			return 0, fmt.Errorf("%w: validator %v at commit index %d",
				err, commitSig.ValidatorAddress, idx)
		}

		// No need to verify nil votes, they never count.
		if commitSig.BlockIDFlag != cmttypes.BlockIDFlagCommit {
			continue
		}

		votes = append(votes, vote{
			valIdx:    valIdx,
			val:       vals.Validators[valIdx],
			signBytes: commit.VoteSignBytes(chainID, int32(idx)),
			signature: commitSig.Signature,
		})
	}

	valid := verifyVotes(votes)

	tally := votepower.NewTally(uint(len(vals.Validators)))
	for i, v := range votes {
		if !valid[i] {
			o.logger.Debug("excluding invalid commit signature",
				"height", commit.Height, "validator", v.val.Address)
			continue
		}
		if err := tally.Add(votepower.Signer{Index: v.valIdx, Power: uint64(v.val.VotingPower)}); err != nil {
			return 0, err
		}
	}
	return tally.Power(), nil
}

// verifyVotes checks every vote signature. Ed25519 signatures are batched
// first; if the batch fails, each one is verified on its own.
func verifyVotes(votes []vote) []bool {
	valid := make([]bool, len(votes))

	var batched []int
	for i, v := range votes {
		scheme, ok := sigverify.SchemeForKeyType(v.val.PubKey.Type())
		if ok && sigverify.SupportsBatch(scheme) {
			batched = append(batched, i)
			continue
		}
		valid[i] = verifySingle(v)
	}

	if len(batched) > 1 {
		bv := sigverify.NewBatchVerifier()
		added := true
		for _, i := range batched {
			v := votes[i]
			if err := bv.Add(v.val.PubKey.Bytes(), v.signBytes, v.signature); err != nil {
				added = false
				break
			}
		}
		if added {
			if ok, _ := bv.Verify(); ok {
				for _, i := range batched {
					valid[i] = true
				}
				return valid
			}
		}
	}

	// attempt with single verification
	for _, i := range batched {
		valid[i] = verifySingle(votes[i])
	}
	return valid
}

func verifySingle(v vote) bool {
	scheme, ok := sigverify.SchemeForKeyType(v.val.PubKey.Type())
	if !ok {
		return v.val.PubKey.VerifySignature(v.signBytes, v.signature)
	}
	return sigverify.Verify(scheme, v.val.PubKey.Bytes(), v.signBytes, v.signature) == nil
}

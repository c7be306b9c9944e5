package beefy_test

import (
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/crypto/merkle"
	"github.com/tendermint/ibclight/crypto/mmr"
	"github.com/tendermint/ibclight/crypto/sigverify"
	"github.com/tendermint/ibclight/light/beefy"
)

// authorities is a BEEFY authority set together with its private keys.
type authorities struct {
	keys   []*btcec.PrivateKey
	set    beefy.AuthoritySet
	proofs []*merkle.Proof
}

func newAuthorities(t testing.TB, id uint64, n int) *authorities {
	t.Helper()

	a := &authorities{keys: make([]*btcec.PrivateKey, n)}
	leaves := make([][]byte, n)
	for i := range a.keys {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		a.keys[i] = priv
		leaves[i] = priv.PubKey().SerializeCompressed()
	}

	root, proofs := merkle.ProofsFromByteSlices(merkle.Keccak, leaves)
	rootHash, err := crypto.HashFromBytes(root)
	require.NoError(t, err)

	a.set = beefy.AuthoritySet{ID: id, Len: uint32(n), Root: rootHash}
	a.proofs = proofs
	return a
}

// sign signs the commitment of update with the listed authorities, or with
// all of them if none are listed.
func (a *authorities) sign(t testing.TB, update *beefy.MmrUpdateProof, signers ...int) {
	t.Helper()

	if len(signers) == 0 {
		for i := range a.keys {
			signers = append(signers, i)
		}
	}

	digest, err := beefy.CommitmentHash(update.SignedCommitment.Commitment)
	require.NoError(t, err)

	update.SignedCommitment.Signatures = nil
	update.AuthorityProofs = nil
	for _, i := range signers {
		sig, err := sigverify.SignRecoverable(a.keys[i], digest[:])
		require.NoError(t, err)
		update.SignedCommitment.Signatures = append(update.SignedCommitment.Signatures, beefy.CommitmentSignature{
			AuthorityIndex: uint32(i),
			Signature:      sig,
		})
		update.AuthorityProofs = append(update.AuthorityProofs, a.proofs[i])
	}
}

func fillerLeaf(i uint64) crypto.Hash {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], i)
	return crypto.Keccak256([]byte("filler"), bz[:])
}

// buildUpdate returns an update for a commitment at blockNumber signed by
// signer, whose latest leaf announces next.
func buildUpdate(t testing.TB, state beefy.ClientState, signer *authorities, blockNumber uint32,
	next beefy.AuthoritySet, signers ...int) *beefy.MmrUpdateProof {
	t.Helper()

	leafIndex, err := state.LeafIndex(blockNumber)
	require.NoError(t, err)

	m := mmr.NewMemoryMMR()
	for i := uint64(0); i < leafIndex; i++ {
		m.Append(fillerLeaf(i))
	}

	leaf := beefy.MmrLeaf{
		ParentNumberAndHash: beefy.ParentNumberAndHash{
			ParentNumber: blockNumber - 1,
			ParentHash:   crypto.Keccak256([]byte("parent")),
		},
		BeefyNextAuthoritySet: next,
		LeafExtra:             crypto.Keccak256([]byte("heads")),
	}
	leafHash, err := beefy.LeafHash(leaf)
	require.NoError(t, err)
	require.Equal(t, leafIndex, m.Append(leafHash))

	root, err := m.Root()
	require.NoError(t, err)
	proof, err := m.GenProof(leafIndex)
	require.NoError(t, err)

	update := &beefy.MmrUpdateProof{
		SignedCommitment: beefy.SignedCommitment{
			Commitment: beefy.Commitment{
				Payload:        []beefy.PayloadItem{{ID: beefy.MmrRootID, Data: root.Bytes()}},
				BlockNumber:    blockNumber,
				ValidatorSetID: signer.set.ID,
			},
		},
		LatestMmrLeaf: leaf,
		LeafIndex:     leafIndex,
		MmrProof:      proof,
	}
	signer.sign(t, update, signers...)
	return update
}

func genesis(current, next *authorities) beefy.ClientState {
	return beefy.ClientState{
		CurrentAuthorities: current.set,
		NextAuthorities:    next.set,
	}
}

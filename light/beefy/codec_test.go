package beefy_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/light/beefy"
)

func TestEncodeCommitment(t *testing.T) {
	root := bytes.Repeat([]byte{0x01}, crypto.HashSize)
	c := beefy.Commitment{
		Payload:        []beefy.PayloadItem{{ID: beefy.MmrRootID, Data: root}},
		BlockNumber:    5,
		ValidatorSetID: 3,
	}

	bz, err := beefy.EncodeCommitment(c)
	require.NoError(t, err)

	var expected []byte
	expected = append(expected, 0x04, 'm', 'h', 0x80)
	expected = append(expected, root...)
	expected = append(expected, 0x05, 0, 0, 0)
	expected = append(expected, 0x03, 0, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, expected, bz)

	hash, err := beefy.CommitmentHash(c)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256(expected), hash)
}

func TestEncodeMmrLeaf(t *testing.T) {
	leaf := beefy.MmrLeaf{
		Version:               0,
		ParentNumberAndHash:   beefy.ParentNumberAndHash{ParentNumber: 7},
		BeefyNextAuthoritySet: beefy.AuthoritySet{ID: 2, Len: 5},
	}

	bz, err := beefy.EncodeMmrLeaf(leaf)
	require.NoError(t, err)
	// version, parent number, parent hash, set id, set len, set root, extra
	require.Len(t, bz, 1+4+32+8+4+32+32)
	assert.Equal(t, []byte{0x07, 0, 0, 0}, bz[1:5])
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0, 0, 0, 0}, bz[37:45])
	assert.Equal(t, []byte{0x05, 0, 0, 0}, bz[45:49])
}

func TestEncodeParaHead(t *testing.T) {
	bz, err := beefy.EncodeParaHead(2000, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xd0, 0x07, 0, 0, 0x08, 0xaa, 0xbb}, bz)
}

func TestSignedCommitmentCodec(t *testing.T) {
	var (
		set0   = newAuthorities(t, 0, 4)
		set1   = newAuthorities(t, 1, 4)
		update = buildUpdate(t, genesis(set0, set1), set0, 9, set1.set, 0, 2, 3)
	)

	bz, err := beefy.EncodeSignedCommitment(update.SignedCommitment, set0.set.Len)
	require.NoError(t, err)

	decoded, err := beefy.DecodeSignedCommitment(bz)
	require.NoError(t, err)
	assert.Equal(t, update.SignedCommitment, decoded)

	_, err = beefy.DecodeSignedCommitment(bz[:len(bz)-10])
	require.ErrorIs(t, err, beefy.ErrDecode)

	_, err = beefy.EncodeSignedCommitment(update.SignedCommitment, 3)
	require.ErrorIs(t, err, beefy.ErrInvalidMmrUpdate)
}

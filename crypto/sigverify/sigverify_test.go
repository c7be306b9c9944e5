package sigverify_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/crypto/sigverify"
)

func TestVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	msg := []byte("vote sign bytes")
	sig := ed25519.Sign(priv, msg)

	require.NoError(t, sigverify.Verify(sigverify.SchemeEd25519, pub, msg, sig))
	// cached path
	require.NoError(t, sigverify.Verify(sigverify.SchemeEd25519, pub, msg, sig))

	err = sigverify.Verify(sigverify.SchemeEd25519, pub, []byte("other"), sig)
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)

	err = sigverify.Verify(sigverify.SchemeEd25519, pub, msg, sig[:63])
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)

	err = sigverify.Verify(sigverify.SchemeEd25519, pub[:31], msg, sig)
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)
}

func TestVerifySecp256k1(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()

	msg := []byte("vote sign bytes")
	sig, err := sigverify.SignSecp256k1(priv, msg)
	require.NoError(t, err)
	require.Len(t, sig, sigverify.Secp256k1SignatureSize)

	require.NoError(t, sigverify.Verify(sigverify.SchemeSecp256k1, pub, msg, sig))

	err = sigverify.Verify(sigverify.SchemeSecp256k1, pub, []byte("other"), sig)
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)

	// flipping s to n-s keeps the signature valid for ECDSA but it is malleable
	var s btcec.ModNScalar
	s.SetByteSlice(sig[32:])
	s.Negate()
	highS := s.Bytes()
	malleable := append(append([]byte(nil), sig[:32]...), highS[:]...)
	err = sigverify.Verify(sigverify.SchemeSecp256k1, pub, msg, malleable)
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)
}

func TestRecoverCompressed(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()

	digest := crypto.Keccak256([]byte("commitment"))
	sig, err := sigverify.SignRecoverable(priv, digest[:])
	require.NoError(t, err)
	require.Len(t, sig, sigverify.RecoverableSignatureSize)

	recovered, err := sigverify.RecoverCompressed(sig, digest[:])
	require.NoError(t, err)
	assert.Equal(t, pub, recovered)

	// Ethereum style v
	eth := append([]byte(nil), sig...)
	eth[64] += 27
	recovered, err = sigverify.RecoverCompressed(eth, digest[:])
	require.NoError(t, err)
	assert.Equal(t, pub, recovered)

	require.NoError(t, sigverify.Verify(sigverify.SchemeSecp256k1Recoverable, pub, digest[:], sig))

	other := crypto.Keccak256([]byte("other"))
	err = sigverify.Verify(sigverify.SchemeSecp256k1Recoverable, pub, other[:], sig)
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)

	bad := append([]byte(nil), sig...)
	bad[64] = 9
	_, err = sigverify.RecoverCompressed(bad, digest[:])
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)

	_, err = sigverify.RecoverCompressed(sig[:64], digest[:])
	require.ErrorIs(t, err, sigverify.ErrInvalidSignature)
}

func TestBatchVerifier(t *testing.T) {
	const n = 8
	bv := sigverify.NewBatchVerifier()
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		msg := []byte{byte(i)}
		sig := ed25519.Sign(priv, msg)
		if i == 3 {
			sig[0] ^= 0x01
		}
		require.NoError(t, bv.Add(pub, msg, sig))
	}

	ok, valid := bv.Verify()
	require.False(t, ok)
	require.Len(t, valid, n)
	for i, v := range valid {
		assert.Equal(t, i != 3, v, "entry %d", i)
	}

	require.Error(t, sigverify.NewBatchVerifier().Add(make([]byte, 31), nil, make([]byte, 64)))
	require.ErrorIs(t, sigverify.NewBatchVerifier().Add(make([]byte, 32), nil, make([]byte, 63)), sigverify.ErrInvalidSignature)
}

func TestSchemeForKeyType(t *testing.T) {
	s, ok := sigverify.SchemeForKeyType("ed25519")
	require.True(t, ok)
	assert.Equal(t, sigverify.SchemeEd25519, s)
	assert.True(t, sigverify.SupportsBatch(s))

	s, ok = sigverify.SchemeForKeyType("secp256k1")
	require.True(t, ok)
	assert.False(t, sigverify.SupportsBatch(s))

	_, ok = sigverify.SchemeForKeyType("sr25519")
	assert.False(t, ok)

	assert.Equal(t, "secp256k1-recoverable", sigverify.SchemeSecp256k1Recoverable.String())
}

func TestSignRecoverable(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		digest := crypto.Keccak256([]byte{byte(i)})
		sig, err := sigverify.SignRecoverable(priv, digest[:])
		require.NoError(t, err)
		require.Len(t, sig, sigverify.RecoverableSignatureSize)
		assert.LessOrEqual(t, sig[64], byte(1))
	}

	_, err = sigverify.SignRecoverable(priv, []byte("short"))
	require.Error(t, err)
}

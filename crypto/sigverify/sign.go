package sigverify

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignSecp256k1 signs sha256(msg) and returns the 64-byte r||s form accepted
// by Verify. The signature is in lower-S form.
func SignSecp256k1(priv *btcec.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	compact := ecdsa.SignCompact(priv, digest[:], false)
	return compact[1:], nil
}

// SignRecoverable signs a 32-byte digest and returns the 65-byte r||s||v form
// used by BEEFY authorities.
func SignRecoverable(priv *btcec.PrivateKey, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("expected a 32 byte digest, got %d", len(digest))
	}
	compact := ecdsa.SignCompact(priv, digest, true)
	sig := make([]byte, RecoverableSignatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27 - 4
	return sig, nil
}

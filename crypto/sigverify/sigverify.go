// Package sigverify verifies the signature schemes used by light-client
// finality proofs: Ed25519 and secp256k1 for Tendermint validators and
// recoverable secp256k1 for BEEFY authorities.
package sigverify

import (
	"bytes"
	crand "crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519/extra/cache"
)

// Scheme identifies a signature algorithm.
type Scheme uint8

const (
	SchemeEd25519 Scheme = iota + 1
	SchemeSecp256k1
	SchemeSecp256k1Recoverable
)

const (
	Ed25519PubKeySize    = ed25519.PublicKeySize
	Ed25519SignatureSize = ed25519.SignatureSize

	Secp256k1PubKeySize    = btcec.PubKeyBytesLenCompressed
	Secp256k1SignatureSize = 64

	// RecoverableSignatureSize is the size of an r||s||v signature.
	RecoverableSignatureSize = 65

	// Key type names as reported by validator public keys.
	KeyTypeEd25519   = "ed25519"
	KeyTypeSecp256k1 = "secp256k1"

	// cacheSize is the number of public keys kept in the expanded form.
	cacheSize = 4096
)

// ErrInvalidSignature is returned for any signature that does not verify.
var ErrInvalidSignature = errors.New("invalid signature")

var (
	verifyOptions = &ed25519.Options{
		Verify: ed25519.VerifyOptionsZIP_215,
	}

	cachingVerifier = cache.NewVerifier(cache.NewLRUCache(cacheSize))
)

func (s Scheme) String() string {
	switch s {
	case SchemeEd25519:
		return "ed25519"
	case SchemeSecp256k1:
		return "secp256k1"
	case SchemeSecp256k1Recoverable:
		return "secp256k1-recoverable"
	default:
		return fmt.Sprintf("Scheme(%d)", uint8(s))
	}
}

// SchemeForKeyType maps a validator key type onto a Scheme.
func SchemeForKeyType(keyType string) (Scheme, bool) {
	switch keyType {
	case KeyTypeEd25519:
		return SchemeEd25519, true
	case KeyTypeSecp256k1:
		return SchemeSecp256k1, true
	}
	return 0, false
}

// SupportsBatch reports whether signatures of the scheme can be verified in
// a batch.
func SupportsBatch(s Scheme) bool {
	return s == SchemeEd25519
}

// Verify checks sig over msg by pubKey. For SchemeSecp256k1Recoverable msg
// must be the 32-byte digest that was signed and pubKey the compressed
// public key of the expected signer.
func Verify(scheme Scheme, pubKey, msg, sig []byte) error {
	var ok bool
	switch scheme {
	case SchemeEd25519:
		ok = verifyEd25519(pubKey, msg, sig)
	case SchemeSecp256k1:
		ok = verifySecp256k1(pubKey, msg, sig)
	case SchemeSecp256k1Recoverable:
		recovered, err := RecoverCompressed(sig, msg)
		ok = err == nil && bytes.Equal(recovered, pubKey)
	default:
		return fmt.Errorf("unsupported signature scheme %v", scheme)
	}
	if !ok {
		return fmt.Errorf("%w (%v)", ErrInvalidSignature, scheme)
	}
	return nil
}

func verifyEd25519(pubKey, msg, sig []byte) bool {
	if len(pubKey) != Ed25519PubKeySize || len(sig) != Ed25519SignatureSize {
		return false
	}
	return cachingVerifier.VerifyWithOptions(ed25519.PublicKey(pubKey), msg, sig, verifyOptions)
}

// verifySecp256k1 checks a 64-byte r||s signature over sha256(msg). Malleable
// (high-S) signatures are rejected.
func verifySecp256k1(pubKey, msg, sig []byte) bool {
	if len(sig) != Secp256k1SignatureSize {
		return false
	}
	pub, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	var r, s btcec.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		return false
	}
	if s.IsOverHalfOrder() {
		return false
	}
	signature := ecdsa.NewSignature(&r, &s)
	digest := sha256.Sum256(msg)
	return signature.Verify(digest[:], pub)
}

// RecoverCompressed recovers the 33-byte compressed public key that produced
// the 65-byte r||s||v signature over digest. v may be given as 0-3 or 27-30.
func RecoverCompressed(sig, digest []byte) ([]byte, error) {
	if len(sig) != RecoverableSignatureSize {
		return nil, fmt.Errorf("%w: expected %d signature bytes, got %d",
			ErrInvalidSignature, RecoverableSignatureSize, len(sig))
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: expected a 32 byte digest, got %d", ErrInvalidSignature, len(digest))
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 3 {
		return nil, fmt.Errorf("%w: invalid recovery id %d", ErrInvalidSignature, sig[64])
	}

	// btcec expects [27 + 4 (compressed) + recid] || r || s
	compact := make([]byte, RecoverableSignatureSize)
	compact[0] = 27 + 4 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub.SerializeCompressed(), nil
}

// BatchVerifier verifies Ed25519 signatures in a batch and reports the
// validity of every entry, so a bad signature only excludes its signer.
type BatchVerifier struct {
	bv *ed25519.BatchVerifier
}

// NewBatchVerifier returns an empty Ed25519 batch.
func NewBatchVerifier() *BatchVerifier {
	return &BatchVerifier{bv: ed25519.NewBatchVerifier()}
}

// Add appends an entry into the batch.
func (b *BatchVerifier) Add(pubKey, msg, sig []byte) error {
	if len(pubKey) != Ed25519PubKeySize {
		return fmt.Errorf("pubkey size is incorrect; expected: %d, got %d", Ed25519PubKeySize, len(pubKey))
	}
	if len(sig) != Ed25519SignatureSize {
		return fmt.Errorf("%w: expected %d signature bytes, got %d", ErrInvalidSignature, Ed25519SignatureSize, len(sig))
	}
	cachingVerifier.AddWithOptions(b.bv, ed25519.PublicKey(pubKey), msg, sig, verifyOptions)
	return nil
}

// Verify verifies all the entries in the batch, and returns if every
// signature is valid, and a vector of bools indicating the verification
// status of each signature (in the order that signatures were added).
func (b *BatchVerifier) Verify() (bool, []bool) {
	return b.bv.Verify(crand.Reader)
}

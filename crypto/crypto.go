package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashSize is the size in bytes of a Hash.
const HashSize = 32

// Hash is a 32-byte digest. It is hex-encoded in text formats.
type Hash [HashSize]byte

// HashFromBytes copies bz into a Hash. bz must be exactly HashSize bytes long.
func HashFromBytes(bz []byte) (Hash, error) {
	var h Hash
	if len(bz) != HashSize {
		return h, fmt.Errorf("expected %d bytes for a hash, got %d", HashSize, len(bz))
	}
	copy(h[:], bz)
	return h, nil
}

// Bytes returns a copy of the hash as a slice.
func (h Hash) Bytes() []byte {
	bz := make([]byte, HashSize)
	copy(bz, h[:])
	return bz
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An optional 0x prefix is
// accepted.
func (h *Hash) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
	bz, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decoding hash: %w", err)
	}
	parsed, err := HashFromBytes(bz)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Keccak256 returns the legacy (pre-NIST) Keccak-256 digest of the
// concatenation of data.
func Keccak256(data ...[]byte) Hash {
	var h Hash
	hasher := sha3.NewLegacyKeccak256()
	for _, bz := range data {
		hasher.Write(bz)
	}
	hasher.Sum(h[:0])
	return h
}

// Blake2b256 returns the BLAKE2b-256 digest of bz. Substrate block headers are
// identified by this hash.
func Blake2b256(bz []byte) Hash {
	return blake2b.Sum256(bz)
}

// Checksum returns the SHA256 of the bz.
func Checksum(bz []byte) []byte {
	h := sha256.Sum256(bz)
	return h[:]
}

package rand

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// NewRand returns a prng, that is seeded with OS randomness.
// The OS randomness is obtained from crypto/rand, however, like with any math/rand.Rand
// object none of the provided methods are suitable for cryptographic usage.
func NewRand() *mrand.Rand {
	var seed int64
	_ = binary.Read(crand.Reader, binary.BigEndian, &seed)
	return mrand.New(mrand.NewSource(seed))
}

// Bytes returns n random bytes generated from a freshly instantiated prng.
func Bytes(n int) []byte {
	bs := make([]byte, n)
	_, _ = NewRand().Read(bs)
	return bs
}

// Hash returns 32 random bytes, the size of the hashes used by light clients.
func Hash() [32]byte {
	var h [32]byte
	copy(h[:], Bytes(len(h)))
	return h
}

// Intn returns a random int in [0, n) from a freshly instantiated prng.
func Intn(n int) int {
	return NewRand().Intn(n)
}

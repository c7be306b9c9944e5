package merkle

import (
	"crypto/sha256"

	"github.com/tendermint/ibclight/crypto"
)

// Hasher defines how leaves and inner nodes of a tree are hashed.
type Hasher interface {
	EmptyHash() []byte
	LeafHash(leaf []byte) []byte
	InnerHash(left, right []byte) []byte
}

var (
	// SHA256 is the RFC-6962 hasher used by Tendermint: leaves and inner nodes
	// are domain-separated by a one byte prefix.
	SHA256 Hasher = sha256Hasher{}

	// Keccak is the hasher used by Substrate binary merkle trees (BEEFY
	// authority sets, parachain heads): no domain separation and a zero root
	// for an empty tree.
	Keccak Hasher = keccakHasher{}
)

var (
	leafPrefix  = []byte{0}
	innerPrefix = []byte{1}
)

type sha256Hasher struct{}

func (sha256Hasher) EmptyHash() []byte {
	h := sha256.Sum256(nil)
	return h[:]
}

// returns sha256(0x00 || leaf)
func (sha256Hasher) LeafHash(leaf []byte) []byte {
	h := sha256.New()
	h.Write(leafPrefix)
	h.Write(leaf)
	return h.Sum(nil)
}

// returns sha256(0x01 || left || right)
func (sha256Hasher) InnerHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write(innerPrefix)
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

type keccakHasher struct{}

func (keccakHasher) EmptyHash() []byte {
	return make([]byte, crypto.HashSize)
}

func (keccakHasher) LeafHash(leaf []byte) []byte {
	return crypto.Keccak256(leaf).Bytes()
}

func (keccakHasher) InnerHash(left, right []byte) []byte {
	return crypto.Keccak256(left, right).Bytes()
}

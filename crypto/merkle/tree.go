package merkle

import (
	"math/bits"
)

// HashFromByteSlices computes a Merkle tree where the leaves are the byte slice,
// in the provided order. It follows RFC-6962 when used with SHA256.
func HashFromByteSlices(h Hasher, items [][]byte) []byte {
	switch len(items) {
	case 0:
		return h.EmptyHash()
	case 1:
		return h.LeafHash(items[0])
	default:
		k := getSplitPoint(int64(len(items)))
		left := HashFromByteSlices(h, items[:k])
		right := HashFromByteSlices(h, items[k:])
		return h.InnerHash(left, right)
	}
}

// HashFromByteSlicesIterative is an iterative alternative to
// HashFromByteSlices. Adjacent nodes are paired level by level and an odd
// node is promoted unchanged, which yields the same root as the recursive
// split-point construction.
func HashFromByteSlicesIterative(h Hasher, input [][]byte) []byte {
	items := make([][]byte, len(input))

	for i, leaf := range input {
		items[i] = h.LeafHash(leaf)
	}

	size := len(items)
	for {
		switch size {
		case 0:
			return h.EmptyHash()
		case 1:
			return items[0]
		default:
			rp := 0 // read position
			wp := 0 // write position
			for rp < size {
				if rp+1 < size {
					items[wp] = h.InnerHash(items[rp], items[rp+1])
					rp += 2
				} else {
					items[wp] = items[rp]
					rp++
				}
				wp++
			}
			size = wp
		}
	}
}

// getSplitPoint returns the largest power of 2 less than length
func getSplitPoint(length int64) int64 {
	if length < 1 {
		panic("Trying to split a tree with size < 1")
	}
	uLength := uint(length)
	bitlen := bits.Len(uLength)
	k := int64(1 << uint(bitlen-1))
	if k == length {
		k >>= 1
	}
	return k
}

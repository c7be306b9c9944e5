package test

import (
	tmrand "github.com/tendermint/ibclight/libs/rand"
)

// Contract: !bytes.Equal(input, output) && len(input) >= len(output)
func MutateByteSlice(bytez []byte) []byte {
	// If bytez is empty, panic
	if len(bytez) == 0 {
		panic("Cannot mutate an empty bytez")
	}

	// Copy bytez
	mBytez := make([]byte, len(bytez))
	copy(mBytez, bytez)
	bytez = mBytez

	// Try a random mutation
	switch tmrand.Intn(2) {
	case 0: // Mutate a single byte
		bytez[tmrand.Intn(len(bytez))] += byte(tmrand.Intn(255) + 1)
	case 1: // Remove an arbitrary byte
		pos := tmrand.Intn(len(bytez))
		bytez = append(bytez[:pos], bytez[pos+1:]...)
	}
	return bytez
}

// FlipBit returns a copy of bytez with the lowest bit of byte i inverted.
func FlipBit(bytez []byte, i int) []byte {
	out := make([]byte, len(bytez))
	copy(out, bytez)
	out[i] ^= 1
	return out
}

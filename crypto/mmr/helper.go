package mmr

import "math/bits"

// Positions are zero-based indexes into the flat node list of the mountain
// range, in insertion order.

// Size returns the number of nodes of an MMR holding leafCount leaves.
func Size(leafCount uint64) uint64 {
	return 2*leafCount - uint64(bits.OnesCount64(leafCount))
}

// LeafIndexToPos returns the node position of the leaf with the given index.
func LeafIndexToPos(index uint64) uint64 {
	return Size(index+1) - uint64(bits.TrailingZeros64(index+1)) - 1
}

func posHeightInTree(pos uint64) uint32 {
	pos++
	for !allOnes(pos) {
		pos = jumpLeft(pos)
	}
	return uint32(bits.Len64(pos) - 1)
}

func allOnes(n uint64) bool {
	return n != 0 && bits.OnesCount64(n) == bits.Len64(n)
}

func jumpLeft(pos uint64) uint64 {
	msb := uint64(1) << (bits.Len64(pos) - 1)
	return pos - (msb - 1)
}

func parentOffset(height uint32) uint64 {
	return 2 << height
}

func siblingOffset(height uint32) uint64 {
	return (2 << height) - 1
}

// getPeaks returns the positions of the peaks, left to right. mmrSize must be
// positive.
func getPeaks(mmrSize uint64) []uint64 {
	height, pos := leftPeakHeightPos(mmrSize)
	peaks := []uint64{pos}
	for height > 0 {
		var ok bool
		height, pos, ok = getRightPeak(height, pos, mmrSize)
		if !ok {
			break
		}
		peaks = append(peaks, pos)
	}
	return peaks
}

func getRightPeak(height uint32, pos, mmrSize uint64) (uint32, uint64, bool) {
	// right sibling
	pos += siblingOffset(height)
	// descend to the left child until the position exists
	for pos > mmrSize-1 {
		if height == 0 {
			return 0, 0, false
		}
		pos -= parentOffset(height - 1)
		height--
	}
	return height, pos, true
}

func leftPeakHeightPos(mmrSize uint64) (uint32, uint64) {
	leftPos := func(height uint32) uint64 {
		return (1 << (height + 1)) - 2
	}
	height := uint32(1)
	prevPos := uint64(0)
	pos := leftPos(height)
	for pos < mmrSize {
		height++
		prevPos = pos
		pos = leftPos(height)
	}
	return height - 1, prevPos
}

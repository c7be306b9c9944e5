package mmr

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tendermint/ibclight/crypto"
)

// MemoryMMR is an append-only merkle mountain range kept in memory. It is
// used to build fixtures and by relayers that need to produce proofs for
// leaves they already hold.
type MemoryMMR struct {
	mtx       sync.RWMutex
	nodes     []crypto.Hash
	leafCount uint64
}

// NewMemoryMMR returns an empty range.
func NewMemoryMMR() *MemoryMMR {
	return &MemoryMMR{}
}

// Append adds a leaf hash and returns its leaf index.
func (m *MemoryMMR) Append(leafHash crypto.Hash) uint64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	pos := uint64(len(m.nodes))
	m.nodes = append(m.nodes, leafHash)

	height := uint32(0)
	for posHeightInTree(pos+1) > height {
		pos++
		left := m.nodes[pos-parentOffset(height)]
		right := m.nodes[pos-1]
		m.nodes = append(m.nodes, merge(left, right))
		height++
	}

	idx := m.leafCount
	m.leafCount++
	return idx
}

// LeafCount returns the number of appended leaves.
func (m *MemoryMMR) LeafCount() uint64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.leafCount
}

// Root bags the current peaks.
func (m *MemoryMMR) Root() (crypto.Hash, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	if m.leafCount == 0 {
		return crypto.Hash{}, fmt.Errorf("%w: empty range", ErrInvalidLeaves)
	}
	peaks := getPeaks(uint64(len(m.nodes)))
	hashes := make([]crypto.Hash, len(peaks))
	for i, pos := range peaks {
		hashes[i] = m.nodes[pos]
	}
	return bagPeaks(hashes)
}

// GenProof builds a batch proof for the given leaf indices.
func (m *MemoryMMR) GenProof(indices ...uint64) (Proof, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	if len(indices) == 0 {
		return Proof{}, fmt.Errorf("%w: no leaves", ErrInvalidLeaves)
	}
	mmrSize := uint64(len(m.nodes))
	proof := Proof{LeafCount: m.leafCount}

	positions := make([]uint64, 0, len(indices))
	for _, idx := range indices {
		if idx >= m.leafCount {
			return Proof{}, fmt.Errorf("%w: leaf index %d out of range %d", ErrInvalidLeaves, idx, m.leafCount)
		}
		positions = append(positions, LeafIndexToPos(idx))
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	positions = dedup(positions)

	if mmrSize == 1 {
		return proof, nil
	}

	baggingTrack := 0
	for _, peakPos := range getPeaks(mmrSize) {
		n := 0
		for n < len(positions) && positions[n] <= peakPos {
			n++
		}
		under := positions[:n]
		positions = positions[n:]

		if len(under) == 0 {
			baggingTrack++
		} else {
			baggingTrack = 0
		}
		proof.Items = m.genProofForPeak(proof.Items, under, peakPos)
	}

	// bag the peaks right of the last proven leaf into a single item
	if baggingTrack > 1 {
		split := len(proof.Items) - baggingTrack
		rhs, err := bagPeaks(append([]crypto.Hash(nil), proof.Items[split:]...))
		if err != nil {
			return Proof{}, err
		}
		proof.Items = append(proof.Items[:split], rhs)
	}
	return proof, nil
}

func (m *MemoryMMR) genProofForPeak(items []crypto.Hash, positions []uint64, peakPos uint64) []crypto.Hash {
	if len(positions) == 1 && positions[0] == peakPos {
		return items
	}
	if len(positions) == 0 {
		return append(items, m.nodes[peakPos])
	}

	queue := make([]node, 0, len(positions))
	for _, pos := range positions {
		queue = append(queue, node{pos: pos})
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.pos == peakPos {
			break
		}

		var sibPos, parentPos uint64
		if posHeightInTree(cur.pos+1) > cur.height {
			sibPos = cur.pos - siblingOffset(cur.height)
			parentPos = cur.pos + 1
		} else {
			sibPos = cur.pos + siblingOffset(cur.height)
			parentPos = cur.pos + parentOffset(cur.height)
		}

		if len(queue) > 0 && queue[0].pos == sibPos {
			queue = queue[1:]
		} else {
			items = append(items, m.nodes[sibPos])
		}
		if parentPos < peakPos {
			queue = append(queue, node{pos: parentPos, height: cur.height + 1})
		}
	}
	return items
}

func dedup(sorted []uint64) []uint64 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

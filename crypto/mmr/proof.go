package mmr

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tendermint/ibclight/crypto"
)

var (
	// ErrCorruptedProof is returned when proof items do not fit the leaves
	// and the size of the range.
	ErrCorruptedProof = errors.New("corrupted mmr proof")
	// ErrInvalidLeaves is returned for empty, duplicate or out of range leaves.
	ErrInvalidLeaves = errors.New("invalid mmr leaves")
	// ErrRootMismatch is returned when a well-formed proof yields a different
	// root.
	ErrRootMismatch = errors.New("mmr root mismatch")
)

// Leaf is a leaf hash together with its leaf index.
type Leaf struct {
	Index uint64
	Hash  crypto.Hash
}

// Proof proves membership of one or more leaves of an MMR with LeafCount
// leaves. Items are sibling hashes in generation order, followed by peak
// hashes and, if present, the bagged right-hand-side peaks.
type Proof struct {
	LeafCount uint64        `json:"leaf_count"`
	Items     []crypto.Hash `json:"items"`
}

func merge(left, right crypto.Hash) crypto.Hash {
	return crypto.Keccak256(left[:], right[:])
}

// Verify checks that leaves reproduce root.
func (p Proof) Verify(root crypto.Hash, leaves []Leaf) error {
	calculated, err := p.CalculateRoot(leaves)
	if err != nil {
		return err
	}
	if calculated != root {
		return fmt.Errorf("%w: expected %v, calculated %v", ErrRootMismatch, root, calculated)
	}
	return nil
}

type node struct {
	pos    uint64
	hash   crypto.Hash
	height uint32
}

// CalculateRoot computes the MMR root implied by the proof and leaves.
func (p Proof) CalculateRoot(leaves []Leaf) (crypto.Hash, error) {
	if len(leaves) == 0 {
		return crypto.Hash{}, fmt.Errorf("%w: no leaves", ErrInvalidLeaves)
	}
	if p.LeafCount == 0 {
		return crypto.Hash{}, fmt.Errorf("%w: empty range", ErrInvalidLeaves)
	}

	nodes := make([]node, 0, len(leaves))
	seen := make(map[uint64]struct{}, len(leaves))
	for _, l := range leaves {
		if l.Index >= p.LeafCount {
			return crypto.Hash{}, fmt.Errorf("%w: leaf index %d out of range %d", ErrInvalidLeaves, l.Index, p.LeafCount)
		}
		if _, ok := seen[l.Index]; ok {
			return crypto.Hash{}, fmt.Errorf("%w: duplicate leaf index %d", ErrInvalidLeaves, l.Index)
		}
		seen[l.Index] = struct{}{}
		nodes = append(nodes, node{pos: LeafIndexToPos(l.Index), hash: l.Hash})
	}

	peaks, err := calculatePeaksHashes(nodes, Size(p.LeafCount), p.Items)
	if err != nil {
		return crypto.Hash{}, err
	}
	return bagPeaks(peaks)
}

// proofIter hands out proof items in order.
type proofIter struct {
	items []crypto.Hash
}

func (it *proofIter) next() (crypto.Hash, bool) {
	if len(it.items) == 0 {
		return crypto.Hash{}, false
	}
	h := it.items[0]
	it.items = it.items[1:]
	return h, true
}

func calculatePeaksHashes(nodes []node, mmrSize uint64, items []crypto.Hash) ([]crypto.Hash, error) {
	// a single leaf range is its own root
	if mmrSize == 1 && len(nodes) == 1 && nodes[0].pos == 0 {
		if len(items) != 0 {
			return nil, ErrCorruptedProof
		}
		return []crypto.Hash{nodes[0].hash}, nil
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].pos < nodes[j].pos })

	it := &proofIter{items: items}
	peaks := getPeaks(mmrSize)
	peaksHashes := make([]crypto.Hash, 0, len(peaks)+1)
peaksLoop:
	for _, peakPos := range peaks {
		n := 0
		for n < len(nodes) && nodes[n].pos <= peakPos {
			n++
		}
		under := nodes[:n]
		nodes = nodes[n:]

		var peakRoot crypto.Hash
		switch {
		case len(under) == 1 && under[0].pos == peakPos:
			peakRoot = under[0].hash
		case len(under) == 0:
			// next item is a peak root or the bagged right-hand-side peaks
			h, ok := it.next()
			if !ok {
				// either all right peaks are bagged or the proof is short
				break peaksLoop
			}
			peakRoot = h
		default:
			var err error
			peakRoot, err = calculatePeakRoot(under, peakPos, it)
			if err != nil {
				return nil, err
			}
		}
		peaksHashes = append(peaksHashes, peakRoot)
	}

	if len(nodes) != 0 {
		return nil, ErrCorruptedProof
	}
	if rhs, ok := it.next(); ok {
		peaksHashes = append(peaksHashes, rhs)
	}
	if _, ok := it.next(); ok {
		return nil, ErrCorruptedProof
	}
	return peaksHashes, nil
}

func calculatePeakRoot(leaves []node, peakPos uint64, it *proofIter) (crypto.Hash, error) {
	queue := append([]node(nil), leaves...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.pos == peakPos {
			if len(queue) == 0 {
				return cur.hash, nil
			}
			return crypto.Hash{}, ErrCorruptedProof
		}

		var (
			parentPos  uint64
			parentHash crypto.Hash
		)
		if posHeightInTree(cur.pos+1) > cur.height {
			// cur is a right child
			sibPos := cur.pos - siblingOffset(cur.height)
			parentPos = cur.pos + 1
			sibling, err := takeSibling(&queue, sibPos, it)
			if err != nil {
				return crypto.Hash{}, err
			}
			parentHash = merge(sibling, cur.hash)
		} else {
			sibPos := cur.pos + siblingOffset(cur.height)
			parentPos = cur.pos + parentOffset(cur.height)
			sibling, err := takeSibling(&queue, sibPos, it)
			if err != nil {
				return crypto.Hash{}, err
			}
			parentHash = merge(cur.hash, sibling)
		}

		if parentPos > peakPos {
			return crypto.Hash{}, ErrCorruptedProof
		}
		queue = append(queue, node{pos: parentPos, hash: parentHash, height: cur.height + 1})
	}
	return crypto.Hash{}, ErrCorruptedProof
}

// takeSibling pops the sibling from the queue if it is there, otherwise from
// the proof items.
func takeSibling(queue *[]node, sibPos uint64, it *proofIter) (crypto.Hash, error) {
	if q := *queue; len(q) > 0 && q[0].pos == sibPos {
		*queue = q[1:]
		return q[0].hash, nil
	}
	h, ok := it.next()
	if !ok {
		return crypto.Hash{}, ErrCorruptedProof
	}
	return h, nil
}

// bagPeaks folds peaks from right to left with merge(right, left).
func bagPeaks(peaks []crypto.Hash) (crypto.Hash, error) {
	if len(peaks) == 0 {
		return crypto.Hash{}, ErrCorruptedProof
	}
	for len(peaks) > 1 {
		right := peaks[len(peaks)-1]
		left := peaks[len(peaks)-2]
		peaks = append(peaks[:len(peaks)-2], merge(right, left))
	}
	return peaks[0], nil
}

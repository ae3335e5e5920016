package huff0

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/ansflex/ansflex/hist"
)

// nodeElt is a node of the tree arena.
// Leaves have no children. Parents always have a left child.
type nodeElt struct {
	count  uint64
	left   int16
	right  int16
	symbol byte
	nbBits uint8
}

// Tree is a Huffman tree stored in a fixed arena.
// Leaves are at the start of the arena sorted ascending by count,
// parents are created from the end of the arena towards the start,
// so every parent sits at a lower index than its children.
// The root is always a parent.
type Tree struct {
	nodes   [huffNodesLen]nodeElt
	nLeaves int
	root    int
}

// BuildTree builds a Huffman tree for the symbols present in c.
func BuildTree(c *hist.Counts) (*Tree, error) {
	var t Tree
	if err := t.build(c); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tree) build(c *hist.Counts) error {
	nodes := t.nodes[:]
	n := 0
	for i, v := range c {
		if v == 0 {
			continue
		}
		nodes[n] = nodeElt{count: uint64(v), left: -1, right: -1, symbol: byte(i)}
		n++
	}
	if n == 0 {
		return fmt.Errorf("%w: no symbols", ErrIncompressible)
	}
	t.nLeaves = n
	slices.SortStableFunc(nodes[:n], func(a, b nodeElt) int {
		switch {
		case a.count < b.count:
			return -1
		case a.count > b.count:
			return 1
		}
		return 0
	})

	create := len(nodes) - 1
	if n == 1 {
		nodes[create] = nodeElt{count: nodes[0].count, left: 0, right: -1}
		nodes[0].nbBits = 1
		t.root = create
		return nil
	}

	// Merge the two cheapest of the leaf and parent frontiers.
	// Parents are created in non-decreasing count order.
	leaf, parent := 0, len(nodes)-1
	pick := func() int16 {
		if leaf < n && (parent <= create || nodes[leaf].count <= nodes[parent].count) {
			leaf++
			return int16(leaf - 1)
		}
		parent--
		return int16(parent + 1)
	}
	for i := 1; i < n; i++ {
		a := pick()
		b := pick()
		nodes[create] = nodeElt{count: nodes[a].count + nodes[b].count, left: a, right: b}
		create--
	}
	t.root = create + 1

	// Ancestors are at lower indices.
	nodes[t.root].nbBits = 0
	for i := t.root; i < len(nodes); i++ {
		p := &nodes[i]
		nodes[p.left].nbBits = p.nbBits + 1
		if p.right >= 0 {
			nodes[p.right].nbBits = p.nbBits + 1
		}
	}
	return nil
}

// NumLeaves returns the number of symbols in the tree.
func (t *Tree) NumLeaves() int {
	return t.nLeaves
}

// Depth returns the longest code length of the tree.
func (t *Tree) Depth() uint8 {
	var d uint8
	for _, n := range t.nodes[:t.nLeaves] {
		d = max(d, n.nbBits)
	}
	return d
}

// EstimateSize returns the size in bytes of the data coded with the tree.
func (t *Tree) EstimateSize() int {
	var total uint64
	for _, n := range t.nodes[:t.nLeaves] {
		total += n.count * uint64(n.nbBits)
	}
	return int((total + 7) / 8)
}

// MinimumTreeDepth returns the lowest height a tree with n leaves can have.
func MinimumTreeDepth(n int) uint8 {
	if n <= 2 {
		return 1
	}
	return uint8(bits.Len(uint(n - 1)))
}

// SetMaxHeight limits the code length of every leaf to maxHeight.
// The code lengths of parents are not updated.
func (t *Tree) SetMaxHeight(maxHeight uint8) error {
	if maxHeight > AbsoluteMaxBits {
		return fmt.Errorf("%w: height %d > %d", hist.ErrTableLogTooLarge, maxHeight, AbsoluteMaxBits)
	}
	if minDepth := MinimumTreeDepth(t.nLeaves); maxHeight < minDepth {
		return fmt.Errorf("%w: height %d < %d for %d symbols", ErrMaxHeightTooSmall, maxHeight, minDepth, t.nLeaves)
	}
	largestBits := t.Depth()
	if largestBits <= maxHeight {
		return nil
	}
	leaves := t.nodes[:t.nLeaves]

	// Clamp and count the debt in units of 2^-largestBits.
	baseCost := int64(1) << (largestBits - maxHeight)
	var debt int64
	for i := range leaves {
		if leaves[i].nbBits > maxHeight {
			debt += baseCost - int64(1)<<(largestBits-leaves[i].nbBits)
			leaves[i].nbBits = maxHeight
		}
	}
	// Now in units of 2^-maxHeight.
	debt >>= largestBits - maxHeight

	// Repay by moving the cheapest leaf of each level one level down.
	// A moved leaf may be moved again, so the deeper level is revisited.
	depth := maxHeight - 1
	for debt > 0 && depth > 0 {
		i := t.firstAt(depth)
		if i < 0 {
			depth--
			continue
		}
		leaves[i].nbBits++
		debt -= int64(1) << (maxHeight - depth - 1)
		if depth < maxHeight-1 {
			depth++
		}
	}
	if debt > 0 {
		return fmt.Errorf("huff0: unable to repay %d units of debt", debt)
	}

	// Paid too much. Move the most frequent leaves of the deepest
	// affordable level up until the code is complete.
	for debt < 0 {
		moved := false
		for depth := maxHeight; depth >= 2; depth-- {
			credit := int64(1) << (maxHeight - depth)
			if credit > -debt {
				break
			}
			if i := t.lastAt(depth); i >= 0 {
				leaves[i].nbBits--
				debt += credit
				moved = true
				break
			}
		}
		if !moved {
			return fmt.Errorf("huff0: unable to restore %d units of overpaid debt", -debt)
		}
	}
	return nil
}

// firstAt returns the index of the least frequent leaf with code length nbBits, or -1.
func (t *Tree) firstAt(nbBits uint8) int {
	for i, n := range t.nodes[:t.nLeaves] {
		if n.nbBits == nbBits {
			return i
		}
	}
	return -1
}

// lastAt returns the index of the most frequent leaf with code length nbBits, or -1.
func (t *Tree) lastAt(nbBits uint8) int {
	for i := t.nLeaves - 1; i >= 0; i-- {
		if t.nodes[i].nbBits == nbBits {
			return i
		}
	}
	return -1
}

// Table returns the canonical code table of the tree.
// Leaves with the same code length get consecutive values in arena order.
// Leaves deeper than AbsoluteMaxBits get no code, limit the tree first.
func (t *Tree) Table() CTable {
	var c CTable
	t.table(&c)
	return c
}

func (t *Tree) table(c *CTable) {
	var nbPerRank, valPerRank [AbsoluteMaxBits + 1]uint16
	leaves := t.nodes[:t.nLeaves]
	var maxNbBits uint8
	for _, n := range leaves {
		if n.nbBits > AbsoluteMaxBits {
			continue
		}
		nbPerRank[n.nbBits]++
		maxNbBits = max(maxNbBits, n.nbBits)
	}
	// Determine starting value per rank, from the deepest rank up.
	var start uint16
	for n := maxNbBits; n > 0; n-- {
		valPerRank[n] = start
		start += nbPerRank[n]
		start >>= 1
	}
	*c = CTable{}
	for _, n := range leaves {
		if n.nbBits > AbsoluteMaxBits {
			continue
		}
		c[n.symbol] = Code{Val: valPerRank[n.nbBits], NBits: n.nbBits}
		valPerRank[n.nbBits]++
	}
}

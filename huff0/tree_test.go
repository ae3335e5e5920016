package huff0

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ansflex/ansflex/hist"
)

func countsOf(in []byte) *hist.Counts {
	var c hist.Counts
	hist.CountSimple(in, &c)
	return &c
}

func repeat(pairs ...int) []byte {
	var b []byte
	for i := 0; i+1 < len(pairs); i += 2 {
		for j := 0; j < pairs[i+1]; j++ {
			b = append(b, byte(pairs[i]))
		}
	}
	return b
}

// kraft returns the sum of 2^(h-nbBits) over all leaves.
func kraft(t *Tree, h uint8) int {
	var sum int
	for _, n := range t.nodes[:t.nLeaves] {
		sum += 1 << (h - n.nbBits)
	}
	return sum
}

func TestTableExample(t *testing.T) {
	tree, err := BuildTree(countsOf(repeat(0, 14, 1, 7, 2, 3, 4, 1, 5, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.SetMaxHeight(11); err != nil {
		t.Fatal(err)
	}
	got := tree.Table()
	var want CTable
	want[0] = Code{Val: 1, NBits: 1}
	want[1] = Code{Val: 1, NBits: 2}
	want[2] = Code{Val: 1, NBits: 3}
	want[4] = Code{Val: 0, NBits: 4}
	want[5] = Code{Val: 1, NBits: 4}
	if !cmp.Equal(want, got) {
		t.Fatal(cmp.Diff(want, got))
	}
	if err := ValidatePrefix(&got); err != nil {
		t.Fatal(err)
	}
	if s := got[2].String(); s != "001" {
		t.Fatalf("want 001, got %s", s)
	}
	// 14*1 + 7*2 + 3*3 + 2*4 bits
	if got, want := tree.EstimateSize(), (14+14+9+8+7)/8; got != want {
		t.Fatalf("estimate: want %d, got %d", want, got)
	}
}

func TestBuildTree(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := BuildTree(&hist.Counts{}); !errors.Is(err, ErrIncompressible) {
			t.Fatalf("want ErrIncompressible, got %v", err)
		}
	})
	t.Run("single", func(t *testing.T) {
		tree, err := BuildTree(countsOf([]byte{255}))
		if err != nil {
			t.Fatal(err)
		}
		if tree.Depth() != 1 || tree.NumLeaves() != 1 {
			t.Fatalf("depth %d, leaves %d", tree.Depth(), tree.NumLeaves())
		}
		if err := tree.SetMaxHeight(11); err != nil {
			t.Fatal(err)
		}
		c := tree.Table()
		if c[255] != (Code{Val: 0, NBits: 1}) {
			t.Fatalf("got %+v", c[255])
		}
	})
	t.Run("fibonacci", func(t *testing.T) {
		fib := []int{1, 1, 2, 3, 5, 8, 13, 21}
		for n := 4; n <= len(fib); n++ {
			var pairs []int
			for i, v := range fib[:n] {
				pairs = append(pairs, i, v)
			}
			tree, err := BuildTree(countsOf(repeat(pairs...)))
			if err != nil {
				t.Fatal(err)
			}
			// The most frequent symbol is a child of the root.
			root := tree.nodes[tree.root]
			if root.left >= int16(tree.nLeaves) && root.right >= int16(tree.nLeaves) {
				t.Fatalf("%d symbols: no leaf below root", n)
			}
			if got, want := tree.Depth(), uint8(n-1); got != want {
				t.Fatalf("%d symbols: depth want %d, got %d", n, want, got)
			}
			validateTree(t, tree)
		}
	})
	t.Run("balanced", func(t *testing.T) {
		all := make([]byte, 256)
		for i := range all {
			all[i] = byte(i)
		}
		tree, err := BuildTree(countsOf(all))
		if err != nil {
			t.Fatal(err)
		}
		for _, n := range tree.nodes[:tree.nLeaves] {
			if n.nbBits != 8 {
				t.Fatalf("symbol %d: want 8 bits, got %d", n.symbol, n.nbBits)
			}
		}
		validateTree(t, tree)
	})
}

// validateTree checks that the tree is connected, children count less
// than their parents and the code table is a complete prefix code.
func validateTree(t *testing.T, tree *Tree) {
	t.Helper()
	seen := make(map[int]bool)
	var walk func(i int, depth uint8)
	walk = func(i int, depth uint8) {
		seen[i] = true
		n := tree.nodes[i]
		if i < tree.nLeaves {
			if n.nbBits != depth {
				t.Fatalf("leaf %d: depth %d, nbBits %d", i, depth, n.nbBits)
			}
			return
		}
		for _, c := range []int16{n.left, n.right} {
			if c < 0 {
				continue
			}
			if tree.nodes[c].count > n.count {
				t.Fatalf("child %d counts more than parent %d", c, i)
			}
			walk(int(c), depth+1)
		}
	}
	walk(tree.root, 0)
	if got, want := len(seen), 2*tree.nLeaves-1; tree.nLeaves > 1 && got != want {
		t.Fatalf("reached %d nodes, want %d", got, want)
	}
	if h := tree.Depth(); tree.nLeaves > 1 && kraft(tree, h) != 1<<h {
		t.Fatalf("incomplete code: %d != %d", kraft(tree, h), 1<<h)
	}
	c := tree.Table()
	if err := ValidatePrefix(&c); err != nil {
		t.Fatal(err)
	}
}

func TestMinimumTreeDepth(t *testing.T) {
	want := map[int]uint8{0: 1, 1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 6: 3, 7: 3, 8: 3, 9: 4, 256: 8}
	got := make(map[int]uint8, len(want))
	for n := range want {
		got[n] = MinimumTreeDepth(n)
	}
	if !cmp.Equal(want, got) {
		t.Fatal(cmp.Diff(want, got))
	}
}

func TestSetMaxHeight(t *testing.T) {
	for _, test := range []struct {
		name      string
		in        []byte
		maxHeight uint8
		wantBits  map[byte]uint8
	}{
		{
			// Four symbols at height 2 is a perfectly balanced tree.
			name:      "limits",
			in:        repeat(1, 1, 2, 1, 3, 2, 4, 7),
			maxHeight: 2,
			wantBits:  map[byte]uint8{1: 2, 2: 2, 3: 2, 4: 2},
		},
		{
			// The first level to repay from is empty.
			name:      "skip-level",
			in:        repeat(1, 1, 2, 1, 3, 2, 4, 2, 5, 2, 6, 14),
			maxHeight: 3,
		},
		{
			name:      "revisit",
			in:        repeat(1, 1, 2, 1, 3, 2, 4, 2, 5, 2, 6, 14, 7, 14),
			maxHeight: 4,
		},
		{
			name:      "multiple-levels",
			in:        repeat(1, 21, 2, 10, 3, 6, 4, 3, 5, 1, 6, 1),
			maxHeight: 3,
		},
		{
			name:      "all-minimum",
			in:        repeat(1, 1, 2, 1, 3, 2, 4, 2, 5, 3, 6, 9, 7, 9, 8, 1),
			maxHeight: 3,
			wantBits:  map[byte]uint8{1: 3, 2: 3, 3: 3, 4: 3, 5: 3, 6: 3, 7: 3, 8: 3},
		},
		{
			name:      "debt",
			in:        []byte{183, 47, 40, 107, 107, 93, 107, 107, 107, 107, 107, 107, 107, 107, 107, 107, 104, 58, 43},
			maxHeight: 3,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			tree, err := BuildTree(countsOf(test.in))
			if err != nil {
				t.Fatal(err)
			}
			if tree.Depth() <= test.maxHeight {
				t.Fatalf("tree depth %d does not need limiting to %d", tree.Depth(), test.maxHeight)
			}
			if err := tree.SetMaxHeight(test.maxHeight); err != nil {
				t.Fatal(err)
			}
			if got := tree.Depth(); got > test.maxHeight {
				t.Fatalf("depth %d > %d", got, test.maxHeight)
			}
			if got, want := kraft(tree, test.maxHeight), 1<<test.maxHeight; got != want {
				t.Fatalf("kraft sum %d != %d", got, want)
			}
			c := tree.Table()
			if err := ValidatePrefix(&c); err != nil {
				t.Fatal(err)
			}
			if test.wantBits != nil {
				got := make(map[byte]uint8)
				for sym, code := range c {
					if code.NBits != 0 {
						got[byte(sym)] = code.NBits
					}
				}
				if !cmp.Equal(test.wantBits, got) {
					t.Fatal(cmp.Diff(test.wantBits, got))
				}
			}
		})
	}
}

func TestSetMaxHeightTooSmall(t *testing.T) {
	tree, err := BuildTree(countsOf(repeat(1, 1, 2, 1, 3, 2, 4, 7, 5, 1)))
	if err != nil {
		t.Fatal(err)
	}
	before := tree.nodes
	if err := tree.SetMaxHeight(2); !errors.Is(err, ErrMaxHeightTooSmall) {
		t.Fatalf("want ErrMaxHeightTooSmall, got %v", err)
	}
	if before != tree.nodes {
		t.Fatal("tree modified")
	}
	if err := tree.SetMaxHeight(AbsoluteMaxBits + 1); !errors.Is(err, hist.ErrTableLogTooLarge) {
		t.Fatalf("want ErrTableLogTooLarge, got %v", err)
	}
}

func TestSetMaxHeightRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 300; i++ {
		var c hist.Counts
		n := 2 + rng.Intn(255)
		for j := 0; j < n; j++ {
			// Exponential counts give deep trees.
			c[rng.Intn(256)] = 1 + uint32(rng.ExpFloat64()*float64(1+rng.Intn(1000)))
		}
		tree, err := BuildTree(&c)
		if err != nil {
			t.Fatal(err)
		}
		depth := tree.Depth()
		if depth >= AbsoluteMaxBits || tree.NumLeaves() < 2 {
			continue
		}
		validateTree(t, tree)
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			for h := MinimumTreeDepth(tree.NumLeaves()); h <= depth+1; h++ {
				tr := *tree
				if err := tr.SetMaxHeight(h); err != nil {
					t.Fatalf("height %d: %v", h, err)
				}
				if h >= depth && tr.nodes != tree.nodes {
					t.Fatalf("height %d >= depth %d modified the tree", h, depth)
				}
				if got := tr.Depth(); got > h {
					t.Fatalf("depth %d > %d", got, h)
				}
				if got, want := kraft(&tr, h), 1<<h; got != want {
					t.Fatalf("height %d: kraft sum %d != %d", h, got, want)
				}
				ct := tr.Table()
				if err := ValidatePrefix(&ct); err != nil {
					t.Fatalf("height %d: %v", h, err)
				}
			}
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	var c CTable
	c['a'] = Code{Val: 1, NBits: 1}
	c['b'] = Code{Val: 1, NBits: 2}
	c['c'] = Code{Val: 0, NBits: 2}
	if err := ValidatePrefix(&c); err != nil {
		t.Fatal(err)
	}
	c['d'] = Code{Val: 0b11, NBits: 2}
	if err := ValidatePrefix(&c); !errors.Is(err, ErrPrefixViolation) {
		t.Fatalf("want ErrPrefixViolation, got %v", err)
	}
	c['d'] = Code{Val: 0b01, NBits: 2}
	if err := ValidatePrefix(&c); !errors.Is(err, ErrPrefixViolation) {
		t.Fatalf("duplicate: want ErrPrefixViolation, got %v", err)
	}
	c['d'] = Code{Val: 4, NBits: 2}
	if err := ValidatePrefix(&c); !errors.Is(err, ErrPrefixViolation) {
		t.Fatalf("oversized: want ErrPrefixViolation, got %v", err)
	}
}

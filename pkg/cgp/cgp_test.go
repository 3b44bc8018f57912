package cgp

import (
	"math/rand"
	"testing"
)

// allIdentity builds the S1 reference circuit: every node is FuncIdentity
// reading input 0, output wired to node (7,0).
func allIdentity(grid Grid) *Circuit {
	c := New(grid)
	for i := range c.Nodes {
		c.Nodes[i] = Node{Inputs: [2]int{0, 0}, Function: FuncIdentity}
	}
	c.Outputs[0] = grid.Inputs + grid.NodeIndex(7, 0)
	FindActive(c)
	return c
}

func TestBitwiseReferenceIdentity(t *testing.T) {
	grid := DefaultGrid
	c := allIdentity(grid)
	ev := NewEvaluator(grid)

	inputs := make([]Value, grid.Inputs)
	for i := range inputs {
		inputs[i] = Value(17 * i)
	}
	out := make([]Value, grid.Outputs)
	ev.Evaluate(c, inputs, out)

	if out[0] != inputs[0] {
		t.Fatalf("expected output to equal input 0 (%d), got %d", inputs[0], out[0])
	}

	// lane evaluation at SSE2 and AVX2 widths must agree with the scalar path.
	for _, width := range []int{LaneSSE2, LaneAVX2} {
		windows := make([]Value, width*grid.Inputs)
		for w := 0; w < width; w++ {
			copy(windows[w*grid.Inputs:], inputs)
		}
		outs := make([]Value, width*grid.Outputs)
		ev.EvaluateLane(c, width, windows, outs)
		for w := 0; w < width; w++ {
			if outs[w*grid.Outputs] != out[0] {
				t.Fatalf("lane width %d: lane %d diverged from scalar path", width, w)
			}
		}
	}
}

func TestActiveMaskSingleNode(t *testing.T) {
	grid := DefaultGrid
	c := New(grid)
	c.Outputs[0] = grid.Inputs + grid.NodeIndex(0, 0)
	FindActive(c)

	active := 0
	for _, n := range c.Nodes {
		if n.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly 1 active node, got %d", active)
	}
	if !c.Nodes[grid.NodeIndex(0, 0)].Active {
		t.Fatalf("expected node (0,0) to be active")
	}
}

func TestFindActiveIdempotent(t *testing.T) {
	grid := DefaultGrid
	rng := rand.New(rand.NewSource(1))
	c := New(grid)
	c.Randomize(rng)

	snapshot := make([]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		snapshot[i] = n.Active
	}
	FindActive(c)
	for i, n := range c.Nodes {
		if n.Active != snapshot[i] {
			t.Fatalf("node %d active flag changed across repeated FindActive calls", i)
		}
	}
}

func TestRandomizeProducesLegalAddresses(t *testing.T) {
	grid := DefaultGrid
	rng := rand.New(rand.NewSource(42))
	ab := NewAddressBook(grid)

	for trial := 0; trial < 50; trial++ {
		c := New(grid)
		c.Randomize(rng)

		for i := range c.Nodes {
			col := grid.NodeCol(i)
			legal := ab.legal[col]
			for _, in := range c.Nodes[i].Inputs {
				if !contains(legal, in) {
					t.Fatalf("node %d (col %d) has illegal input address %d", i, col, in)
				}
			}
			if int(c.Nodes[i].Function) >= FuncCount {
				t.Fatalf("node %d has out-of-range function %d", i, c.Nodes[i].Function)
			}
		}
		for _, out := range c.Outputs {
			if out < grid.Inputs || out >= grid.Inputs+grid.Nodes() {
				t.Fatalf("output address %d out of range", out)
			}
		}
	}
}

func contains(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

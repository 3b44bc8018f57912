package cgp

import "github.com/mwiglasz/coco/pkg/ga"

// AddressBook precomputes, per column, the legal set of input addresses a
// node in that column may read from: every primary input, plus every node
// in columns [max(0,col-LevelBack), col-1]. It is the Go counterpart of
// cgp_init's _allowed_gene_vals table.
type AddressBook struct {
	grid  Grid
	legal [][]int // legal[col] = slice of legal addresses for that column
}

// NewAddressBook builds the per-column legal-address table for grid.
func NewAddressBook(grid Grid) *AddressBook {
	ab := &AddressBook{grid: grid, legal: make([][]int, grid.Cols)}
	for col := 0; col < grid.Cols; col++ {
		minimum := grid.Rows*(col-grid.LevelBack) + grid.Inputs
		if minimum < grid.Inputs {
			minimum = grid.Inputs
		}
		maximum := grid.Rows*col + grid.Inputs

		vals := make([]int, 0, grid.Inputs+maximum-minimum)
		for v := 0; v < grid.Inputs; v++ {
			vals = append(vals, v)
		}
		for v := minimum; v < maximum; v++ {
			vals = append(vals, v)
		}
		ab.legal[col] = vals
	}
	return ab
}

// RandomizeGene overwrites gene (a flat index into the node-input/function
// genes followed by the output genes) with a uniformly random legal value,
// mirroring cgp_randomize_gene's exact indexing scheme.
func (ab *AddressBook) RandomizeGene(c *Circuit, gene int, rng ga.Rand) bool {
	g := c.Grid
	if gene >= g.ChrLength() {
		return false
	}

	outputsIndex := 3 * g.Nodes()
	if gene < outputsIndex {
		nodeIndex := gene / 3
		geneIndex := gene % 3
		col := g.NodeCol(nodeIndex)

		if geneIndex == 2 {
			c.Nodes[nodeIndex].Function = Func(rng.Intn(FuncCount))
			return c.Nodes[nodeIndex].Active
		}

		legal := ab.legal[col]
		c.Nodes[nodeIndex].Inputs[geneIndex] = legal[rng.Intn(len(legal))]
		return c.Nodes[nodeIndex].Active
	}

	index := gene - outputsIndex
	c.Outputs[index] = g.Inputs + rng.Intn(g.Nodes())
	return true
}

// FindActive marks every node transitively reachable from a primary output,
// matching cgp_find_active_blocks's two-pass backward walk exactly
// (including the primary-input guard on negative indices).
func FindActive(c *Circuit) {
	g := c.Grid

	for i := range c.Nodes {
		c.Nodes[i].Active = false
	}

	for _, out := range c.Outputs {
		idx := out - g.Inputs
		if idx >= 0 {
			c.Nodes[idx].Active = true
		}
	}

	for i := g.Nodes() - 1; i >= 0; i-- {
		if !c.Nodes[i].Active {
			continue
		}
		for _, in := range c.Nodes[i].Inputs {
			idx := in - g.Inputs
			if idx >= 0 {
				c.Nodes[idx].Active = true
			}
		}
	}
}

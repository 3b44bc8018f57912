// Package cgp implements the Cartesian Genetic Programming circuit genome
// and its evaluator: a grid of function nodes wired by integer addresses,
// backward-reachability active-node marking, point mutation, and a (1+λ)
// offspring operator.
package cgp

import (
	"fmt"

	"github.com/mwiglasz/coco/pkg/ga"
)

// Value is one 8-bit pixel/signal value flowing through a circuit.
type Value = uint8

// Func is one of the 16 node functions, in the order the original firmware
// enumerates them (value equality matters for circuit-file compatibility).
type Func int

const (
	FuncConst255 Func = iota
	FuncIdentity
	FuncInversion
	FuncOr
	FuncNot1Or2
	FuncAnd
	FuncNand
	FuncXor
	FuncRShift1
	FuncRShift2
	FuncSwap
	FuncAdd
	FuncAddSat
	FuncAvg
	FuncMax
	FuncMin

	FuncCount = int(FuncMin) + 1
)

// FuncNames mirrors cgp_func_name from the original dump module, used by
// pkg/circuitfile and by debug rendering.
var FuncNames = [FuncCount]string{
	"c255", "identity", "inversion", "or", "not1or2", "and", "nand", "xor",
	"rshift1", "rshift2", "swap", "add", "add_sat", "avg", "max", "min",
}

// Grid is the compile-time shape of every circuit produced by a given
// Evaluator: rows/columns of the node grid, level-back distance, and the
// number of primary inputs/outputs (node arity is fixed at 2). It stands in for
// the original's CGP_* preprocessor constants.
type Grid struct {
	Rows, Cols int
	LevelBack  int
	Inputs     int
	Outputs    int
}

// Nodes returns the total node count Rows*Cols.
func (g Grid) Nodes() int { return g.Rows * g.Cols }

// ChrLength returns the total gene count: 3 genes per node (2 inputs + 1
// function) plus one gene per output.
func (g Grid) ChrLength() int { return 3*g.Nodes() + g.Outputs }

// NodeIndex returns the flat index of the node at (col, row).
func (g Grid) NodeIndex(col, row int) int { return g.Rows*col + row }

// NodeCol returns the column of the node at the given flat index.
func (g Grid) NodeCol(index int) int { return index / g.Rows }

// DefaultGrid is the reference shape used by the bitwise S1 scenario: an
// 8x4 grid, level-back 1, 9 primary inputs (a 3x3 pixel window), 1 output.
var DefaultGrid = Grid{Rows: 4, Cols: 8, LevelBack: 1, Inputs: 9, Outputs: 1}

// Node is one grid function block.
type Node struct {
	Inputs   [2]int
	Function Func
	Active   bool
}

// Circuit is a CGP genome: a grid of nodes plus primary output addresses.
// It satisfies ga.Genome so the shared population substrate can evolve it.
type Circuit struct {
	Grid    Grid
	Nodes   []Node
	Outputs []int
}

// New allocates a zero-valued circuit for the given grid shape.
func New(grid Grid) *Circuit {
	return &Circuit{
		Grid:    grid,
		Nodes:   make([]Node, grid.Nodes()),
		Outputs: make([]int, grid.Outputs),
	}
}

// Clone implements ga.Genome.
func (c *Circuit) Clone() ga.Genome {
	dst := New(c.Grid)
	dst.CopyFrom(c)
	return dst
}

// CopyFrom implements ga.Genome.
func (c *Circuit) CopyFrom(src ga.Genome) {
	s := src.(*Circuit)
	copy(c.Nodes, s.Nodes)
	copy(c.Outputs, s.Outputs)
}

// Randomize implements ga.Genome: every gene is redrawn from its legal set.
func (c *Circuit) Randomize(rng ga.Rand) {
	addr := NewAddressBook(c.Grid)
	for gene := 0; gene < c.Grid.ChrLength(); gene++ {
		addr.RandomizeGene(c, gene, rng)
	}
	FindActive(c)
}

// Mutator bounds how many genes a single Mutate call may touch; the
// original keeps this cap as a CGP-module-global (_mutation_rate), here it
// is owned by Mutator and threaded through explicitly instead.
type Mutator struct {
	Grid     Grid
	MaxGenes int
	addr     *AddressBook
}

// NewMutator builds a mutator bound to grid with the given max mutated
// gene count per call. A maxGenes above the chromosome length is clamped to
// it, where the original asserts instead.
func NewMutator(grid Grid, maxGenes int) *Mutator {
	if maxGenes > grid.ChrLength() {
		maxGenes = grid.ChrLength()
	}
	return &Mutator{Grid: grid, MaxGenes: maxGenes, addr: NewAddressBook(grid)}
}

// Mutate performs 0..MaxGenes uniformly-chosen point mutations and
// refreshes the active mask, matching cgp_mutate_chr.
func (m *Mutator) Mutate(c *Circuit, rng ga.Rand) {
	n := rng.Intn(m.MaxGenes + 1)
	for i := 0; i < n; i++ {
		gene := rng.Intn(m.Grid.ChrLength())
		m.addr.RandomizeGene(c, gene, rng)
	}
	FindActive(c)
}

// Circuit.Mutate satisfies ga.Genome using a default one-gene mutator; the
// coordinator normally drives mutation through a shared *Mutator instead
// (so the mutation cap is configurable), but this keeps the type usable
// standalone and in tests.
func (c *Circuit) Mutate(rng ga.Rand) {
	NewMutator(c.Grid, 1).Mutate(c, rng)
}

// String renders the circuit compactly for debug logging.
func (c *Circuit) String() string {
	return fmt.Sprintf("Circuit{grid=%dx%d nodes=%d outputs=%v}", c.Grid.Cols, c.Grid.Rows, len(c.Nodes), c.Outputs)
}

package circuitfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mwiglasz/coco/pkg/cgp"
)

func sampleCircuit() *cgp.Circuit {
	grid := cgp.DefaultGrid
	c := cgp.New(grid)
	for i := range c.Nodes {
		c.Nodes[i] = cgp.Node{Inputs: [2]int{i % grid.Inputs, (i + 1) % grid.Inputs}, Function: cgp.Func(i % cgp.FuncCount)}
	}
	c.Outputs[0] = grid.Inputs + grid.NodeIndex(grid.Cols-1, 0)
	cgp.FindActive(c)
	return c
}

func TestDumpParseRoundTrip(t *testing.T) {
	want := sampleCircuit()

	var buf bytes.Buffer
	if err := Dump(&buf, want); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	got, err := Parse(&buf, want.Grid)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got.Outputs[0] != want.Outputs[0] {
		t.Fatalf("Outputs[0] = %d, want %d", got.Outputs[0], want.Outputs[0])
	}
	for i := range want.Nodes {
		if got.Nodes[i].Inputs != want.Nodes[i].Inputs || got.Nodes[i].Function != want.Nodes[i].Function {
			t.Fatalf("node %d = %+v, want %+v", i, got.Nodes[i], want.Nodes[i])
		}
	}
}

func TestParseRejectsShapeMismatch(t *testing.T) {
	c := sampleCircuit()
	var buf bytes.Buffer
	if err := Dump(&buf, c); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	other := c.Grid
	other.Cols++

	_, err := Parse(&buf, other)
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Parse with mismatched grid: got %v, want *ShapeMismatchError", err)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse(strings.NewReader("not a circuit file"), cgp.DefaultGrid)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Parse with garbage input: got %v, want *ParseError", err)
	}
}

func TestDumpASCIIArtActiveOnlySkipsInactiveBlocks(t *testing.T) {
	c := sampleCircuit()
	var full, active bytes.Buffer
	if err := DumpASCIIArt(&full, c, false); err != nil {
		t.Fatalf("DumpASCIIArt(full): %v", err)
	}
	if err := DumpASCIIArt(&active, c, true); err != nil {
		t.Fatalf("DumpASCIIArt(active): %v", err)
	}
	if full.String() == active.String() {
		t.Fatal("expected active-only rendering to differ from the full rendering")
	}
}

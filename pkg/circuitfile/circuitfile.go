// Package circuitfile (de)serializes a cgp.Circuit in the CGP-viewer
// compatible text format: a shape header followed by one parenthesized
// record per node and a final output record.
package circuitfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mwiglasz/coco/pkg/cgp"
)

var funcNames = [cgp.FuncCount]string{
	" FF ", "  a ", "FF-a", " or ", "~1|2", " and", "nand", " xor",
	"a>>1", "a>>2", "swap", " +  ", " +S ", " avg", " max", " min",
}

// Dump writes c to w in the CGP-viewer compatible format:
// "{I, O, C, R, arity, 1, Fcount}([idx] in0, in1, fn)...(out0, ...)".
func Dump(w io.Writer, c *cgp.Circuit) error {
	g := c.Grid
	if _, err := fmt.Fprintf(w, "{%d, %d, %d, %d, 2, 1, %d}", g.Inputs, g.Outputs, g.Cols, g.Rows, cgp.FuncCount); err != nil {
		return err
	}
	for i, n := range c.Nodes {
		if _, err := fmt.Fprintf(w, "([%d] %d, %d, %d)", g.Inputs+i, n.Inputs[0], n.Inputs[1], int(n.Function)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "("); err != nil {
		return err
	}
	for i, o := range c.Outputs {
		if i > 0 {
			if _, err := fmt.Fprint(w, ", "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%d", o); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, ")\n")
	return err
}

// DumpReadable writes a column-aligned, human-browsable rendering: one
// line per circuit row, node records followed by the matching output
// index when outputs fit one-per-row.
func DumpReadable(w io.Writer, c *cgp.Circuit) error {
	g := c.Grid
	fmt.Fprintf(w, "Inputs: %d\n", g.Inputs)
	fmt.Fprintf(w, "Outputs: %d\n", g.Outputs)
	fmt.Fprintf(w, "Size: %d x %d\n", g.Cols, g.Rows)
	fmt.Fprintf(w, "Blocks: 2-ary, 1 output(s), %d functions\n", cgp.FuncCount)

	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			i := g.NodeIndex(x, y)
			n := c.Nodes[i]
			fmt.Fprintf(w, "([%2d] %2d, %2d, %2d)  ", g.Inputs+i, n.Inputs[0], n.Inputs[1], int(n.Function))
		}
		if g.Outputs <= g.Rows && y < g.Outputs {
			fmt.Fprintf(w, "  (%2d)", c.Outputs[y])
		}
		fmt.Fprintln(w)
	}
	if g.Outputs > g.Rows {
		fmt.Fprint(w, "Primary outputs: (")
		for i, o := range c.Outputs {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprintf(w, "%d", o)
		}
		fmt.Fprint(w, ")\n")
	}
	return nil
}

// DumpASCIIArt renders c as a box-wiring diagram, one block per node,
// optionally skipping inactive blocks entirely.
func DumpASCIIArt(w io.Writer, c *cgp.Circuit, onlyActive bool) error {
	g := c.Grid
	fmt.Fprintf(w, "Inputs: %d\n", g.Inputs)
	fmt.Fprintf(w, "Outputs: %d\n", g.Outputs)
	fmt.Fprintf(w, "Size: %d x %d\n", g.Cols, g.Rows)
	fmt.Fprintf(w, "Blocks: 2-ary, 1 output(s), %d functions\n", cgp.FuncCount)

	fmt.Fprint(w, "     .--")
	for x := 0; x < g.Cols; x++ {
		fmt.Fprint(w, "----------------")
		if x == g.Cols-1 {
			fmt.Fprint(w, ".\n")
		} else {
			fmt.Fprint(w, "--")
		}
	}

	inCounter, outCounter := 0, 0
	inLabel := func() string {
		if inCounter < g.Inputs {
			s := fmt.Sprintf("[%2d]>| ", inCounter)
			inCounter++
			return s
		}
		return "     | "
	}
	outLabel := func() string {
		if outCounter < g.Outputs {
			s := fmt.Sprintf(">[%2d]", c.Outputs[outCounter])
			outCounter++
			return s
		}
		return ""
	}

	for y := 0; y < g.Rows; y++ {
		if y != 0 {
			fmt.Fprint(w, inLabel())
		} else {
			fmt.Fprint(w, "     | ")
		}
		fmt.Fprint(w, " ")
		for x := 0; x < g.Cols; x++ {
			n := c.Nodes[g.NodeIndex(x, y)]
			if onlyActive && !n.Active {
				fmt.Fprint(w, "                ")
			} else {
				fmt.Fprint(w, "    .----.      ")
			}
			if x == g.Cols-1 {
				fmt.Fprint(w, "|")
			} else {
				fmt.Fprint(w, "  ")
			}
		}
		if y != 0 {
			fmt.Fprint(w, outLabel())
		}
		fmt.Fprintln(w)

		fmt.Fprint(w, inLabel())
		for x := 0; x < g.Cols; x++ {
			i := g.NodeIndex(x, y)
			n := c.Nodes[i]
			if onlyActive && !n.Active {
				fmt.Fprint(w, "                ")
			} else {
				fmt.Fprintf(w, "[%2d]>|    |>[%2d]", n.Inputs[0], g.Inputs+i)
			}
			if x == g.Cols-1 {
				fmt.Fprint(w, " |")
			} else {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprint(w, outLabel())
		fmt.Fprintln(w)

		fmt.Fprint(w, inLabel())
		for x := 0; x < g.Cols; x++ {
			n := c.Nodes[g.NodeIndex(x, y)]
			if onlyActive && !n.Active {
				fmt.Fprint(w, "                ")
			} else {
				fmt.Fprintf(w, "[%2d]>|%s|     ", n.Inputs[1], funcNames[n.Function])
			}
			if x == g.Cols-1 {
				fmt.Fprint(w, " |")
			} else {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprint(w, outLabel())
		fmt.Fprintln(w)

		fmt.Fprint(w, inLabel())
		fmt.Fprint(w, " ")
		for x := 0; x < g.Cols; x++ {
			n := c.Nodes[g.NodeIndex(x, y)]
			if onlyActive && !n.Active {
				fmt.Fprint(w, "                ")
			} else {
				fmt.Fprint(w, "    '----'      ")
			}
			if x == g.Cols-1 {
				fmt.Fprint(w, "|")
			} else {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprint(w, outLabel())
		fmt.Fprintln(w)
	}

	fmt.Fprint(w, "     '--")
	for x := 0; x < g.Cols; x++ {
		fmt.Fprint(w, "----------------")
		if x == g.Cols-1 {
			fmt.Fprint(w, "'\n")
		} else {
			fmt.Fprint(w, "--")
		}
	}
	return nil
}

// ParseError distinguishes a malformed file from one whose shape header
// does not match the grid the caller expected to load into.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "circuitfile: " + e.Msg }

// ShapeMismatchError reports a header whose grid dimensions disagree with
// what the caller expected.
type ShapeMismatchError struct {
	Want, Got cgp.Grid
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("circuitfile: shape mismatch: file has %dx%d grid with %d inputs/%d outputs, expected %dx%d with %d inputs/%d outputs",
		e.Got.Cols, e.Got.Rows, e.Got.Inputs, e.Got.Outputs,
		e.Want.Cols, e.Want.Rows, e.Want.Inputs, e.Want.Outputs)
}

// Parse reads the CGP-viewer compatible format produced by Dump, checking
// the header shape against want. Level-back is not recoverable from the
// serialized form, so the returned circuit's Grid.LevelBack is copied
// from want.
func Parse(r io.Reader, want cgp.Grid) (*cgp.Circuit, error) {
	br := bufio.NewReader(r)
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(data))

	header, rest, ok := splitParen(s, '{', '}')
	if !ok {
		return nil, &ParseError{"missing shape header"}
	}
	fields := strings.Split(header, ",")
	if len(fields) != 7 {
		return nil, &ParseError{fmt.Sprintf("shape header has %d fields, want 7", len(fields))}
	}
	nums := make([]int, 7)
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, &ParseError{"non-numeric shape field: " + f}
		}
		nums[i] = n
	}
	got := cgp.Grid{Inputs: nums[0], Outputs: nums[1], Cols: nums[2], Rows: nums[3], LevelBack: want.LevelBack}
	if got.Inputs != want.Inputs || got.Outputs != want.Outputs || got.Cols != want.Cols || got.Rows != want.Rows {
		return nil, &ShapeMismatchError{Want: want, Got: got}
	}

	c := cgp.New(got)
	nodeCount := got.Rows * got.Cols
	for i := 0; i < nodeCount; i++ {
		var rec string
		rec, rest, ok = splitParen(rest, '(', ')')
		if !ok {
			return nil, &ParseError{fmt.Sprintf("missing node record %d", i)}
		}
		idx, a, b, fn, err := parseNodeRecord(rec)
		if err != nil {
			return nil, err
		}
		if idx != got.Inputs+i {
			return nil, &ParseError{fmt.Sprintf("node record %d has index %d, want %d", i, idx, got.Inputs+i)}
		}
		c.Nodes[i] = cgp.Node{Inputs: [2]int{a, b}, Function: cgp.Func(fn)}
	}

	outRec, _, ok := splitParen(rest, '(', ')')
	if !ok {
		return nil, &ParseError{"missing output record"}
	}
	outs := strings.Split(outRec, ",")
	if len(outs) != got.Outputs {
		return nil, &ParseError{fmt.Sprintf("output record has %d values, want %d", len(outs), got.Outputs)}
	}
	for i, o := range outs {
		n, err := strconv.Atoi(strings.TrimSpace(o))
		if err != nil {
			return nil, &ParseError{"non-numeric output value: " + o}
		}
		c.Outputs[i] = n
	}

	cgp.FindActive(c)
	return c, nil
}

// splitParen extracts the first open/close-delimited group from s,
// returning its inner text and the remainder of s after the closing
// delimiter.
func splitParen(s string, open, close byte) (inner, rest string, ok bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", s, false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start+1 : i], s[i+1:], true
			}
		}
	}
	return "", s, false
}

// parseNodeRecord parses "[idx] in0, in1, fn" (the leading "[idx]" may
// carry surrounding spaces, exactly as produced by Dump).
func parseNodeRecord(rec string) (idx, a, b, fn int, err error) {
	rec = strings.TrimSpace(rec)
	closeBracket := strings.IndexByte(rec, ']')
	if !strings.HasPrefix(strings.TrimSpace(rec), "[") || closeBracket < 0 {
		return 0, 0, 0, 0, &ParseError{"malformed node record: " + rec}
	}
	idxStr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rec)[:closeBracket], "["))
	idx, err = strconv.Atoi(idxStr)
	if err != nil {
		return 0, 0, 0, 0, &ParseError{"non-numeric node index: " + idxStr}
	}

	parts := strings.Split(rec[closeBracket+1:], ",")
	if len(parts) != 3 {
		return 0, 0, 0, 0, &ParseError{"node record has " + strconv.Itoa(len(parts)) + " fields, want 3"}
	}
	vals := make([]int, 3)
	for i, p := range parts {
		vals[i], err = strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, 0, &ParseError{"non-numeric node field: " + p}
		}
	}
	return idx, vals[0], vals[1], vals[2], nil
}

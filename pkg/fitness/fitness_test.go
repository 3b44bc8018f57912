package fitness

import (
	"testing"

	"github.com/mwiglasz/coco/pkg/cgp"
	"github.com/mwiglasz/coco/pkg/cpufeat"
	"github.com/mwiglasz/coco/pkg/predictor"
)

// sequenceRand returns Intn values from a fixed script, in order — enough
// control to pin exactly which circular offsets a test drives
// CircularPredictorFitness to try.
type sequenceRand struct {
	ints []int
	pos  int
}

func (r *sequenceRand) Intn(n int) int {
	v := r.ints[r.pos]
	r.pos++
	return v
}

func (r *sequenceRand) Float64() float64 { return 0 }

func identityCircuit(grid cgp.Grid) *cgp.Circuit {
	c := cgp.New(grid)
	for i := range c.Nodes {
		c.Nodes[i] = cgp.Node{Inputs: [2]int{0, 0}, Function: cgp.FuncIdentity}
	}
	c.Outputs[0] = grid.Inputs + grid.NodeIndex(7, 0)
	cgp.FindActive(c)
	return c
}

func TestEvalFullPerfectReconstruction(t *testing.T) {
	grid := cgp.DefaultGrid
	samples := make([]Sample, 50)
	for i := range samples {
		w := make([]cgp.Value, grid.Inputs)
		for j := range w {
			w[j] = cgp.Value((i + j) % 256)
		}
		samples[i] = Sample{Original: w[0], Window: w}
	}

	k := NewKernel(grid, samples, cpufeat.Features{})
	c := identityCircuit(grid)

	f := k.EvalFull(c)
	want := float64(255*255*len(samples))
	if float64(f) != want {
		t.Fatalf("EvalFull with perfect reconstruction = %v, want %v", f, want)
	}
}

func TestLaneAndScalarPathsAgree(t *testing.T) {
	grid := cgp.DefaultGrid
	samples := make([]Sample, 200)
	for i := range samples {
		w := make([]cgp.Value, grid.Inputs)
		for j := range w {
			w[j] = cgp.Value((i*7 + j*3) % 256)
		}
		samples[i] = Sample{Original: cgp.Value((i * 13) % 256), Window: w}
	}
	c := identityCircuit(grid)

	scalar := NewKernel(grid, samples, cpufeat.Features{})
	sse2 := NewKernel(grid, samples, cpufeat.Features{HasSSE2: true})
	avx2 := NewKernel(grid, samples, cpufeat.Features{HasSSE2: true, HasAVX2: true})

	fScalar := scalar.EvalFull(c)
	fSSE2 := sse2.EvalFull(c)
	fAVX2 := avx2.EvalFull(c)

	if fScalar != fSSE2 || fScalar != fAVX2 {
		t.Fatalf("lane dispatch diverged: scalar=%v sse2=%v avx2=%v", fScalar, fSSE2, fAVX2)
	}
}

// TestCircularPredictorFitnessConsidersIncumbentOffset pins the incumbent
// offset (0) as the only offset with a perfect (zero-error) phenotype, then
// forces the random trials to visit every other offset and nothing else.
// If the incumbent is never scored before the random trials (the bug this
// guards against), one of those strictly worse offsets would win by
// default since nothing better was ever compared against it.
func TestCircularPredictorFitnessConsidersIncumbentOffset(t *testing.T) {
	grid := cgp.DefaultGrid
	samples := make([]Sample, 4)
	vals := []struct{ window, original cgp.Value }{
		{10, 10}, // index 0: zero error
		{20, 20}, // index 1: zero error
		{30, 37}, // index 2: error
		{40, 52}, // index 3: error
	}
	for i, v := range vals {
		w := make([]cgp.Value, grid.Inputs)
		w[0] = v.window
		samples[i] = Sample{Original: v.original, Window: w}
	}

	k := NewKernel(grid, samples, cpufeat.Features{})
	c := identityCircuit(grid)

	// Offset 0 selects samples {0,1}, both zero-error: sumSq == 0, giving
	// the special-cased maximum fitness over 2 samples. Seed the archive
	// target with exactly that value so offset 0 is the unique best.
	archived := []ArchivedCircuit{{Circuit: c, OriginalFitness: psnrFitness(0, 2)}}

	meta := &predictor.Metadata{
		Encoding:           predictor.RepeatedCircular,
		MaxGeneValue:       len(samples) - 1,
		GenotypeLength:     4,
		GenotypeUsedLength: 2,
		MutationRate:       0.1,
	}
	p := predictor.New(meta)
	p.Randomize(&sequenceRand{ints: []int{0, 1, 2, 3}}) // genes = [0,1,2,3], offset 0

	if p.CircularOffset() != 0 {
		t.Fatalf("setup: CircularOffset() = %d, want 0", p.CircularOffset())
	}

	tries := &sequenceRand{ints: []int{1, 2, 3}} // never re-tries offset 0
	f := k.CircularPredictorFitness(p, archived, tries)

	if p.CircularOffset() != 0 {
		t.Fatalf("CircularOffset() after scoring = %d, want 0 (the incumbent, never beaten)", p.CircularOffset())
	}
	if f != 0 {
		t.Fatalf("CircularPredictorFitness = %v, want 0 (incumbent is a perfect match)", f)
	}
}

// Package fitness implements the PSNR-derived circuit fitness, the
// mean-absolute-deviation predictor fitness, and the eval-or-predict
// dispatch that lets the CGP loop score candidates against either the
// full image or the currently active fitness predictor.
package fitness

import (
	"math"

	"github.com/mwiglasz/coco/pkg/cgp"
	"github.com/mwiglasz/coco/pkg/cpufeat"
	"github.com/mwiglasz/coco/pkg/ga"
	"github.com/mwiglasz/coco/pkg/predictor"
)

// Sample is one training point: a 3x3 (or grid.Inputs-wide) noisy pixel
// window plus the corresponding original pixel it should reconstruct.
type Sample struct {
	Original cgp.Value
	Window   []cgp.Value // len == grid.Inputs
}

// Kernel evaluates circuits and predictors against a fixed training set.
// It owns the only cgp.Evaluator scratch buffer used in the hot path. EvalFull
// and EvalIndices still allocate small buffers on every call (the full
// index list, the lane window/output buffers, and one output slice per
// scalar sample); they are not pre-sized at construction.
type Kernel struct {
	grid    cgp.Grid
	samples []Sample
	eval    *cgp.Evaluator
	lane    int
}

// NewKernel builds a kernel over samples (typically one per image pixel,
// windows pre-extracted by pkg/imageio). The SIMD lane width is chosen
// once from the detected CPU features, mirroring the original selecting
// its SSE2/AVX2 code path at startup rather than per evaluation.
func NewKernel(grid cgp.Grid, samples []Sample, features cpufeat.Features) *Kernel {
	return &Kernel{
		grid:    grid,
		samples: samples,
		eval:    cgp.NewEvaluator(grid),
		lane:    features.PreferredLane(),
	}
}

// sqDiff squares the signed difference between two pixel values,
// computed as int to avoid uint8 wraparound before squaring.
func sqDiff(a, b cgp.Value) int {
	d := int(a) - int(b)
	return d * d
}

// sumSquaredDiffs computes the circuit's sum-of-squared-differences over
// the given sample indices, batching lane-width windows through
// EvaluateLane the way the original batches SSE2/AVX2 vectors, with a
// scalar remainder loop for the tail — unrolled the way
// ssdScalar in the retrieval pack's SSD reference kernel is, so the
// "vectorized" and scalar arithmetic are definitionally identical here.
func (k *Kernel) sumSquaredDiffs(c *cgp.Circuit, indices []int) float64 {
	lane := k.lane
	if lane <= 1 {
		return k.sumSquaredDiffsScalar(c, indices)
	}

	windowBuf := make([]cgp.Value, lane*k.grid.Inputs)
	outBuf := make([]cgp.Value, lane*k.grid.Outputs)

	var sum float64
	n := len(indices)
	batches := (n / lane) * lane
	i := 0
	for ; i < batches; i += lane {
		for l := 0; l < lane; l++ {
			copy(windowBuf[l*k.grid.Inputs:], k.samples[indices[i+l]].Window)
		}
		k.eval.EvaluateLane(c, lane, windowBuf, outBuf)
		for l := 0; l < lane; l++ {
			out := outBuf[l*k.grid.Outputs]
			sum += float64(sqDiff(out, k.samples[indices[i+l]].Original))
		}
	}

	for ; i < n; i++ {
		sum += float64(k.evalOne(c, indices[i]))
	}
	return sum
}

func (k *Kernel) evalOne(c *cgp.Circuit, sampleIndex int) int {
	s := k.samples[sampleIndex]
	out := make([]cgp.Value, k.grid.Outputs)
	k.eval.Evaluate(c, s.Window, out)
	return sqDiff(out[0], s.Original)
}

// sumSquaredDiffsScalar is the always-available fallback path, unrolled by
// 4 samples per iteration the way the pack's scalar SSD reference does.
func (k *Kernel) sumSquaredDiffsScalar(c *cgp.Circuit, indices []int) float64 {
	var sum float64
	n := len(indices)
	unrolled := (n / 4) * 4

	i := 0
	for ; i < unrolled; i += 4 {
		sum += float64(k.evalOne(c, indices[i]))
		sum += float64(k.evalOne(c, indices[i+1]))
		sum += float64(k.evalOne(c, indices[i+2]))
		sum += float64(k.evalOne(c, indices[i+3]))
	}
	for ; i < n; i++ {
		sum += float64(k.evalOne(c, indices[i]))
	}
	return sum
}

// allIndices returns 0..len(samples)-1, the index set EvalFull scores
// against when a component (e.g. a fresh archive insert) wants the full image.
func (k *Kernel) allIndices() []int {
	idx := make([]int, len(k.samples))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// psnrFitness converts a sum-of-squared-differences over n samples into the
// PSNR-derived fitness value 255^2 * N / sumSq, matching fitness_psnr.
// A perfect reconstruction (sumSq == 0) is treated as the theoretical
// maximum rather than +Inf, keeping archive comparisons well-defined.
func psnrFitness(sumSq float64, n int) ga.Fitness {
	if sumSq == 0 {
		return ga.Fitness(255 * 255 * float64(n))
	}
	return ga.Fitness(255 * 255 * float64(n) / sumSq)
}

// ToPSNR converts a fitness value back to decibels, matching
// fitness_to_psnr.
func ToPSNR(f ga.Fitness) float64 {
	return 10 * math.Log10(float64(f))
}

// FromPSNR is ToPSNR's inverse, used to resolve a --target-psnr flag into
// the same fitness units EvalFull/EvalIndices produce.
func FromPSNR(psnr float64) float64 {
	return math.Pow(10, psnr/10)
}

// EvalFull scores c against every sample, the expensive authoritative
// evaluation used when a circuit enters the CGP archive.
func (k *Kernel) EvalFull(c *cgp.Circuit) ga.Fitness {
	idx := k.allIndices()
	return psnrFitness(k.sumSquaredDiffs(c, idx), len(idx))
}

// EvalIndices scores c against only the given sample indices — the cheap
// path used when a fitness predictor's phenotype supplies the indices.
func (k *Kernel) EvalIndices(c *cgp.Circuit, indices []int) ga.Fitness {
	return psnrFitness(k.sumSquaredDiffs(c, indices), len(indices))
}

// ActivePredictor is the minimal surface EvalOrPredict needs from whatever
// sits in predictor-archive slot 0 — decoupling this package from
// pkg/archive's concrete type.
type ActivePredictor interface {
	Pixels() []int
}

// EvalOrPredict scores c against the full image if active is nil
// (predictor archive empty), otherwise against active's phenotype —
// mirroring fitness_eval_or_predict_cgp.
func (k *Kernel) EvalOrPredict(c *cgp.Circuit, active ActivePredictor) ga.Fitness {
	if active == nil {
		return k.EvalFull(c)
	}
	return k.EvalIndices(c, active.Pixels())
}

// ArchivedCircuit is the minimal surface PredictorFitness needs from each
// CGP archive entry: its genome and the fitness it was stored with.
type ArchivedCircuit struct {
	Circuit         *cgp.Circuit
	OriginalFitness ga.Fitness
}

// PredictorFitness scores a predictor genome by mean absolute deviation
// between each archived circuit's stored fitness and that circuit's
// fitness re-scored under this predictor's phenotype — predictors are
// rewarded for tracking the archive, and lower is better (minimization),
// matching fitness_eval_predictor_genome's contract.
func (k *Kernel) PredictorFitness(p *predictor.Genome, archived []ArchivedCircuit) ga.Fitness {
	if len(archived) == 0 {
		return 0
	}
	indices := p.Pixels()
	var sum float64
	for _, entry := range archived {
		predicted := k.EvalIndices(entry.Circuit, indices)
		sum += math.Abs(float64(predicted - entry.OriginalFitness))
	}
	return ga.Fitness(sum / float64(len(archived)))
}

// CircularPredictorFitness scores a repeated-circular predictor by trying
// CircularTries random starting loci, keeping whichever scores best, and
// committing that offset to p — mirroring fitness_eval_circular_predictor.
func (k *Kernel) CircularPredictorFitness(p *predictor.Genome, archived []ArchivedCircuit, rng ga.Rand) ga.Fitness {
	bestOffset := p.CircularOffset()
	p.TryOffset(bestOffset)
	bestFitness := k.PredictorFitness(p, archived)

	genotypeLen := p.Meta.GenotypeLength

	for try := 0; try < predictor.CircularTries; try++ {
		offset := rng.Intn(genotypeLen)
		p.TryOffset(offset)
		f := k.PredictorFitness(p, archived)
		if f < bestFitness {
			bestFitness = f
			bestOffset = offset
		}
	}

	p.TryOffset(bestOffset)
	return bestFitness
}

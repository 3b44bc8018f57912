// Package runner wires a resolved configuration into a running
// coevolution: load images, build populations and archives, seed them
// with one initial evaluation, hand everything to pkg/coevo, and write
// the completion artifacts once it stops.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/mwiglasz/coco/pkg/archive"
	"github.com/mwiglasz/coco/pkg/cgp"
	"github.com/mwiglasz/coco/pkg/circuitfile"
	"github.com/mwiglasz/coco/pkg/coevo"
	"github.com/mwiglasz/coco/pkg/config"
	"github.com/mwiglasz/coco/pkg/cpufeat"
	"github.com/mwiglasz/coco/pkg/fitness"
	"github.com/mwiglasz/coco/pkg/ga"
	"github.com/mwiglasz/coco/pkg/history"
	"github.com/mwiglasz/coco/pkg/imageio"
	"github.com/mwiglasz/coco/pkg/logging"
	"github.com/mwiglasz/coco/pkg/predictor"
)

// Result is everything a caller needs after a run stops: why it stopped,
// the best circuit found, and the kernel it was scored with (so a caller
// can re-derive PSNR or re-filter an image without re-decoding anything).
type Result struct {
	Reason       string
	SignalNumber int
	Best         *cgp.Circuit
	Fitness      ga.Fitness
	Generation   int
	CGPEvals     int64
	Kernel       *fitness.Kernel
	Original     *imageio.Image
	Noisy        *imageio.Image
}

// goRand adapts *rand.Rand to ga.Rand.
type goRand struct{ *rand.Rand }

// Run loads cfg's images, builds the evolutionary state, and drives it to
// completion. onStart, if non-nil, is called with the coordinator once it
// exists but before the (blocking) evolutionary run starts, so a caller
// that needs to act on the live run concurrently — the CLI's signal
// handler, which tracks the current generation and can request a
// signal-attributed stop — can capture it.
func Run(ctx context.Context, cfg config.Config, bus *logging.Bus, onStart func(*coevo.Coordinator)) (*Result, error) {
	original, err := imageio.Decode(cfg.InputImage)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	noisy, err := imageio.Decode(cfg.NoisyImage)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	samples, err := imageio.BuildSamples(original, noisy)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cgpRand := goRand{rand.New(rand.NewSource(seed))}
	predRand := goRand{rand.New(rand.NewSource(seed + 1))}

	features := cpufeat.Detect()
	grid := cgp.DefaultGrid
	kernel := fitness.NewKernel(grid, samples, features)

	cgpPop := make(ga.Population, cfg.CGPPopulationSize)
	for i := range cgpPop {
		c := cgp.New(grid)
		c.Randomize(cgpRand)
		cgpPop[i] = ga.NewChromosome(c)
	}
	mutator := cgp.NewMutator(grid, cfg.CGPMutateGenes)

	cgpArchive := archive.New(cfg.CGPArchiveSize, ga.Maximize,
		func(g ga.Genome) ga.Fitness { return kernel.EvalFull(g.(*cgp.Circuit)) },
		func() ga.Genome { return cgp.New(grid) })

	state := coevo.State{CGPPopulation: cgpPop, CGPMutator: mutator, CGPArchive: cgpArchive}

	var meta *predictor.Metadata
	if cfg.Algorithm != config.AlgorithmCGP {
		imgSize := original.Width * original.Height
		predMinSize := int(cfg.PredMinSize * float64(imgSize))
		predMaxSize := int(cfg.PredSize * float64(imgSize))

		isCircular := cfg.PredGenomeType == predictor.RepeatedCircular
		predInitialSize := predMaxSize
		if cfg.PredInitialSize != 0 && (cfg.Algorithm == config.AlgorithmBaldwin || isCircular) {
			predInitialSize = int(cfg.PredInitialSize * float64(imgSize))
		}

		if cfg.Algorithm == config.AlgorithmBaldwin {
			if cfg.Baldwin.MinLength < 0 {
				cfg.Baldwin.MinLength = predMinSize
			}
			if cfg.Baldwin.MaxLength == 0 {
				cfg.Baldwin.MaxLength = predMaxSize
			}
		}

		meta = &predictor.Metadata{
			Encoding:           cfg.PredGenomeType,
			MaxGeneValue:       imgSize - 1,
			GenotypeLength:     predMaxSize,
			GenotypeUsedLength: predInitialSize,
			MutationRate:       cfg.PredMutationRate,
			OffspringElite:     cfg.PredOffspringElite,
			OffspringCombine:   cfg.PredOffspringCombine,
		}

		predPop := make(ga.Population, cfg.PredPopulationSize)
		for i := range predPop {
			p := predictor.New(meta)
			p.Randomize(predRand)
			predPop[i] = ga.NewChromosome(p)
		}

		// predScratch is Offspring's other ping-pong buffer: pre-built here
		// so the predictor loop never allocates a genome once running.
		predScratch := make(ga.Population, cfg.PredPopulationSize)
		for i := range predScratch {
			predScratch[i] = ga.NewChromosome(predictor.New(meta))
		}

		predArchive := archive.New(1, ga.Minimize, nil, func() ga.Genome { return predictor.New(meta) })

		state.PredPopulation = predPop
		state.PredScratch = predScratch
		state.PredMeta = meta
		state.PredArchive = predArchive
	}

	evaluator := ga.NewParallelEvaluator(func(ctx context.Context, g ga.Genome) (ga.Fitness, error) {
		c := g.(*cgp.Circuit)
		if cfg.Algorithm == config.AlgorithmCGP || state.PredArchive.Stored() == 0 {
			return kernel.EvalFull(c), nil
		}
		p := state.PredArchive.Get(0).Genome.(*predictor.Genome)
		return kernel.EvalIndices(c, p.Pixels()), nil
	}, 0)
	if err := evaluator.EvaluatePopulation(ctx, cgpPop); err != nil {
		return nil, fmt.Errorf("runner: initial cgp evaluation: %w", err)
	}

	if cfg.Algorithm != config.AlgorithmCGP {
		bestIdx := ga.Best(cgpPop, ga.Maximize)
		cgpArchive.Insert(cgpPop[bestIdx])

		predEvaluator := ga.NewParallelEvaluator(func(ctx context.Context, g ga.Genome) (ga.Fitness, error) {
			p := g.(*predictor.Genome)
			archived := make([]fitness.ArchivedCircuit, cgpArchive.Stored())
			for i := range archived {
				archived[i] = fitness.ArchivedCircuit{
					Circuit:         cgpArchive.Get(i).Genome.(*cgp.Circuit),
					OriginalFitness: cgpArchive.OriginalFitness(i),
				}
			}
			if p.Meta.Encoding == predictor.RepeatedCircular {
				return kernel.CircularPredictorFitness(p, archived, predRand), nil
			}
			return kernel.PredictorFitness(p, archived), nil
		}, 0)
		if err := predEvaluator.EvaluatePopulation(ctx, state.PredPopulation); err != nil {
			return nil, fmt.Errorf("runner: initial predictor evaluation: %w", err)
		}
		predBestIdx := ga.Best(state.PredPopulation, ga.Minimize)
		state.PredArchive.Insert(state.PredPopulation[predBestIdx])
	}

	hist := history.New()
	coordinator := coevo.New(cfg, kernel, state, hist, bus, cgpRand, predRand)
	if onStart != nil {
		onStart(coordinator)
	}

	reason, err := coordinator.Run(ctx)
	if err != nil {
		return nil, err
	}

	var best *cgp.Circuit
	var bestFitness ga.Fitness
	if cfg.Algorithm == config.AlgorithmCGP {
		idx := ga.Best(cgpPop, ga.Maximize)
		best = cgpPop[idx].Genome.(*cgp.Circuit)
		bestFitness = cgpPop[idx].Fitness
	} else {
		best = cgpArchive.BestEver().Genome.(*cgp.Circuit)
		bestFitness = cgpArchive.BestEver().Fitness
	}

	return &Result{
		Reason:       reason,
		SignalNumber: coordinator.SignalNumber(),
		Best:         best,
		Fitness:      bestFitness,
		Generation:   hist.Last().Generation,
		CGPEvals:     hist.Last().CGPEvals,
		Kernel:       kernel,
		Original:     original,
		Noisy:        noisy,
	}, nil
}

// WriteArtifacts writes the completion artifacts a finished run leaves
// behind in dir: best_circuit.txt/.chr, summary.log, and the three PNGs,
// mirroring logger_summary's handle_finished.
func WriteArtifacts(dir string, res *Result) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	txt, err := os.Create(filepath.Join(dir, "best_circuit.txt"))
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	fmt.Fprintf(txt, "Generation: %d\n", res.Generation)
	fmt.Fprintf(txt, "Fitness: %f\n\n", float64(res.Fitness))
	fmt.Fprint(txt, "CGP Viewer format:\n")
	circuitfile.Dump(txt, res.Best)
	fmt.Fprint(txt, "\nASCII Art:\n")
	circuitfile.DumpASCIIArt(txt, res.Best, false)
	fmt.Fprint(txt, "\nASCII Art without inactive blocks:\n")
	circuitfile.DumpASCIIArt(txt, res.Best, true)
	txt.Close()

	chr, err := os.Create(filepath.Join(dir, "best_circuit.chr"))
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	circuitfile.Dump(chr, res.Best)
	chr.Close()

	summary, err := os.Create(filepath.Join(dir, "summary.log"))
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	fmt.Fprint(summary, "Final summary:\n\n")
	fmt.Fprintf(summary, "Generation: %d\n", res.Generation)
	fmt.Fprintf(summary, "Best fitness: %f\n", float64(res.Fitness))
	fmt.Fprintf(summary, "PSNR: %.2f\n", fitness.ToPSNR(res.Fitness))
	fmt.Fprintf(summary, "CGP evaluations: %d\n", res.CGPEvals)
	summary.Close()

	if err := imageio.EncodePNG(filepath.Join(dir, "img_original.png"), res.Original); err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	if err := imageio.EncodePNG(filepath.Join(dir, "img_noisy.png"), res.Noisy); err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	best := imageio.ApplyCircuit(res.Best, res.Noisy)
	if err := imageio.EncodePNG(filepath.Join(dir, "img_best.png"), best); err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	return nil
}

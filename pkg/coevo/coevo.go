// Package coevo implements the two-loop coevolution coordinator: a CGP
// (1+λ) loop and a fitness-predictor loop running as independent
// goroutines, synchronized by three named locks in a fixed acquisition
// order, plus the Baldwin-effect predictor-resize handoff between them.
//
// This is the most load-bearing package in the module: every other
// package is a building block the coordinator wires together into the
// actual coevolutionary run.
package coevo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mwiglasz/coco/pkg/archive"
	"github.com/mwiglasz/coco/pkg/baldwin"
	"github.com/mwiglasz/coco/pkg/cgp"
	"github.com/mwiglasz/coco/pkg/config"
	"github.com/mwiglasz/coco/pkg/fitness"
	"github.com/mwiglasz/coco/pkg/ga"
	"github.com/mwiglasz/coco/pkg/history"
	"github.com/mwiglasz/coco/pkg/logging"
	"github.com/mwiglasz/coco/pkg/predictor"
)

// State is the mutable evolutionary state the coordinator drives. Callers
// (internal/runner) build it from a resolved Config, seed both archives
// with one initial evaluation, then hand it to New.
type State struct {
	CGPPopulation ga.Population
	CGPMutator    *cgp.Mutator
	CGPArchive    *archive.Archive

	PredPopulation ga.Population
	// PredScratch is the predictor loop's other offspring buffer: Offspring
	// writes the next generation into it and the two are ping-ponged, so no
	// genome is allocated once both have been built once at startup.
	PredScratch ga.Population
	PredMeta    *predictor.Metadata
	PredArchive *archive.Archive
}

// Coordinator runs the two evolutionary loops. Its three named locks are
// always acquired in this order when more than one is needed at once:
// baldwin (outermost, taken only by the predictor loop while applying a
// resize), then cgpArchivePredPop, then predArchiveCgpPop — matching the
// nesting the original's #pragma omp critical sections use, so a
// reviewer cross-checking lock order against algo.c finds the same
// order here.
type Coordinator struct {
	cfg    config.Config
	kernel *fitness.Kernel
	state  State
	hist   *history.History
	bus    *logging.Bus

	cgpRand  ga.Rand
	predRand ga.Rand

	// cgpArchivePredPop guards the CGP archive against concurrent reads
	// from the predictor loop (which re-scores predictors against it).
	cgpArchivePredPop sync.Mutex
	// predArchiveCgpPop guards the predictor archive's slot 0 (the
	// active predictor) against concurrent reads from the CGP loop
	// (which scores circuits against it).
	predArchiveCgpPop sync.Mutex
	// baldwin guards the pending predictor-length handoff between loops.
	baldwin sync.Mutex

	finished       atomic.Bool
	finishReason   atomic.Value // string
	externalSignal atomic.Int32 // the syscall.Signal StopSignal was called with, 0 if none

	cgpGeneration atomic.Int64
	cgpEvals      atomic.Int64

	baldwinNewLength     int
	baldwinLastAppliedAt int
}

// New builds a coordinator ready to Run. history should already contain
// whatever initial entry the caller wants CalcEntry's first Append to
// diff against (history.New's zeroed entry is the usual choice).
func New(cfg config.Config, kernel *fitness.Kernel, state State, hist *history.History, bus *logging.Bus, cgpRand, predRand ga.Rand) *Coordinator {
	return &Coordinator{cfg: cfg, kernel: kernel, state: state, hist: hist, bus: bus, cgpRand: cgpRand, predRand: predRand}
}

// Stop requests cooperative shutdown; both loops notice at their next
// generation boundary and exit with finish reason "external_stop".
func (co *Coordinator) Stop() {
	co.finished.Store(true)
	co.finishReason.CompareAndSwap(nil, "external_stop")
}

// StopSignal requests cooperative shutdown attributing it to sig, so the
// eventual EventSignal/EventStop and the run's finish reason ("signal")
// carry the real signal number instead of a placeholder. Used by the CLI's
// signal handler for SIGINT/SIGTERM/SIGXCPU.
func (co *Coordinator) StopSignal(sig syscall.Signal) {
	co.externalSignal.Store(int32(sig))
	co.finished.Store(true)
	co.finishReason.CompareAndSwap(nil, "signal")
}

// SignalNumber returns the signal StopSignal was called with, or 0 if the
// run did not stop because of a signal.
func (co *Coordinator) SignalNumber() int { return int(co.externalSignal.Load()) }

// Generation returns the CGP loop's current generation counter. Safe to
// call concurrently; used by the CLI's signal handler to judge whether a
// repeated SIGINT falls within the forced-stop escalation window.
func (co *Coordinator) Generation() int { return int(co.cgpGeneration.Load()) }

// Run drives both loops until a stop condition is reached (generation
// limit, target fitness, ctx cancellation, or an explicit Stop call),
// and returns the reason the run ended.
func (co *Coordinator) Run(ctx context.Context) (string, error) {
	predEvaluator := ga.NewParallelEvaluator(co.predEvalFunc(), 0)
	cgpEvaluator := ga.NewParallelEvaluator(co.cgpEvalFunc(), 0)

	var wg sync.WaitGroup
	var cgpErr error

	if co.cfg.Algorithm != config.AlgorithmCGP {
		wg.Add(1)
		go func() {
			defer wg.Done()
			co.predLoop(ctx, predEvaluator)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		cgpErr = co.cgpLoop(ctx, cgpEvaluator)
	}()

	wg.Wait()

	reason, _ := co.finishReason.Load().(string)
	return reason, cgpErr
}

// activePredictor returns the predictor currently sitting in archive
// slot 0, or nil when running plain CGP or before the archive has been
// seeded.
func (co *Coordinator) activePredictor() fitness.ActivePredictor {
	if co.cfg.Algorithm == config.AlgorithmCGP {
		return nil
	}
	if co.state.PredArchive.Stored() == 0 {
		return nil
	}
	return co.state.PredArchive.Get(0).Genome.(*predictor.Genome)
}

// archivedCircuits snapshots the CGP archive into the shape
// fitness.PredictorFitness/CircularPredictorFitness need. Callers must
// hold cgpArchivePredPop.
func (co *Coordinator) archivedCircuits() []fitness.ArchivedCircuit {
	n := co.state.CGPArchive.Stored()
	out := make([]fitness.ArchivedCircuit, n)
	for i := 0; i < n; i++ {
		out[i] = fitness.ArchivedCircuit{
			Circuit:         co.state.CGPArchive.Get(i).Genome.(*cgp.Circuit),
			OriginalFitness: co.state.CGPArchive.OriginalFitness(i),
		}
	}
	return out
}

func (co *Coordinator) cgpEvalFunc() ga.EvalFunc {
	return func(ctx context.Context, g ga.Genome) (ga.Fitness, error) {
		co.cgpEvals.Add(1)
		c := g.(*cgp.Circuit)
		return co.kernel.EvalOrPredict(c, co.activePredictor()), nil
	}
}

func (co *Coordinator) predEvalFunc() ga.EvalFunc {
	return func(ctx context.Context, g ga.Genome) (ga.Fitness, error) {
		p := g.(*predictor.Genome)
		archived := co.archivedCircuits()
		if p.Meta.Encoding == predictor.RepeatedCircular {
			return co.kernel.CircularPredictorFitness(p, archived, co.predRand), nil
		}
		return co.kernel.PredictorFitness(p, archived), nil
	}
}

func (co *Coordinator) targetFitness() (ga.Fitness, bool) {
	if co.cfg.TargetPSNR != 0 {
		return ga.Fitness(fitness.FromPSNR(co.cfg.TargetPSNR)), true
	}
	if co.cfg.TargetFitness != 0 {
		return ga.Fitness(co.cfg.TargetFitness), true
	}
	return 0, false
}

func (co *Coordinator) shouldApplyBaldwin(isBetter bool, generation int) bool {
	if co.cfg.Algorithm != config.AlgorithmBaldwin {
		return false
	}
	diff := generation - co.baldwinLastAppliedAt
	return isBetter || (co.cfg.BaldwinInterval > 0 && diff >= co.cfg.BaldwinInterval)
}

// cgpLoop implements the CGP (1+λ) evolutionary loop: advance a
// generation, check stop conditions, update the CGP archive and
// predictor population on improvement, run the Baldwin cascade, append
// history, and publish events — mirroring cgp_main's ordering exactly,
// including firing the stop-signal event exactly once per generation
// rather than twice.
func (co *Coordinator) cgpLoop(ctx context.Context, evaluator *ga.ParallelEvaluator) error {
	co.bus.Publish(logging.Event{Kind: logging.EventStarted, Entry: co.hist.Last()})

	bestIdx := ga.Best(co.state.CGPPopulation, ga.Maximize)
	target, hasTarget := co.targetFitness()

	for !co.finished.Load() {
		var cgpParentFitness ga.Fitness
		var evalErr error

		co.predArchiveCgpPop.Lock()
		cgpParentFitness = co.state.CGPPopulation[bestIdx].Fitness
		cgp.Offspring(co.state.CGPPopulation, bestIdx, co.state.CGPMutator, co.cgpRand)
		evalErr = evaluator.EvaluatePopulation(ctx, co.state.CGPPopulation)
		bestIdx = ga.Best(co.state.CGPPopulation, ga.Maximize)
		generation := int(co.cgpGeneration.Add(1))
		co.predArchiveCgpPop.Unlock()

		if evalErr != nil {
			return fmt.Errorf("coevo: cgp generation %d: %w", generation, evalErr)
		}

		receivedStop := ctx.Err() != nil || co.externalSignal.Load() != 0
		var finishReason string

		if co.cfg.MaxGenerations > 0 && generation >= co.cfg.MaxGenerations {
			finishReason = "generation_limit"
			co.finished.Store(true)
		}
		if hasTarget && co.state.CGPPopulation[bestIdx].Fitness >= target {
			finishReason = "target_fitness"
			co.finished.Store(true)
		}
		if receivedStop {
			finishReason = "signal"
			co.finished.Store(true)
		}
		if finishReason != "" {
			co.finishReason.CompareAndSwap(nil, finishReason)
		}

		isBetter := ga.IsBetter(ga.Maximize, co.state.CGPPopulation[bestIdx].Fitness, cgpParentFitness)
		logTickNow := co.cfg.LogInterval > 0 && generation%co.cfg.LogInterval == 0
		applyBaldwinNow := co.shouldApplyBaldwin(isBetter, generation)
		needHistoryAppend := isBetter || applyBaldwinNow
		needHistoryCalc := needHistoryAppend || logTickNow || receivedStop || co.finished.Load()

		var predictedFitness, realFitness ga.Fitness
		best := co.state.CGPPopulation[bestIdx]

		if co.cfg.Algorithm == config.AlgorithmCGP {
			predictedFitness = -1
			realFitness = best.Fitness
		} else {
			predictedFitness = best.Fitness
			if isBetter {
				co.cgpArchivePredPop.Lock()
				archived := co.state.CGPArchive.Insert(best)
				realFitness = archived.Fitness

				co.reevaluatePredPopulationLocked(ctx)

				co.predArchiveCgpPop.Lock()
				co.reevaluatePredArchiveSlot0Locked()
				co.predArchiveCgpPop.Unlock()
				co.cgpArchivePredPop.Unlock()
			} else if needHistoryCalc {
				realFitness = co.kernel.EvalFull(best.Genome.(*cgp.Circuit))
			}
		}

		newPredictorLength := 0
		if applyBaldwinNow {
			predLength := co.state.PredMeta.GenotypeLength
			if n := baldwin.NewLength(co.cfg.Baldwin, predLength, co.hist); n != 0 {
				co.baldwin.Lock()
				co.baldwinNewLength = n
				co.baldwin.Unlock()
				newPredictorLength = n
			}
		}

		var entry history.Entry
		if needHistoryCalc {
			activePredictorFitness := -1.0
			predLength, predUsedLength := -1, -1

			if co.cfg.Algorithm != config.AlgorithmCGP {
				co.predArchiveCgpPop.Lock()
				predChr := co.state.PredArchive.Get(0)
				predUsedLength = predChr.Genome.(*predictor.Genome).UsedPixels()
				activePredictorFitness = float64(predChr.Fitness)
				co.predArchiveCgpPop.Unlock()
				predLength = co.state.PredMeta.GenotypeLength
			}

			entry = history.CalcEntry(co.hist.Last(),
				func(candidate, incumbent float64) bool { return ga.IsBetter(ga.Maximize, ga.Fitness(candidate), ga.Fitness(incumbent)) },
				generation, float64(realFitness), float64(predictedFitness), activePredictorFitness,
				co.cgpEvals.Load(), predLength, predUsedLength)
		}

		if needHistoryAppend {
			stored := co.hist.Append(entry)
			co.bus.Publish(logging.Event{Kind: logging.EventHistory, Generation: generation, Entry: stored})
		}

		if isBetter {
			co.bus.Publish(logging.Event{Kind: logging.EventBetterCGP, Generation: generation, Entry: &entry})
		} else if logTickNow {
			co.bus.Publish(logging.Event{Kind: logging.EventLogTick, Generation: generation, Entry: &entry})
		}

		if receivedStop {
			co.bus.Publish(logging.Event{Kind: logging.EventSignal, Generation: generation, SignalNumber: co.SignalNumber(), Entry: &entry})
		}

		if newPredictorLength != 0 {
			co.bus.Publish(logging.Event{Kind: logging.EventPredLengthScheduled, Generation: generation, NewPredictorLength: newPredictorLength, Entry: &entry})
		}

		if co.finished.Load() {
			co.cgpArchivePredPop.Lock()
			co.predArchiveCgpPop.Lock()
			reason, _ := co.finishReason.Load().(string)
			co.bus.Publish(logging.Event{Kind: logging.EventStop, Generation: generation, StopReason: reason})
			co.predArchiveCgpPop.Unlock()
			co.cgpArchivePredPop.Unlock()
		}

		if receivedStop {
			return nil
		}
	}

	return nil
}

// reevaluatePredPopulationLocked re-scores the whole predictor population
// against the (just-updated) CGP archive. Callers must hold
// cgpArchivePredPop.
func (co *Coordinator) reevaluatePredPopulationLocked(ctx context.Context) {
	evalFunc := co.predEvalFunc()
	for _, chr := range co.state.PredPopulation {
		f, _ := evalFunc(ctx, chr.Genome)
		chr.Fitness = f
		chr.HasFitness = true
	}
}

// reevaluatePredArchiveSlot0Locked re-scores the active predictor.
// Callers must hold both cgpArchivePredPop and predArchiveCgpPop.
func (co *Coordinator) reevaluatePredArchiveSlot0Locked() {
	if co.state.PredArchive.Stored() == 0 {
		return
	}
	slot := co.state.PredArchive.Get(0)
	f, _ := co.predEvalFunc()(context.Background(), slot.Genome)
	slot.Fitness = f
	slot.HasFitness = true
}

// predLoop implements the coevolutionary predictor loop: advance a
// generation, apply any pending Baldwin resize, and promote a new best
// predictor into the archive — mirroring pred_main.
func (co *Coordinator) predLoop(ctx context.Context, evaluator *ga.ParallelEvaluator) {
	for !co.finished.Load() {
		co.cgpArchivePredPop.Lock()
		next := predictor.Offspring(co.state.PredPopulation, co.state.PredScratch, ga.Minimize, co.state.PredMeta, co.predRand)
		err := evaluator.EvaluatePopulation(ctx, next)
		co.state.PredScratch, co.state.PredPopulation = co.state.PredPopulation, next
		co.cgpArchivePredPop.Unlock()
		if err != nil {
			return
		}

		co.baldwin.Lock()
		if co.baldwinNewLength != 0 {
			generation := int(co.cgpGeneration.Load())
			oldLength := co.state.PredMeta.GenotypeLength
			newLength := co.baldwinNewLength

			co.predArchiveCgpPop.Lock()
			oldUsed := co.state.PredArchive.Get(0).Genome.(*predictor.Genome).UsedPixels()
			co.predArchiveCgpPop.Unlock()

			co.state.PredMeta.GenotypeLength = newLength
			for _, chr := range co.state.PredPopulation {
				chr.Genome.(*predictor.Genome).CalculatePhenotype(co.predRand)
			}
			co.predArchiveCgpPop.Lock()
			co.state.PredArchive.Get(0).Genome.(*predictor.Genome).CalculatePhenotype(co.predRand)
			co.predArchiveCgpPop.Unlock()

			co.cgpArchivePredPop.Lock()
			co.reevaluatePredPopulationLocked(ctx)
			co.predArchiveCgpPop.Lock()
			co.reevaluatePredArchiveSlot0Locked()
			newUsed := co.state.PredArchive.Get(0).Genome.(*predictor.Genome).UsedPixels()
			co.predArchiveCgpPop.Unlock()
			co.cgpArchivePredPop.Unlock()

			co.bus.Publish(logging.Event{
				Kind: logging.EventPredLengthApplied, Generation: generation,
				OldPredictorLength: oldLength, NewPredictorLength: newLength,
				OldUsedLength: oldUsed, NewUsedLength: newUsed,
			})

			co.baldwinLastAppliedAt = generation
			co.baldwinNewLength = 0
		}
		co.baldwin.Unlock()

		co.predArchiveCgpPop.Lock()
		archiveFitness := co.state.PredArchive.Get(0).Fitness
		co.predArchiveCgpPop.Unlock()

		bestIdx := ga.Best(co.state.PredPopulation, ga.Minimize)
		isBetter := ga.IsBetter(ga.Minimize, co.state.PredPopulation[bestIdx].Fitness, archiveFitness)
		if isBetter {
			co.bus.Publish(logging.Event{
				Kind: logging.EventBetterPred,
				OldFitness: float64(archiveFitness), NewFitness: float64(co.state.PredPopulation[bestIdx].Fitness),
			})

			co.predArchiveCgpPop.Lock()
			co.state.PredArchive.Insert(co.state.PredPopulation[bestIdx])
			for _, chr := range co.state.CGPPopulation {
				chr.HasFitness = false
			}
			co.predArchiveCgpPop.Unlock()
		}
	}
}

// Package archive implements the bounded, circular chromosome archive
// shared by the CGP and predictor populations: a fixed-capacity ring
// buffer that tracks the best chromosome ever inserted alongside it, and
// the pre-reevaluation fitness each entry had at insertion time.
package archive

import "github.com/mwiglasz/coco/pkg/ga"

// FitnessFunc re-scores a freshly-inserted chromosome, e.g. against the
// full image instead of whatever proxy produced its incoming fitness. A
// nil FitnessFunc leaves the inserted fitness untouched.
type FitnessFunc func(g ga.Genome) ga.Fitness

// Archive is a fixed-capacity circular buffer of chromosomes. While
// partially full, indices are interpreted modulo the stored count; once
// full, the buffer wraps modulo capacity. This mirrors arc_create /
// arc_insert / arc_get in the original, with one deliberate correction:
// the original's allocation-failure cleanup loop
// (`for (int x = i - 1; x >= 0; i--)`) decrements the wrong loop variable
// and would spin forever freeing the same slot on partial-allocation
// failure. Go slice allocation cannot fail partially the way repeated
// malloc calls can, so that failure mode does not exist here — there is
// no cleanup loop to get wrong. This note records that rather than
// silently dropping the concern.
type Archive struct {
	problem  ga.ProblemType
	fitness  FitnessFunc
	capacity int
	stored   int
	pointer  int

	slots            []*ga.Chromosome
	originalFitness  []ga.Fitness
	bestEver         *ga.Chromosome
}

// New allocates an empty archive of the given capacity. newGenome
// produces a zero-valued genome of the right concrete type for each slot
// (the Go analogue of methods.alloc_genome).
func New(capacity int, problem ga.ProblemType, fitness FitnessFunc, newGenome func() ga.Genome) *Archive {
	slots := make([]*ga.Chromosome, capacity)
	for i := range slots {
		slots[i] = ga.NewChromosome(newGenome())
	}
	return &Archive{
		problem:         problem,
		fitness:         fitness,
		capacity:        capacity,
		slots:           slots,
		originalFitness: make([]ga.Fitness, capacity),
		bestEver:        ga.NewChromosome(newGenome()),
	}
}

// Capacity returns the archive's fixed slot count.
func (a *Archive) Capacity() int { return a.capacity }

// Stored returns how many slots currently hold a valid entry (<= Capacity).
func (a *Archive) Stored() int { return a.stored }

// Insert copies chr into the next ring slot, captures its pre-insert
// fitness, re-scores it via the archive's FitnessFunc (if set), updates
// BestEver if it now leads, and advances the ring pointer. It returns the
// stored chromosome (not chr itself).
func (a *Archive) Insert(chr *ga.Chromosome) *ga.Chromosome {
	dst := a.slots[a.pointer]
	dst.CopyFrom(chr)

	if chr.HasFitness {
		a.originalFitness[a.pointer] = chr.Fitness
	} else {
		a.originalFitness[a.pointer] = 0
	}

	if a.fitness != nil {
		dst.Fitness = a.fitness(dst.Genome)
		dst.HasFitness = true
	}

	if a.stored == 0 || ga.IsBetter(a.problem, dst.Fitness, a.bestEver.Fitness) {
		a.bestEver.CopyFrom(dst)
	}

	if a.stored < a.capacity {
		a.stored++
	}
	a.pointer = (a.pointer + 1) % a.capacity
	return dst
}

// realIndex translates a logical index (0 = oldest stored entry) into a
// physical slot index, honoring the partially-full/full distinction of
// arc_real_index.
func (a *Archive) realIndex(index int) int {
	if a.stored < a.capacity {
		real := index % a.stored
		if real < 0 {
			real += a.stored
		}
		return real
	}
	real := (a.pointer + index) % a.capacity
	if real < 0 {
		real += a.capacity
	}
	return real
}

// Get returns the logical-index-th stored chromosome.
func (a *Archive) Get(index int) *ga.Chromosome {
	return a.slots[a.realIndex(index)]
}

// OriginalFitness returns the fitness the entry at the given logical
// index had immediately before archive re-evaluation.
func (a *Archive) OriginalFitness(index int) ga.Fitness {
	return a.originalFitness[a.realIndex(index)]
}

// BestEver returns the best chromosome ever inserted into the archive.
func (a *Archive) BestEver() *ga.Chromosome { return a.bestEver }

package cgp

import "github.com/mwiglasz/coco/pkg/ga"

// Offspring implements the (1+λ) truncation selection: every chromosome
// except the current best is overwritten with a mutated copy of the best,
// matching cgp_offspring. bestIdx must index the best chromosome in pop.
func Offspring(pop ga.Population, bestIdx int, mutator *Mutator, rng ga.Rand) {
	best := pop[bestIdx]
	for i, chr := range pop {
		if i == bestIdx {
			continue
		}
		chr.CopyFrom(best)
		mutator.Mutate(chr.Genome.(*Circuit), rng)
		chr.HasFitness = false
	}
}

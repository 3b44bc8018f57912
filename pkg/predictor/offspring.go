package predictor

import (
	"math"

	"github.com/mwiglasz/coco/pkg/ga"
)

// childKind records how each slot in the next generation is produced,
// mirroring the original's enum _offspring_op.
type childKind int

const (
	childRandom childKind = iota
	childCrossover
	childElite
)

// crossover1pRepeated performs the repeated-encoding one-point crossover:
// a single split point, mom's genes before it, dad's genes from it on.
func crossover1pRepeated(baby, mom, dad *Genome, rng ga.Rand) {
	split := rng.Intn(mom.Meta.GenotypeLength)
	copy(baby.genes[:split], mom.genes[:split])
	copy(baby.genes[split:], dad.genes[split:])
	baby.circularOff = mom.circularOff
}

// crossover1pPermuted performs the permuted-encoding one-point crossover:
// walk mom's genes up to and including the split point (skipping values
// already used), then dad's genes after it, then fill any remaining slots
// with fresh random values — exactly as _crossover1p_permuted does.
func crossover1pPermuted(baby, mom, dad *Genome, rng ga.Rand) {
	split := rng.Intn(mom.Meta.GenotypeLength)

	for i := range baby.usedValues {
		baby.usedValues[i] = false
	}

	geneIndex := 0
	parent := mom.genes
	for i := 0; i < baby.Meta.GenotypeLength; i++ {
		value := parent[i]
		if !baby.usedValues[value] {
			baby.genes[geneIndex] = value
			baby.usedValues[value] = true
			geneIndex++
		}
		if i == split {
			parent = dad.genes
		}
	}

	for ; geneIndex < baby.Meta.GenotypeLength; geneIndex++ {
		value := rng.Intn(baby.Meta.MaxGeneValue + 1)
		for baby.usedValues[value] {
			value = (value + 1) % (baby.Meta.MaxGeneValue + 1)
		}
		baby.genes[geneIndex] = value
		baby.usedValues[value] = true
	}
}

func tournament(problem ga.ProblemType, red, blue *ga.Chromosome) *ga.Chromosome {
	if ga.IsBetter(problem, blue.Fitness, red.Fitness) {
		return blue
	}
	return red
}

// createCombined picks two tournament-selected parents, crosses them, and
// mutates the result, mirroring _create_combined.
func createCombined(pop ga.Population, problem ga.ProblemType, baby *Genome, rng ga.Rand) {
	mom := tournament(problem, pop[rng.Intn(len(pop))], pop[rng.Intn(len(pop))])
	dad := tournament(problem, pop[rng.Intn(len(pop))], pop[rng.Intn(len(pop))])

	momG, dadG := mom.Genome.(*Genome), dad.Genome.(*Genome)
	if baby.Meta.Encoding == Permuted {
		crossover1pPermuted(baby, momG, dadG, rng)
	} else {
		crossover1pRepeated(baby, momG, dadG, rng)
	}
	baby.Mutate(rng)
}

// findElites marks the `count` best non-marked individuals as elite,
// mirroring _find_elites.
func findElites(pop ga.Population, problem ga.ProblemType, count int, kind []childKind) {
	for ; count > 0; count-- {
		bestFitness := ga.Fitness(math.Inf(1))
		if problem == ga.Maximize {
			bestFitness = ga.Fitness(math.Inf(-1))
		}
		best := -1

		for i, chr := range pop {
			if kind[i] == childElite {
				continue
			}
			if ga.IsBetter(problem, chr.Fitness, bestFitness) {
				bestFitness = chr.Fitness
				best = i
			}
		}
		if best >= 0 {
			kind[best] = childElite
		}
	}
}

// Offspring produces the next generation into scratch and returns it: the
// best OffspringElite fraction survive unchanged, the next OffspringCombine
// fraction are crossover products, and the remainder are fresh random
// individuals — mirroring pred_offspring, including its elite-then-
// crossover marking order.
//
// pop and scratch are meant to be used as a ping-ponged double buffer
// across generations (the caller swaps them after each call, as
// coevo.Coordinator's predictor loop does), the same pointer-swap shape
// pred_offspring's C implementation uses — so once both buffers have been
// built once at startup, no genome is allocated in the hot path.
func Offspring(pop, scratch ga.Population, problem ga.ProblemType, meta *Metadata, rng ga.Rand) ga.Population {
	eliteCount := int(math.Ceil(float64(len(pop)) * meta.OffspringElite))
	crossoverCount := int(math.Ceil(float64(len(pop)) * meta.OffspringCombine))

	kind := make([]childKind, len(pop))
	findElites(pop, problem, eliteCount, kind)

	set := 0
	for i := 0; set < crossoverCount && i < len(pop); i++ {
		if kind[i] != childElite {
			kind[i] = childCrossover
			set++
		}
	}

	for i, chr := range pop {
		dst := scratch[i]
		switch kind[i] {
		case childElite:
			dst.CopyFrom(chr)
		case childCrossover:
			createCombined(pop, problem, dst.Genome.(*Genome), rng)
			dst.Fitness = 0
			dst.HasFitness = false
		default:
			dst.Genome.(*Genome).Randomize(rng)
			dst.Fitness = 0
			dst.HasFitness = false
		}
	}

	return scratch
}

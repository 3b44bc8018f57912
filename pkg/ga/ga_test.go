package ga_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/mwiglasz/coco/pkg/ga"
)

// scalarGenome is a minimal ga.Genome test double wrapping one float64.
type scalarGenome struct{ v float64 }

func (g *scalarGenome) Clone() ga.Genome       { return &scalarGenome{v: g.v} }
func (g *scalarGenome) CopyFrom(src ga.Genome) { g.v = src.(*scalarGenome).v }
func (g *scalarGenome) Randomize(rng ga.Rand)  { g.v = rng.Float64() }
func (g *scalarGenome) Mutate(rng ga.Rand)     { g.v += rng.Float64() }

func buildPop(vals ...float64) ga.Population {
	pop := make(ga.Population, len(vals))
	for i, v := range vals {
		pop[i] = ga.NewChromosome(&scalarGenome{v: v})
	}
	return pop
}

func TestBestMaximizeAndMinimize(t *testing.T) {
	pop := buildPop(1, 5, 3)
	for i, v := range []ga.Fitness{1, 5, 3} {
		pop[i].Fitness = v
		pop[i].HasFitness = true
	}

	if idx := ga.Best(pop, ga.Maximize); idx != 1 {
		t.Fatalf("Best(Maximize) = %d, want 1", idx)
	}
	if idx := ga.Best(pop, ga.Minimize); idx != 0 {
		t.Fatalf("Best(Minimize) = %d, want 0", idx)
	}
}

func TestEvaluatePopulationScoresEveryChromosome(t *testing.T) {
	pop := buildPop(1, 2, 3, 4, 5)

	eval := ga.NewParallelEvaluator(func(ctx context.Context, g ga.Genome) (ga.Fitness, error) {
		return ga.Fitness(g.(*scalarGenome).v * 2), nil
	}, 2)

	if err := eval.EvaluatePopulation(context.Background(), pop); err != nil {
		t.Fatalf("EvaluatePopulation: %v", err)
	}

	for i, chr := range pop {
		if !chr.HasFitness {
			t.Fatalf("chromosome %d: HasFitness = false, want true", i)
		}
		want := ga.Fitness(chr.Genome.(*scalarGenome).v * 2)
		if chr.Fitness != want {
			t.Fatalf("chromosome %d: Fitness = %v, want %v", i, chr.Fitness, want)
		}
	}
}

func TestEvaluatePopulationPropagatesFirstError(t *testing.T) {
	pop := buildPop(1, 2, 3)
	boom := errors.New("boom")

	eval := ga.NewParallelEvaluator(func(ctx context.Context, g ga.Genome) (ga.Fitness, error) {
		if g.(*scalarGenome).v == 2 {
			return 0, boom
		}
		return 1, nil
	}, 4)

	if err := eval.EvaluatePopulation(context.Background(), pop); err == nil {
		t.Fatal("EvaluatePopulation: expected an error, got nil")
	}
}

func TestChromosomeCloneIsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	orig := ga.NewChromosome(&scalarGenome{v: 1})
	orig.Fitness = 42
	orig.HasFitness = true

	clone := orig.Clone()
	clone.Genome.Mutate(rng)

	if orig.Genome.(*scalarGenome).v == clone.Genome.(*scalarGenome).v {
		t.Fatal("mutating the clone should not affect the original")
	}
	if clone.Fitness != 42 || !clone.HasFitness {
		t.Fatal("Clone should preserve fitness bookkeeping")
	}
}

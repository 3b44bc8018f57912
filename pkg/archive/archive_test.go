package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiglasz/coco/pkg/ga"
)

type fakeGenome struct{ v int }

func (f *fakeGenome) Clone() ga.Genome       { c := *f; return &c }
func (f *fakeGenome) CopyFrom(src ga.Genome) { f.v = src.(*fakeGenome).v }
func (f *fakeGenome) Randomize(rng ga.Rand)  {}
func (f *fakeGenome) Mutate(rng ga.Rand)     {}

func chr(v int, fitness ga.Fitness) *ga.Chromosome {
	return &ga.Chromosome{Genome: &fakeGenome{v: v}, Fitness: fitness, HasFitness: true}
}

func TestArchiveWrapAndBestEver(t *testing.T) {
	a := New(3, ga.Maximize, nil, func() ga.Genome { return &fakeGenome{} })

	fitnesses := []ga.Fitness{1, 5, 2, 9, 3}
	for i, f := range fitnesses {
		a.Insert(chr(i+1, f))
	}

	require.Equal(t, 3, a.Stored())

	// insertions 3,4,5 (values 3,4,5 / fitness 2,9,3) should be in slots 0..2
	wantValues := []int{3, 4, 5}
	for i, want := range wantValues {
		got := a.Get(i).Genome.(*fakeGenome).v
		assert.Equalf(t, want, got, "Get(%d)", i)
	}

	assert.Equal(t, ga.Fitness(9), a.BestEver().Fitness)
}

func TestBestEverNeverWorsens(t *testing.T) {
	a := New(4, ga.Maximize, nil, func() ga.Genome { return &fakeGenome{} })
	fitnesses := []ga.Fitness{3, 1, 7, 2, 0, 9, 4}

	best := ga.Fitness(0)
	for i, f := range fitnesses {
		a.Insert(chr(i, f))
		require.GreaterOrEqualf(t, a.BestEver().Fitness, best, "after insert %d", i)
		if a.BestEver().Fitness > best {
			best = a.BestEver().Fitness
		}
	}
}

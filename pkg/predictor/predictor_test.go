package predictor

import (
	"math/rand"
	"testing"
)

func TestPermutedPhenotypeStaysDuplicateFree(t *testing.T) {
	meta := &Metadata{
		Encoding:           Permuted,
		MaxGeneValue:       99, // image size 100
		GenotypeLength:     10,
		GenotypeUsedLength: 10,
		MutationRate:       0.2,
	}
	rng := rand.New(rand.NewSource(7))

	g := New(meta)
	g.Randomize(rng)

	for step := 0; step < 1000; step++ {
		g.Mutate(rng)

		pixels := g.Pixels()
		if len(pixels) != 10 {
			t.Fatalf("step %d: phenotype length = %d, want 10", step, len(pixels))
		}
		seen := make(map[int]bool, len(pixels))
		for _, p := range pixels {
			if p < 0 || p >= 100 {
				t.Fatalf("step %d: pixel %d out of [0,100)", step, p)
			}
			if seen[p] {
				t.Fatalf("step %d: duplicate pixel %d in permuted phenotype", step, p)
			}
			seen[p] = true
		}
	}
}

func TestRepeatedPhenotypeDeduplicates(t *testing.T) {
	meta := &Metadata{
		Encoding:           Repeated,
		MaxGeneValue:       9,
		GenotypeLength:     20,
		GenotypeUsedLength: 20,
		MutationRate:       0.3,
	}
	rng := rand.New(rand.NewSource(3))
	g := New(meta)
	g.Randomize(rng)

	seen := make(map[int]bool)
	for _, p := range g.Pixels() {
		if seen[p] {
			t.Fatalf("repeated phenotype contains duplicate %d", p)
		}
		seen[p] = true
	}
	if len(g.Pixels()) > meta.MaxGeneValue+1 {
		t.Fatalf("phenotype length %d exceeds domain size %d", len(g.Pixels()), meta.MaxGeneValue+1)
	}
}

// Package predictor implements the fitness-predictor genome: a sparse,
// evolvable subset of image pixel indices used as a cheap proxy for the
// expensive CGP fitness function. Three encodings are supported —
// permuted (duplicate-free genotype, phenotype equals genotype), repeated
// (genotype may repeat, phenotype deduplicates it), and repeated-circular
// (repeated, but phenotype construction may start at any locus, the best
// of a few tried offsets).
package predictor

import (
	"github.com/mwiglasz/coco/pkg/ga"
)

// Encoding selects one of the three genotype/phenotype mapping rules.
type Encoding int

const (
	Permuted Encoding = iota
	Repeated
	RepeatedCircular
)

// CircularTries is how many random starting loci repeated-circular
// phenotype construction samples before keeping the best, matching
// PRED_CIRCULAR_TRIES in the original.
const CircularTries = 3

// Metadata describes the shared, population-wide configuration every
// Genome in a population is built against — the Go counterpart of
// pred_metadata_t. It is not itself a per-genome field; genomes take it as
// a constructor argument so they never need a package-global.
type Metadata struct {
	Encoding            Encoding
	MaxGeneValue        int // inclusive upper bound on a gene value (image pixel count - 1)
	GenotypeLength      int
	GenotypeUsedLength  int
	MutationRate        float64
	OffspringElite      float64
	OffspringCombine    float64
}

// Genome is one predictor chromosome. It satisfies ga.Genome.
type Genome struct {
	Meta *Metadata

	genes         []int
	usedValues    []bool
	circularOff   int
	pixels        []int
	usedPixels    int
}

// New allocates a zero-valued genome bound to meta.
func New(meta *Metadata) *Genome {
	g := &Genome{
		Meta:       meta,
		genes:      make([]int, meta.GenotypeLength),
		usedValues: make([]bool, meta.MaxGeneValue+1),
	}
	if meta.Encoding == Permuted {
		g.pixels = g.genes // one-to-one mapping, as in the original
	} else {
		g.pixels = make([]int, meta.GenotypeLength)
	}
	return g
}

// Pixels returns the current phenotype: the deduplicated, offset-resolved
// sequence of pixel indices actually sampled. Its length is UsedPixels().
func (g *Genome) Pixels() []int { return g.pixels[:g.usedPixels] }

// UsedPixels returns the effective phenotype length U.
func (g *Genome) UsedPixels() int { return g.usedPixels }

// CircularOffset returns the phenotype starting locus (repeated-circular
// only; always 0 for the other encodings).
func (g *Genome) CircularOffset() int { return g.circularOff }

// Clone implements ga.Genome.
func (g *Genome) Clone() ga.Genome {
	dst := New(g.Meta)
	dst.CopyFrom(g)
	return dst
}

// CopyFrom implements ga.Genome.
func (g *Genome) CopyFrom(src ga.Genome) {
	s := src.(*Genome)
	copy(g.genes, s.genes)
	copy(g.usedValues, s.usedValues)
	if g.Meta.Encoding != Permuted {
		copy(g.pixels, s.pixels)
	}
	g.usedPixels = s.usedPixels
	g.circularOff = s.circularOff
}

// Randomize implements ga.Genome, mirroring pred_randomize_genome.
func (g *Genome) Randomize(rng ga.Rand) {
	if g.Meta.Encoding == Permuted {
		for i := range g.usedValues {
			g.usedValues[i] = false
		}
	}

	for i := 0; i < g.Meta.GenotypeLength; i++ {
		value := rng.Intn(g.Meta.MaxGeneValue + 1)
		if g.Meta.Encoding == Permuted {
			for g.usedValues[value] {
				value = (value + 1) % (g.Meta.MaxGeneValue + 1)
			}
			g.usedValues[value] = true
		}
		g.genes[i] = value
	}

	g.circularOff = 0
	g.CalculatePhenotype(rng)
}

// Mutate implements ga.Genome, mirroring pred_mutate.
func (g *Genome) Mutate(rng ga.Rand) {
	maxChanged := int(g.Meta.MutationRate * float64(g.Meta.GenotypeLength))
	n := rng.Intn(maxChanged + 1)

	for i := 0; i < n; i++ {
		gene := rng.Intn(g.Meta.GenotypeLength)
		old := g.genes[gene]

		value := rng.Intn(g.Meta.MaxGeneValue + 1)
		if g.Meta.Encoding == Permuted {
			for g.usedValues[value] && old != value {
				value = (value + 1) % (g.Meta.MaxGeneValue + 1)
			}
		}

		g.genes[gene] = value
		g.usedValues[value] = true
	}

	g.CalculatePhenotype(rng)
}

// CalculatePhenotype recomputes the phenotype from the genotype. For
// Permuted it is a no-op (phenotype == genotype, used length is fixed);
// for Repeated it resets the offset to 0 and deduplicates the used-length
// prefix; for RepeatedCircular it deduplicates starting from the current
// circular offset. No offset search happens here and rng is not used: the
// search over candidate offsets is done by the fitness package, which
// scores each one through TryOffset.
func (g *Genome) CalculatePhenotype(rng ga.Rand) {
	switch g.Meta.Encoding {
	case Permuted:
		g.usedPixels = g.Meta.GenotypeUsedLength
	case Repeated:
		g.circularOff = 0
		g.calculateRepeatedPhenotype()
	case RepeatedCircular:
		g.calculateRepeatedPhenotype()
	}
}

func (g *Genome) circularIndex(index int) int {
	real := (g.circularOff + index) % g.Meta.GenotypeLength
	if real < 0 {
		real += g.Meta.GenotypeLength
	}
	return real
}

func (g *Genome) calculateRepeatedPhenotype() {
	for i := range g.usedValues {
		g.usedValues[i] = false
	}

	phenoIndex := 0
	for genoIndex := 0; genoIndex < g.Meta.GenotypeUsedLength; genoIndex++ {
		locus := g.circularIndex(genoIndex)
		value := g.genes[locus]
		if g.usedValues[value] {
			continue
		}
		g.usedValues[value] = true
		g.pixels[phenoIndex] = value
		phenoIndex++
	}
	g.usedPixels = phenoIndex
}

// TryOffset sets the circular offset and recomputes the phenotype from it.
// The circular-predictor fitness scorer calls it once per candidate offset
// and then once more with whichever offset scored best, which leaves that
// offset in place.
func (g *Genome) TryOffset(offset int) {
	g.circularOff = offset
	g.calculateRepeatedPhenotype()
}

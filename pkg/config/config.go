// Package config resolves the run configuration: defaults, validation,
// and the flag set the cmd/coco CLI binds to it.
package config

import (
	"fmt"

	"github.com/mwiglasz/coco/pkg/baldwin"
	"github.com/mwiglasz/coco/pkg/predictor"
)

// Algorithm selects which of the three run modes to drive.
type Algorithm int

const (
	// AlgorithmCGP runs plain (1+λ) CGP with no coevolution.
	AlgorithmCGP Algorithm = iota
	// AlgorithmCoevolution coevolves CGP with fixed-size fitness predictors.
	AlgorithmCoevolution
	// AlgorithmBaldwin coevolves CGP with Baldwin-regulated predictor size.
	AlgorithmBaldwin
)

// algorithmNames mirrors config_algorithm_names; "coev" is accepted as an
// alias of "predictors" because the original's own --algorithm help text
// documents the flag value as "coev" while its internal name table spells
// it "predictors" — both are honored here rather than picking one and
// breaking the other.
var algorithmNames = map[string]Algorithm{
	"cgp":        AlgorithmCGP,
	"predictors": AlgorithmCoevolution,
	"coev":       AlgorithmCoevolution,
	"baldwin":    AlgorithmBaldwin,
}

// ParseAlgorithm resolves a --algorithm flag value.
func ParseAlgorithm(s string) (Algorithm, error) {
	a, ok := algorithmNames[s]
	if !ok {
		return 0, fmt.Errorf("config: unknown algorithm %q (want one of cgp, coev, predictors, baldwin)", s)
	}
	return a, nil
}

// Config is the fully resolved run configuration, the Go counterpart of
// config_t.
type Config struct {
	MaxGenerations int     `json:"max_generations"`
	TargetFitness  float64 `json:"target_fitness"`
	TargetPSNR     float64 `json:"target_psnr"`
	Algorithm      Algorithm `json:"algorithm"`
	RandomSeed     int64   `json:"random_seed"`

	InputImage string `json:"input_image"`
	NoisyImage string `json:"noisy_image"`

	CGPMutateGenes    int `json:"cgp_mutate_genes"`
	CGPPopulationSize int `json:"cgp_population_size"`
	CGPArchiveSize    int `json:"cgp_archive_size"`

	PredSize            float64                 `json:"pred_size"`
	PredInitialSize     float64                 `json:"pred_initial_size"`
	PredMinSize         float64                 `json:"pred_min_size"`
	PredMutationRate    float64                 `json:"pred_mutation_rate"`
	PredOffspringElite  float64                 `json:"pred_offspring_elite"`
	PredOffspringCombine float64                `json:"pred_offspring_combine"`
	PredPopulationSize  int                      `json:"pred_population_size"`
	PredGenomeType      predictor.Encoding       `json:"pred_genome_type"`

	BaldwinInterval int            `json:"bw_interval"`
	Baldwin         baldwin.Config `json:"bw_config"`

	LogInterval int    `json:"log_interval"`
	LogDir      string `json:"log_dir"`
}

// Default returns the resolved defaults from the original's print_help
// text: 50000 generations, 8 CGP individuals, archive size 10, predictor
// size 25%, mutation rate 5%, 10 predictor individuals, "cocolog" log dir.
func Default() Config {
	return Config{
		MaxGenerations:    50000,
		Algorithm:         AlgorithmCoevolution,
		CGPMutateGenes:    5,
		CGPPopulationSize: 8,
		CGPArchiveSize:    10,

		PredSize:             0.25,
		PredMutationRate:     0.05,
		PredOffspringElite:   0.1,
		PredOffspringCombine: 0.5,
		PredPopulationSize:   10,
		PredGenomeType:       predictor.Permuted,

		Baldwin: baldwin.Config{
			Algorithm:         baldwin.Last,
			InaccuracyTolerance: 1.2,
			InaccuracyCoef:      2.0,
			ZeroEpsilon:         0.001,
			SlowThreshold:       0.1,
			ZeroCoef:            0.93,
			DecreaseCoef:        0.97,
			IncreaseSlowCoef:    1.03,
			IncreaseFastCoef:    1.0,
			MinLength:           -1,
		},

		LogDir: "cocolog",
	}
}

// Validate checks cross-field constraints the CLI cannot express as
// simple per-flag bounds, returning an error describing the first
// violation found.
func (c *Config) Validate() error {
	if c.InputImage == "" {
		return fmt.Errorf("config: --original is required")
	}
	if c.NoisyImage == "" {
		return fmt.Errorf("config: --noisy is required")
	}
	if c.CGPPopulationSize < 1 {
		return fmt.Errorf("config: --cgp-population-size must be >= 1, got %d", c.CGPPopulationSize)
	}
	if c.CGPArchiveSize < 1 {
		return fmt.Errorf("config: --cgp-archive-size must be >= 1, got %d", c.CGPArchiveSize)
	}
	if c.PredPopulationSize < 1 {
		return fmt.Errorf("config: --pred-population-size must be >= 1, got %d", c.PredPopulationSize)
	}
	if c.PredGenomeType == predictor.Permuted && c.Algorithm == AlgorithmBaldwin {
		return fmt.Errorf("config: --pred-type permuted cannot be used with --algorithm baldwin")
	}
	if c.PredSize <= 0 || c.PredSize > 1 {
		return fmt.Errorf("config: --pred-size must be in (0,1], got %v", c.PredSize)
	}
	if c.TargetFitness != 0 && c.TargetPSNR != 0 {
		return fmt.Errorf("config: --target-fitness and --target-psnr are mutually exclusive")
	}
	return nil
}

package config

import (
	"github.com/spf13/pflag"

	"github.com/mwiglasz/coco/pkg/predictor"
)

// raw mirrors Config but with the CLI-facing types pflag knows how to
// parse directly (string enums instead of the resolved int types); Resolve
// copies it into a Config after flag parsing.
type raw struct {
	algorithm string
	predType  string
}

// BindFlags registers every CLI flag onto fs, writing straight into cfg
// except where a flag's wire type differs from cfg's resolved type (the
// two string enums), which are threaded through r and reconciled by
// Resolve.
func BindFlags(fs *pflag.FlagSet, cfg *Config, r *raw) {
	fs.IntVar(&cfg.MaxGenerations, "max-generations", cfg.MaxGenerations, "stop after this many CGP generations (0 disables the cap)")
	fs.Float64Var(&cfg.TargetFitness, "target-fitness", cfg.TargetFitness, "stop once real fitness reaches this value")
	fs.Float64Var(&cfg.TargetPSNR, "target-psnr", cfg.TargetPSNR, "stop once the PSNR-derived fitness reaches this value")
	fs.StringVar(&r.algorithm, "algorithm", "coev", "cgp | coev | predictors | baldwin")
	fs.Int64Var(&cfg.RandomSeed, "seed", cfg.RandomSeed, "PRNG seed (0 seeds from the current time)")

	fs.StringVar(&cfg.InputImage, "original", cfg.InputImage, "path to the clean reference image")
	fs.StringVar(&cfg.NoisyImage, "noisy", cfg.NoisyImage, "path to the noisy image to denoise")

	fs.IntVar(&cfg.CGPMutateGenes, "cgp-mutate-genes", cfg.CGPMutateGenes, "maximum genes touched per CGP mutation (each mutation touches 0 up to this many)")
	fs.IntVar(&cfg.CGPPopulationSize, "cgp-population-size", cfg.CGPPopulationSize, "CGP (1+λ) offspring count")
	fs.IntVar(&cfg.CGPArchiveSize, "cgp-archive-size", cfg.CGPArchiveSize, "CGP archive capacity")

	fs.Float64Var(&cfg.PredSize, "pred-size", cfg.PredSize, "fixed predictor length as a fraction of total pixels (coev mode)")
	fs.Float64Var(&cfg.PredInitialSize, "pred-initial-size", cfg.PredInitialSize, "initial predictor length fraction (baldwin mode)")
	fs.Float64Var(&cfg.PredMinSize, "pred-min-size", cfg.PredMinSize, "minimum predictor length fraction (baldwin mode)")
	fs.Float64Var(&cfg.PredMutationRate, "pred-mutation-rate", cfg.PredMutationRate, "fraction of predictor genes a single mutation may rewrite at most")
	fs.Float64Var(&cfg.PredOffspringElite, "pred-offspring-elite", cfg.PredOffspringElite, "elite fraction of each predictor generation")
	fs.Float64Var(&cfg.PredOffspringCombine, "pred-offspring-combine", cfg.PredOffspringCombine, "crossover fraction of each predictor generation")
	fs.IntVar(&cfg.PredPopulationSize, "pred-population-size", cfg.PredPopulationSize, "predictor population size")
	fs.StringVar(&r.predType, "pred-type", "permuted", "permuted | repeated | circular")

	fs.IntVar(&cfg.BaldwinInterval, "bw-interval", cfg.BaldwinInterval, "generations between Baldwin resize checks")
	fs.BoolVar(&cfg.Baldwin.UseAbsoluteIncrements, "bw-by-max-length", cfg.Baldwin.UseAbsoluteIncrements, "use additive increments instead of multiplicative coefficients")
	fs.Float64Var(&cfg.Baldwin.InaccuracyTolerance, "bw-inac-tol", cfg.Baldwin.InaccuracyTolerance, "fitness-inaccuracy tolerance before the big-bump branch fires")
	fs.Float64Var(&cfg.Baldwin.InaccuracyCoef, "bw-inac-coef", cfg.Baldwin.InaccuracyCoef, "multiplier applied on the big-bump branch")
	fs.Float64Var(&cfg.Baldwin.ZeroEpsilon, "bw-zero-eps", cfg.Baldwin.ZeroEpsilon, "velocity magnitude below which length is considered stalled")
	fs.Float64Var(&cfg.Baldwin.SlowThreshold, "bw-slow-thr", cfg.Baldwin.SlowThreshold, "velocity magnitude separating slow from fast growth")
	fs.Float64Var(&cfg.Baldwin.ZeroCoef, "bw-zero-coef", cfg.Baldwin.ZeroCoef, "multiplicative coefficient on the stalled branch")
	fs.Float64Var(&cfg.Baldwin.DecreaseCoef, "bw-decr-coef", cfg.Baldwin.DecreaseCoef, "multiplicative coefficient on the decreasing-fitness branch")
	fs.Float64Var(&cfg.Baldwin.IncreaseSlowCoef, "bw-incr-slow-coef", cfg.Baldwin.IncreaseSlowCoef, "multiplicative coefficient on the slow-growth branch")
	fs.Float64Var(&cfg.Baldwin.IncreaseFastCoef, "bw-incr-fast-coef", cfg.Baldwin.IncreaseFastCoef, "multiplicative coefficient on the fast-growth branch")
	fs.IntVar(&cfg.Baldwin.ZeroIncrement, "bw-zero-incr", cfg.Baldwin.ZeroIncrement, "additive increment on the stalled branch")
	fs.IntVar(&cfg.Baldwin.DecreaseIncrement, "bw-decr-incr", cfg.Baldwin.DecreaseIncrement, "additive increment on the decreasing-fitness branch")
	fs.IntVar(&cfg.Baldwin.IncreaseSlowIncrement, "bw-incr-slow-incr", cfg.Baldwin.IncreaseSlowIncrement, "additive increment on the slow-growth branch")
	fs.IntVar(&cfg.Baldwin.IncreaseFastIncrement, "bw-incr-fast-incr", cfg.Baldwin.IncreaseFastIncrement, "additive increment on the fast-growth branch")
	fs.IntVar(&cfg.Baldwin.MinLength, "bw-min-length", cfg.Baldwin.MinLength, "hard floor on predictor length (-1 derives it from pred-min-size)")
	fs.IntVar(&cfg.Baldwin.MaxLength, "bw-max-length", cfg.Baldwin.MaxLength, "hard ceiling on predictor length (0 derives it from pred-size)")

	fs.IntVar(&cfg.LogInterval, "log-interval", cfg.LogInterval, "generations between periodic log-tick events")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for progress.log, cgp_history.csv and summary.log (empty disables logging)")
}

// Resolve reconciles the string-enum flags in r into cfg's resolved
// fields. Call after fs.Parse.
func Resolve(cfg *Config, r *raw) error {
	alg, err := ParseAlgorithm(r.algorithm)
	if err != nil {
		return err
	}
	cfg.Algorithm = alg

	switch r.predType {
	case "permuted":
		cfg.PredGenomeType = predictor.Permuted
	case "repeated":
		cfg.PredGenomeType = predictor.Repeated
	case "circular":
		cfg.PredGenomeType = predictor.RepeatedCircular
	default:
		return &unknownPredTypeError{r.predType}
	}
	return nil
}

type unknownPredTypeError struct{ got string }

func (e *unknownPredTypeError) Error() string {
	return "config: unknown --pred-type " + e.got + " (want one of permuted, repeated, circular)"
}

// NewFlagSet builds a pflag.FlagSet seeded from Default(), returning the
// bound Config plus the raw enum state Resolve needs after parsing.
func NewFlagSet(name string) (*pflag.FlagSet, *Config, *raw) {
	cfg := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	r := &raw{}
	BindFlags(fs, &cfg, r)
	return fs, &cfg, r
}

// Package baldwin implements the Baldwin-effect predictor-length
// controller: a velocity strategy over the recent fitness history plus a
// cascade of resize rules, used to regulate how many pixels the active
// fitness predictor samples.
package baldwin

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mwiglasz/coco/pkg/history"
)

// Algorithm selects which velocity strategy feeds the cascade.
type Algorithm int

const (
	Last Algorithm = iota
	Median3
	Avg3
	Avg7W
	SymReg
)

// Config mirrors bw_config_t: the cascade thresholds/coefficients plus the
// min/max clamp and the multiplicative-vs-additive mode switch.
type Config struct {
	Algorithm Algorithm

	// UseAbsoluteIncrements selects additive (Increment fields) update
	// mode over the default multiplicative (Coef fields) mode.
	UseAbsoluteIncrements bool

	InaccuracyTolerance float64
	InaccuracyCoef      float64

	ZeroEpsilon    float64
	SlowThreshold  float64

	ZeroCoef          float64
	DecreaseCoef      float64
	IncreaseSlowCoef  float64
	IncreaseFastCoef  float64

	ZeroIncrement         int
	DecreaseIncrement     int
	IncreaseSlowIncrement int
	IncreaseFastIncrement int

	MinLength int
	MaxLength int

	// DebugLog, if set, receives the avg7w per-sample weighted terms the
	// original unconditionally printed to stdout. Left nil, nothing is
	// logged — the original's stdout spam is opt-in here, not default.
	DebugLog func(format string, args ...any)
}

// velocity returns the algorithm-selected velocity estimate over h's
// recent window, matching history_get_velocity. Median3 and Avg3 tolerate
// fewer than 3 stored entries: missing slots just repeat earlier ones,
// since History.Get wraps negative indices. Avg7W averages over however
// many entries are stored (at most 7), with weights 7, 6, ... from newest.
func velocity(cfg Config, h *history.History) float64 {
	switch cfg.Algorithm {
	case Last:
		return h.Get(-1).Velocity

	case Avg3:
		a := h.Get(-1).Velocity
		b := h.Get(-2).Velocity
		c := h.Get(-3).Velocity
		return stat.Mean([]float64{a, b, c}, nil)

	case Avg7W:
		var vals, weights []float64
		for i := 1; i <= h.Stored(); i++ {
			v := h.Get(-i).Velocity
			w := float64(8 - i)
			vals = append(vals, v)
			weights = append(weights, w)
			if cfg.DebugLog != nil {
				cfg.DebugLog("%f * %d", v, int(w))
			}
		}
		result := stat.Mean(vals, weights)
		if cfg.DebugLog != nil {
			var weighted, divider float64
			for i, w := range weights {
				weighted += vals[i] * w
				divider += w
			}
			cfg.DebugLog("%f / %f = %f", weighted, divider, result)
		}
		return result

	case Median3:
		vals := []float64{h.Get(-1).Velocity, h.Get(-2).Velocity, h.Get(-3).Velocity}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return sorted[1]

	default:
		panic("baldwin: velocity() does not support this algorithm")
	}
}

// symregCoef evaluates the fixed degree-2 polynomial over the last 7
// velocities, matching history_get_coef's literal regression constants.
func symregCoef(h *history.History) float64 {
	a := h.Get(-1).Velocity
	b := h.Get(-2).Velocity
	c := h.Get(-3).Velocity
	d := h.Get(-4).Velocity
	e := h.Get(-5).Velocity
	f := h.Get(-6).Velocity
	g := h.Get(-7).Velocity

	return 0.984805307321727 +
		2.92388275504055*e +
		55.5973782292397*b*g +
		11.5809571875034*b*d +
		1.97691040282476*d*f -
		0.144536309148617*a -
		2.76098000498705*c*e -
		1.97691040282476*d*d
}

func updateSize(cfg Config, oldLength int, mulCoef float64, addIncrement int) int {
	if cfg.UseAbsoluteIncrements {
		return oldLength + addIncrement
	}
	return int(math.Round(float64(oldLength) * mulCoef))
}

// NewLength implements bw_get_new_predictor_length: decide a new predictor
// length for oldLength given the history's most recent entry, or 0 if no
// change should occur. The cascade is evaluated in this fixed order:
// inaccuracy over tolerance first, then (for non-symreg algorithms) the
// zero/decrease/slow/fast velocity branches, then the min/max clamp.
func NewLength(cfg Config, oldLength int, h *history.History) int {
	last := h.Get(-1)
	newLength := oldLength

	switch {
	case last.FitnessInaccuracy > cfg.InaccuracyTolerance:
		newLength = int(math.Round(float64(oldLength) * cfg.InaccuracyCoef))

	case cfg.Algorithm == SymReg:
		coef := symregCoef(h)
		newLength = int(math.Round(float64(oldLength) * coef))

	default:
		v := velocity(cfg, h)
		switch {
		case math.Abs(v) <= cfg.ZeroEpsilon:
			newLength = updateSize(cfg, oldLength, cfg.ZeroCoef, cfg.ZeroIncrement)
		case v < 0:
			newLength = updateSize(cfg, oldLength, cfg.DecreaseCoef, cfg.DecreaseIncrement)
		case v > 0 && v <= cfg.SlowThreshold:
			newLength = updateSize(cfg, oldLength, cfg.IncreaseSlowCoef, cfg.IncreaseSlowIncrement)
		default: // v > cfg.SlowThreshold
			newLength = updateSize(cfg, oldLength, cfg.IncreaseFastCoef, cfg.IncreaseFastIncrement)
		}
	}

	if cfg.MinLength >= 0 && newLength < cfg.MinLength {
		newLength = cfg.MinLength
	}
	if cfg.MaxLength != 0 && newLength > cfg.MaxLength {
		newLength = cfg.MaxLength
	}

	if newLength != oldLength {
		return newLength
	}
	return 0
}

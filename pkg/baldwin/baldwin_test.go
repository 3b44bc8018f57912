package baldwin

import (
	"testing"

	"github.com/mwiglasz/coco/pkg/history"
)

func buildHistory(t *testing.T, velocity float64, inaccuracy float64) *history.History {
	t.Helper()
	h := history.New()
	e := history.Entry{
		Generation:        1,
		DeltaGeneration:   1,
		Velocity:          velocity,
		FitnessInaccuracy: inaccuracy,
	}
	h.Append(e)
	return h
}

func TestBaldwinCascade(t *testing.T) {
	base := Config{
		Algorithm:             Last,
		InaccuracyTolerance:   1.2,
		InaccuracyCoef:        2.0,
		ZeroEpsilon:           0.001,
		SlowThreshold:         0.1,
		ZeroCoef:              0.93,
		DecreaseCoef:          0.97,
		IncreaseSlowCoef:      1.03,
		IncreaseFastCoef:      1.0,
		MinLength:             -1,
	}

	cases := []struct {
		name       string
		inaccuracy float64
		velocity   float64
		wantLen    int
	}{
		{"inaccuracy dominates", 1.5, 0.5, 2000},
		{"zero velocity", 1.0, 0, 930},
		{"decrease", 1.0, -0.5, 970},
		{"slow increase", 1.0, 0.05, 1030},
		{"fast increase reports no change", 1.0, 0.5, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := buildHistory(t, tc.velocity, tc.inaccuracy)
			got := NewLength(base, 1000, h)
			if got != tc.wantLen {
				t.Fatalf("NewLength = %d, want %d", got, tc.wantLen)
			}
		})
	}
}

func TestMinMaxClamp(t *testing.T) {
	cfg := Config{Algorithm: Last, MinLength: 50, MaxLength: 200, ZeroEpsilon: 0.001, DecreaseCoef: 0.1}
	h := buildHistory(t, -1, 0)
	got := NewLength(cfg, 100, h)
	if got != 50 {
		t.Fatalf("expected clamp to MinLength 50, got %d", got)
	}
}

package history

import "testing"

func isBetterMax(candidate, incumbent float64) bool { return candidate > incumbent }

func TestCalcEntryFieldDerivation(t *testing.T) {
	h := New()
	prev := h.Last()

	e := CalcEntry(prev, isBetterMax, 10, 100.0, 120.0, 90.0, 500, 64, 40)

	if e.DeltaGeneration != 10 {
		t.Fatalf("DeltaGeneration = %d, want 10", e.DeltaGeneration)
	}
	if e.DeltaRealFitness != 100.0 {
		t.Fatalf("DeltaRealFitness = %v, want 100.0", e.DeltaRealFitness)
	}
	if e.DeltaPredictedFitness != 120.0 {
		t.Fatalf("DeltaPredictedFitness = %v, want 120.0", e.DeltaPredictedFitness)
	}
	wantInacc := 120.0 / 100.0
	if e.FitnessInaccuracy != wantInacc {
		t.Fatalf("FitnessInaccuracy = %v, want %v", e.FitnessInaccuracy, wantInacc)
	}
	if e.BestRealFitnessEver != 100.0 {
		t.Fatalf("BestRealFitnessEver = %v, want 100.0 (100 beats the zeroed previous best)", e.BestRealFitnessEver)
	}
	wantVelocity := 100.0 / 10.0
	if e.Velocity != wantVelocity {
		t.Fatalf("Velocity = %v, want %v", e.Velocity, wantVelocity)
	}

	h.Append(e)

	e2 := CalcEntry(h.Last(), isBetterMax, 15, 80.0, 90.0, 70.0, 600, 64, 38)
	if e2.BestRealFitnessEver != 100.0 {
		t.Fatalf("BestRealFitnessEver should not regress: got %v, want 100.0", e2.BestRealFitnessEver)
	}
}

func TestAppendOnlyUpdatesLastChangeOnRealFitnessDelta(t *testing.T) {
	h := New()

	e1 := CalcEntry(h.Last(), isBetterMax, 1, 50.0, 60.0, 40.0, 10, 20, 15)
	h.Append(e1)
	if h.LastChange().Generation != 1 {
		t.Fatalf("LastChange().Generation = %d, want 1", h.LastChange().Generation)
	}

	e2 := CalcEntry(h.Last(), isBetterMax, 2, 50.0, 55.0, 40.0, 20, 20, 15)
	if e2.DeltaRealFitness != 0 {
		t.Fatalf("expected DeltaRealFitness == 0 for an unchanged real fitness, got %v", e2.DeltaRealFitness)
	}
	h.Append(e2)

	if h.LastChange().Generation != 1 {
		t.Fatalf("LastChange().Generation = %d, want 1 (unchanged real fitness must not move it)", h.LastChange().Generation)
	}
	if h.Last().Generation != 2 {
		t.Fatalf("Last().Generation = %d, want 2", h.Last().Generation)
	}
}

func TestRingBufferWrapsAtLength(t *testing.T) {
	h := New()
	for g := 1; g <= Length+3; g++ {
		e := CalcEntry(h.Last(), isBetterMax, g, float64(g), float64(g), float64(g), int64(g), 1, 1)
		h.Append(e)
	}

	if h.Stored() != Length {
		t.Fatalf("Stored() = %d, want %d after wrapping", h.Stored(), Length)
	}
	if h.Last().Generation != Length+3 {
		t.Fatalf("Last().Generation = %d, want %d", h.Last().Generation, Length+3)
	}
}

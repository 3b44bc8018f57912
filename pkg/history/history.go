// Package history maintains the 7-entry ring buffer of per-generation
// metrics the Baldwin controller reads its velocity window from, plus a
// snapshot of the last entry where real fitness actually changed.
package history

import "fmt"

// Length is the ring buffer's fixed capacity, matching HISTORY_LENGTH.
const Length = 7

// Entry is one recorded generation's metrics, the Go counterpart of
// history_entry_t.
type Entry struct {
	Generation      int
	DeltaGeneration int

	PredictedFitness      float64
	DeltaPredictedFitness float64

	RealFitness      float64
	DeltaRealFitness float64

	// FitnessInaccuracy is PredictedFitness / RealFitness.
	FitnessInaccuracy float64

	BestRealFitnessEver float64

	ActivePredictorFitness float64

	// Velocity is DeltaRealFitness / DeltaGeneration.
	Velocity      float64
	DeltaVelocity float64

	CGPEvals int64

	PredLength     int
	PredUsedLength int
}

// History is the ring buffer plus the last-change snapshot.
type History struct {
	lastChange Entry
	entries    [Length]Entry
	stored     int
	pointer    int
}

// New returns a history initialized the way history_init does: one
// zeroed entry already stored (stored=1, pointer=1), not an empty buffer.
func New() *History {
	return &History{stored: 1, pointer: 1}
}

// CalcEntry derives a new entry's fields from the previous one, matching
// history_calc_entry exactly (including "is-better" comparison against
// the running best, not a plain max, so it respects minimize/maximize).
func CalcEntry(prev *Entry, isBetter func(candidate, incumbent float64) bool,
	generation int, realFitness, predictedFitness, activePredictorFitness float64,
	cgpEvals int64, predLength, predUsedLength int,
) Entry {
	var e Entry
	e.Generation = generation
	e.DeltaGeneration = generation - prev.Generation

	e.PredictedFitness = predictedFitness
	e.DeltaPredictedFitness = e.PredictedFitness - prev.PredictedFitness

	e.RealFitness = realFitness
	e.DeltaRealFitness = e.RealFitness - prev.RealFitness

	e.FitnessInaccuracy = predictedFitness / realFitness

	if isBetter(realFitness, prev.BestRealFitnessEver) {
		e.BestRealFitnessEver = realFitness
	} else {
		e.BestRealFitnessEver = prev.BestRealFitnessEver
	}

	e.ActivePredictorFitness = activePredictorFitness

	if e.DeltaGeneration != 0 {
		e.Velocity = e.DeltaRealFitness / float64(e.DeltaGeneration)
	}
	e.DeltaVelocity = e.Velocity - prev.Velocity

	e.CGPEvals = cgpEvals
	e.PredLength = predLength
	e.PredUsedLength = predUsedLength

	return e
}

// Append inserts entry into the ring buffer and returns a pointer to the
// stored copy. LastChange is only updated when DeltaRealFitness != 0,
// matching history_append_entry.
func (h *History) Append(entry Entry) *Entry {
	h.entries[h.pointer] = entry
	stored := &h.entries[h.pointer]

	if entry.DeltaRealFitness != 0 {
		h.lastChange = entry
	}

	if h.stored < Length {
		h.stored++
	}
	h.pointer = (h.pointer + 1) % Length

	return stored
}

// LastChange returns the most recent entry whose real fitness changed.
func (h *History) LastChange() *Entry { return &h.lastChange }

// Stored returns how many ring slots currently hold a valid entry.
func (h *History) Stored() int { return h.stored }

func (h *History) realIndex(index int) int {
	if h.stored < Length {
		real := index % h.stored
		if real < 0 {
			real += h.stored
		}
		return real
	}
	real := (h.pointer + index) % Length
	if real < 0 {
		real += Length
	}
	return real
}

// Get returns the entry index places from the oldest stored entry;
// negative indices count back from the newest (Last() == Get(-1)).
func (h *History) Get(index int) *Entry { return &h.entries[h.realIndex(index)] }

// Last returns the most recently appended entry.
func (h *History) Last() *Entry { return h.Get(-1) }

// DumpASCIIArt renders the ring buffer as a fixed-width table, mirroring
// history_dump_asciiart.
func (h *History) DumpASCIIArt() string {
	var out string
	divider := "+--------+---------++"
	for i := 0; i < h.stored; i++ {
		divider += "---------+"
	}
	divider += "\n"

	row := func(label string, lastVal float64, isInt bool, get func(*Entry) float64) string {
		s := fmt.Sprintf("| %6s |", label)
		if isInt {
			s += fmt.Sprintf(" %7d ||", int(lastVal))
		} else {
			s += fmt.Sprintf(" %7.3f ||", lastVal)
		}
		for i := 0; i < h.stored; i++ {
			v := get(h.Get(i))
			if isInt {
				s += fmt.Sprintf(" %7d |", int(v))
			} else {
				s += fmt.Sprintf(" %7.3f |", v)
			}
		}
		return s + "\n"
	}

	out += divider
	out += row("G", float64(h.lastChange.Generation), true, func(e *Entry) float64 { return float64(e.Generation) })
	out += row("rf", h.lastChange.RealFitness, false, func(e *Entry) float64 { return e.RealFitness })
	out += row("pf", h.lastChange.PredictedFitness, false, func(e *Entry) float64 { return e.PredictedFitness })
	out += row("predf", h.lastChange.ActivePredictorFitness, false, func(e *Entry) float64 { return e.ActivePredictorFitness })
	out += divider
	out += row("dG", float64(h.lastChange.DeltaGeneration), true, func(e *Entry) float64 { return float64(e.DeltaGeneration) })
	out += row("df", h.lastChange.DeltaRealFitness, false, func(e *Entry) float64 { return e.DeltaRealFitness })
	out += divider
	out += row("f/G", h.lastChange.Velocity, false, func(e *Entry) float64 { return e.Velocity })
	out += row("d(f/G)", h.lastChange.DeltaVelocity, false, func(e *Entry) float64 { return e.DeltaVelocity })
	out += divider
	return out
}

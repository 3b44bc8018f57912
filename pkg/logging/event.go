// Package logging implements the typed event bus the coevolution
// coordinator publishes to, and the sinks that turn events into the
// persisted log-directory artifacts (progress.log, cgp_history.csv) and
// console output.
package logging

import "github.com/mwiglasz/coco/pkg/history"

// EventKind names one of the event types the coordinator fires.
type EventKind int

const (
	// EventStarted is fired once, before the CGP loop begins iterating.
	EventStarted EventKind = iota
	// EventBetterCGP is fired whenever the CGP loop finds a new best
	// circuit.
	EventBetterCGP
	// EventLogTick is fired every LogInterval generations when no better
	// circuit was found that generation.
	EventLogTick
	// EventSignal is fired exactly once per generation where a stop
	// signal was observed (the original fires this twice back-to-back
	// for the same signal, a documented bug this rewrite does not
	// repeat).
	EventSignal
	// EventHistory is fired whenever a new history entry is appended.
	EventHistory
	// EventBetterPred is fired whenever the predictor loop finds a new
	// best predictor.
	EventBetterPred
	// EventPredLengthScheduled is fired when the Baldwin controller
	// computes a new predictor length, before the predictor loop has
	// applied it.
	EventPredLengthScheduled
	// EventPredLengthApplied is fired once the predictor loop has
	// resized and re-evaluated the active predictor.
	EventPredLengthApplied
	// EventBaldwinResize is a convenience alias sinks may match on for
	// either scheduling or application of a Baldwin resize; coevo fires
	// the more specific kinds above instead.
	EventBaldwinResize
	// EventStop is fired once, when the coordinator begins shutdown.
	EventStop
)

// Event is one published occurrence. Only the fields relevant to Kind are
// populated; sinks that don't understand a Kind should ignore it rather
// than error.
type Event struct {
	Kind EventKind

	Generation int
	Entry      *history.Entry

	OldPredictorLength int
	NewPredictorLength int
	OldUsedLength      int
	NewUsedLength      int

	OldFitness float64
	NewFitness float64

	SignalNumber int
	StopReason   string
}

// Sink consumes published events. Implementations must not block the
// publisher for long and must be safe to call from the coordinator's
// locked sections.
type Sink interface {
	Publish(Event)
}

// Bus fans one published event out to every registered sink, in
// registration order.
type Bus struct {
	sinks []Sink
}

// NewBus builds an empty event bus.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

// Publish fans event out to every sink.
func (b *Bus) Publish(e Event) {
	for _, s := range b.sinks {
		s.Publish(e)
	}
}

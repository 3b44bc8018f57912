package logging

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// TextSink writes a time-stamped, human-readable line per event to
// progress.log, using logrus for structured/leveled output the way the
// rest of the ambient stack does, instead of bare fmt.Fprintf-to-stdout.
type TextSink struct {
	log *logrus.Logger
}

// NewTextSink builds a sink writing to w at logrus's default (Info) level.
func NewTextSink(w io.Writer) *TextSink {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &TextSink{log: log}
}

// Publish implements Sink.
func (s *TextSink) Publish(e Event) {
	switch e.Kind {
	case EventStarted:
		s.log.Info("coevolution started")
	case EventBetterCGP:
		s.log.WithField("generation", e.Generation).Info("new best circuit found")
	case EventLogTick:
		if e.Entry != nil {
			s.log.WithField("generation", e.Entry.Generation).Debug("log tick")
		}
	case EventSignal:
		s.log.WithFields(logrus.Fields{
			"generation": e.Generation,
			"signal":     e.SignalNumber,
		}).Warn("signal received")
	case EventHistory:
		if e.Entry != nil {
			s.log.WithFields(logrus.Fields{
				"generation":   e.Entry.Generation,
				"real_fitness": e.Entry.RealFitness,
				"velocity":     e.Entry.Velocity,
			}).Info("history entry recorded")
		}
	case EventBetterPred:
		s.log.WithFields(logrus.Fields{
			"old_fitness": e.OldFitness,
			"new_fitness": e.NewFitness,
		}).Info("new best predictor found")
	case EventPredLengthScheduled:
		s.log.WithField("new_length", e.NewPredictorLength).Info("baldwin scheduled a predictor resize")
	case EventPredLengthApplied, EventBaldwinResize:
		s.log.WithFields(logrus.Fields{
			"generation":      e.Generation,
			"old_length":      e.OldPredictorLength,
			"new_length":      e.NewPredictorLength,
			"old_used_length": e.OldUsedLength,
			"new_used_length": e.NewUsedLength,
		}).Info("baldwin resized active predictor")
	case EventStop:
		s.log.WithField("reason", e.StopReason).Warn("coordinator stopping")
	}
}

// CSVSink appends one row per history event to cgp_history.csv: the
// history entry's fields plus wallclock_minutes and usertime_minutes. Both
// time columns hold the same wall-clock minutes since the sink was built;
// process user time is not measured.
type CSVSink struct {
	w         *csv.Writer
	start     time.Time
	wroteHead bool
}

// NewCSVSink wraps w, writing the header on the first EventHistory.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w), start: time.Now()}
}

var csvHeader = []string{
	"generation", "delta_generation",
	"predicted_fitness", "delta_predicted_fitness",
	"real_fitness", "delta_real_fitness",
	"fitness_inaccuracy", "best_real_fitness_ever",
	"active_predictor_fitness", "velocity", "delta_velocity",
	"cgp_evals", "pred_length", "pred_used_length",
	"wallclock_minutes", "usertime_minutes",
}

// Publish implements Sink.
func (s *CSVSink) Publish(e Event) {
	if e.Kind != EventHistory || e.Entry == nil {
		return
	}
	if !s.wroteHead {
		_ = s.w.Write(csvHeader)
		s.wroteHead = true
	}

	entry := e.Entry
	elapsed := time.Since(s.start).Minutes()
	row := []string{
		strconv.Itoa(entry.Generation),
		strconv.Itoa(entry.DeltaGeneration),
		strconv.FormatFloat(entry.PredictedFitness, 'f', -1, 64),
		strconv.FormatFloat(entry.DeltaPredictedFitness, 'f', -1, 64),
		strconv.FormatFloat(entry.RealFitness, 'f', -1, 64),
		strconv.FormatFloat(entry.DeltaRealFitness, 'f', -1, 64),
		strconv.FormatFloat(entry.FitnessInaccuracy, 'f', -1, 64),
		strconv.FormatFloat(entry.BestRealFitnessEver, 'f', -1, 64),
		strconv.FormatFloat(entry.ActivePredictorFitness, 'f', -1, 64),
		strconv.FormatFloat(entry.Velocity, 'f', -1, 64),
		strconv.FormatFloat(entry.DeltaVelocity, 'f', -1, 64),
		strconv.FormatInt(entry.CGPEvals, 10),
		strconv.Itoa(entry.PredLength),
		strconv.Itoa(entry.PredUsedLength),
		strconv.FormatFloat(elapsed, 'f', 3, 64),
		strconv.FormatFloat(elapsed, 'f', 3, 64),
	}
	_ = s.w.Write(row)
	s.w.Flush()
}

// SummarySink writes a one-line plain-text stop report to w on EventStop.
// It does not write summary.log; runner.WriteArtifacts writes that file.
type SummarySink struct {
	w io.Writer
}

// NewSummarySink wraps w.
func NewSummarySink(w io.Writer) *SummarySink { return &SummarySink{w: w} }

// Publish implements Sink.
func (s *SummarySink) Publish(e Event) {
	if e.Kind != EventStop {
		return
	}
	fmt.Fprintf(s.w, "run stopped: %s\n", e.StopReason)
}

// DevNull discards every event.
type DevNull struct{}

// Publish implements Sink.
func (DevNull) Publish(Event) {}

// OpenLogFile is a small convenience wrapper shared by the sinks'
// constructors at the runner layer.
func OpenLogFile(path string) (*os.File, error) {
	return os.Create(path)
}

// Command coco runs the coevolutionary CGP image-denoising engine: load a
// clean/noisy image pair, evolve a filtering circuit, and write the
// completion artifacts to --log-dir.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mwiglasz/coco/internal/runner"
	"github.com/mwiglasz/coco/pkg/coevo"
	"github.com/mwiglasz/coco/pkg/config"
	"github.com/mwiglasz/coco/pkg/cpufeat"
	"github.com/mwiglasz/coco/pkg/logging"
)

// sigintEscalationWindow is how many CGP generations a second SIGINT must
// arrive within to be treated as fatal, rather than as a fresh graceful
// stop request.
const sigintEscalationWindow = 1000

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("coco failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	fs, cfg, rawAlg := config.NewFlagSet("coco")

	cmd := &cobra.Command{
		Use:   "coco",
		Short: "Coevolutionary CGP image denoising",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Resolve(cfg, rawAlg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), *cfg)
		},
	}
	cmd.Flags().AddFlagSet(fs)
	return cmd
}

// watchSignals handles SIGINT/SIGTERM/SIGXCPU for the lifetime of the run.
// SIGTERM and SIGXCPU always request a graceful, signal-attributed stop.
// The first SIGINT does the same; a second SIGINT arriving within
// sigintEscalationWindow generations of the first is fatal and exits the
// process immediately, without waiting for the cooperative stop or writing
// completion artifacts — a stuck or slow-converging run must still respond
// to "I mean it" from the operator.
func watchSignals(sigCh <-chan os.Signal, coordReady <-chan *coevo.Coordinator) {
	var coord *coevo.Coordinator
	sigintCount := 0
	sigintFirstGen := 0

	currentGeneration := func() int {
		if coord == nil {
			select {
			case coord = <-coordReady:
			default:
			}
		}
		if coord == nil {
			return 0
		}
		return coord.Generation()
	}

	for sig := range sigCh {
		switch sig {
		case os.Interrupt:
			gen := currentGeneration()
			sigintCount++
			switch {
			case sigintCount == 1:
				sigintFirstGen = gen
				logrus.Warn("received SIGINT, stopping at the next generation boundary (a second SIGINT within 1000 generations forces immediate exit)")
				if coord != nil {
					coord.StopSignal(syscall.SIGINT)
				}
			case gen-sigintFirstGen <= sigintEscalationWindow:
				logrus.Warn("received a second SIGINT within the escalation window, exiting immediately")
				os.Exit(int(syscall.SIGINT))
			default:
				sigintCount = 1
				sigintFirstGen = gen
				logrus.Warn("received SIGINT, stopping at the next generation boundary")
				if coord != nil {
					coord.StopSignal(syscall.SIGINT)
				}
			}
		case syscall.SIGTERM, syscall.SIGXCPU:
			logrus.WithField("signal", sig).Warn("received signal, stopping at the next generation boundary")
			if coord != nil {
				coord.StopSignal(sig.(syscall.Signal))
			}
		}
	}
}

func run(ctx context.Context, cfg config.Config) error {
	fmt.Println(cpufeat.Detect().Summary())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGXCPU)
	defer signal.Stop(sigCh)

	coordReady := make(chan *coevo.Coordinator, 1)
	go watchSignals(sigCh, coordReady)

	sinks := []logging.Sink{logging.NewTextSink(os.Stdout)}
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return fmt.Errorf("coco: %w", err)
		}
		progressFile, err := logging.OpenLogFile(filepath.Join(cfg.LogDir, "progress.log"))
		if err != nil {
			return fmt.Errorf("coco: %w", err)
		}
		defer progressFile.Close()
		csvFile, err := logging.OpenLogFile(filepath.Join(cfg.LogDir, "cgp_history.csv"))
		if err != nil {
			return fmt.Errorf("coco: %w", err)
		}
		defer csvFile.Close()

		sinks = append(sinks, logging.NewTextSink(progressFile), logging.NewCSVSink(csvFile), logging.NewSummarySink(os.Stdout))
	}
	bus := logging.NewBus(sinks...)

	res, err := runner.Run(ctx, cfg, bus, func(c *coevo.Coordinator) {
		coordReady <- c
	})
	if err != nil {
		return fmt.Errorf("coco: %w", err)
	}

	fmt.Printf("stopped: %s, generation %d, fitness %f\n", res.Reason, res.Generation, float64(res.Fitness))
	if err := runner.WriteArtifacts(cfg.LogDir, res); err != nil {
		return err
	}

	// Exit codes: 0 normal, >0 configuration error (handled in main via the
	// error return above), the signal number when terminated by signal.
	if res.Reason == "signal" && res.SignalNumber != 0 {
		os.Exit(res.SignalNumber)
	}
	return nil
}

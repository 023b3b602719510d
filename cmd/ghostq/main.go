// Command ghostq is the command-line driver for the solver core in
// internal/qbf: it reads a GhostQ circuit file, wires spec.md §6's CLI
// surface (seed, timeout, free-variable mode, CEGAR, strategy/trace
// output paths, an external SAT-solver executable) onto a solve
// attempt, and maps the result to the prescribed exit code, grounded
// on the teacher's cmd/operator-cli/main.go (spf13/cobra root command,
// sirupsen/logrus debug-level switch in PreRunE).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitrdm/ghostq/internal/analysis"
	"github.com/gitrdm/ghostq/internal/gqfile"
	"github.com/gitrdm/ghostq/internal/qbf"
)

type options struct {
	seed        int64
	timeout     time.Duration
	free        bool
	cegar       bool
	cegarBudget int
	stratPath   string
	tracePath   string
	satExe      string
	debug       bool
}

func newRootCmd() *cobra.Command {
	o := options{}

	cmd := &cobra.Command{
		Use:   "ghostq <circuit-file>",
		Short: "ghostq",
		Long: "ghostq decides the truth of a quantified boolean formula given as a " +
			"gate-level circuit, and, when -free is set, returns a winning strategy.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if o.debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(args[0])
		},
	}

	cmd.Flags().Int64Var(&o.seed, "seed", 1, "pseudo-random generator seed")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "solve timeout; 0 disables the deadline")
	cmd.Flags().BoolVar(&o.free, "free", false,
		"enable free-variable mode (strategy emission, disables the true/false short-circuit)")
	cmd.Flags().BoolVar(&o.cegar, "cegar", false, "enable CEGAR gate synthesis")
	cmd.Flags().IntVar(&o.cegarBudget, "cegar-budget", 1000, "fresh-variable budget for CEGAR gate synthesis")
	cmd.Flags().StringVar(&o.stratPath, "strat", "", "write the winning strategy to this path (free-variable mode only)")
	cmd.Flags().StringVar(&o.tracePath, "trace", "", "write a resolution-step proof trace to this path")
	cmd.Flags().StringVar(&o.satExe, "sat-exe", "",
		"external SAT-solver executable for the auxiliary get-a-satisfying-assignment operation")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "enable debug logging")

	return cmd
}

func (o *options) run(inputPath string) error {
	log := logrus.WithField("component", "cmd/ghostq")

	f, err := os.Open(inputPath)
	if err != nil {
		return errors.Wrap(err, "ghostq: opening input file")
	}
	src, err := gqfile.Parse(f)
	f.Close()
	if err != nil {
		return errors.Wrap(err, "ghostq: parsing input file")
	}

	opts := []qbf.Option{
		qbf.WithSeed(o.seed),
		qbf.WithFreeVariables(o.free),
		qbf.WithCegar(o.cegar, o.cegarBudget),
		qbf.WithLogger(log),
	}

	if o.tracePath != "" {
		traceFile, err := os.Create(o.tracePath)
		if err != nil {
			return errors.Wrap(err, "ghostq: creating trace file")
		}
		defer traceFile.Close()
		opts = append(opts, qbf.WithTracer(analysis.LoggingTracer{Writer: traceFile}))
	}

	s, err := qbf.New(src, opts...)
	if err != nil {
		return errors.Wrap(err, "ghostq: building circuit")
	}

	ctx, cancel := context.WithCancel(signalContext())
	defer cancel()
	if o.timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, o.timeout)
		defer timeoutCancel()
	}

	res, err := s.Solve(ctx)
	if err != nil {
		// s.Solve only ever returns a *qbf.Timeout here (an
		// InternalInvariant traps the process itself via logrus.Panic
		// before returning) — spec.md §6 maps that to exit code 0.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(qbf.OutcomeTimeoutOrOther))
	}

	fmt.Printf("answer: %s (elapsed %s)\n", res.Outcome, res.Stats.Elapsed)

	if res.Outcome == qbf.OutcomeFree && len(res.Strategy) > 0 {
		if err := writeStrategy(o.stratPath, res.Strategy); err != nil {
			return err
		}
	}

	if o.satExe != "" {
		if err := runAuxiliarySat(ctx, o.satExe, src, log); err != nil {
			log.WithError(err).Warn("ghostq: auxiliary sat-exe operation failed")
		}
	}

	os.Exit(int(res.Outcome))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(qbf.OutcomeTimeoutOrOther))
	}
}

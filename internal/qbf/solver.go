// Package qbf is the top-level orchestration layer (spec §1-§2): it
// builds a circuit from a parser-supplied circuit.GateSource, wires
// together the formula/circuit/sequent/trail/analysis/cegar/search
// packages, and runs one solve attempt to a true/false/free answer,
// mirroring the teacher's solver.Solve/solver.New/Option pattern
// (operator-lifecycle-manager's pkg/controller/registry/resolver/solver).
package qbf

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gitrdm/ghostq/internal/analysis"
	"github.com/gitrdm/ghostq/internal/cegar"
	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/search"
	"github.com/gitrdm/ghostq/internal/sequent"
	"github.com/gitrdm/ghostq/internal/trail"
)

// Outcome is the solver's terminal answer, numbered so a CLI can pass
// it straight to os.Exit (spec §6: "Exit codes: 10 for true, 20 for
// false, 99 for free-variable answer, 0 for timeout/other").
type Outcome int

const (
	OutcomeTimeoutOrOther Outcome = 0
	OutcomeTrue           Outcome = 10
	OutcomeFalse          Outcome = 20
	OutcomeFree           Outcome = 99
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTrue:
		return "true"
	case OutcomeFalse:
		return "false"
	case OutcomeFree:
		return "free"
	default:
		return "timeout/other"
	}
}

// Strategy is the output-facing strategy listing (spec §6: "a formula
// list mapping each non-free variable to its response formula over
// free variables"). The core only ever populates one entry, keyed by
// the circuit's output gate — decomposing a combined strategy circuit
// into an independent per-variable listing is the strategy-writer
// collaborator's job (see DESIGN.md), not core solving.
type Strategy map[formula.VarName]*formula.Node

// Stats carries solve-attempt counters useful for the CLI's timing
// line (spec §7: "on success... plus timing").
type Stats struct {
	Decisions int
	Restarts  int
	Elapsed   time.Duration
}

// Result is one completed solve attempt.
type Result struct {
	Outcome Outcome

	// StrategyRoot is the terminal sequent's answer formula: a
	// formula.Store constant for OutcomeTrue/OutcomeFalse, or the
	// combined strategy circuit for OutcomeFree.
	StrategyRoot formula.Lit
	Strategy     Strategy

	Stats Stats
}

// Solver owns one circuit and its supporting stores across solve
// attempts; Solve may be called more than once (each call runs a
// fresh search.Driver over the same circuit/stores).
type Solver struct {
	circuit *circuit.Circuit
	formula *formula.Store
	store   *sequent.Store

	seed           int64
	freeVariables  bool
	cegarEnabled   bool
	cegarBudget    int
	tracer         analysis.Tracer
	log            *logrus.Entry
	randomFraction float64
}

// Option configures a Solver, following the teacher's func(*solver)
// error convention so option application can itself fail validation.
type Option func(*Solver) error

// WithSeed sets the pseudo-random generator's seed (spec §6).
func WithSeed(seed int64) Option {
	return func(s *Solver) error { s.seed = seed; return nil }
}

// WithFreeVariables enables free-variable mode: strategy emission and
// a non-constant terminal answer become legal (spec §6).
func WithFreeVariables(enabled bool) Option {
	return func(s *Solver) error { s.freeVariables = enabled; return nil }
}

// WithCegar enables CEGAR gate synthesis with the given fresh-variable
// budget (spec §4.6, §6). A non-positive budget behaves as disabled.
func WithCegar(enabled bool, budget int) Option {
	return func(s *Solver) error {
		s.cegarEnabled = enabled
		s.cegarBudget = budget
		return nil
	}
}

// WithTracer installs a proof-log / debug tracer for conflict analysis
// (spec §7's optional proof log).
func WithTracer(t analysis.Tracer) Option {
	return func(s *Solver) error { s.tracer = t; return nil }
}

// WithLogger overrides the structured logger the solver and its
// search driver log through.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Solver) error {
		if log == nil {
			return errors.New("qbf: WithLogger requires a non-nil entry")
		}
		s.log = log
		return nil
	}
}

// WithRandomDecisionFraction overrides the search driver's fraction of
// decisions made uniformly at random (default 0.02, spec §4.7).
func WithRandomDecisionFraction(f float64) Option {
	return func(s *Solver) error {
		if f < 0 || f > 1 {
			return errors.Errorf("qbf: random decision fraction must be in [0,1], got %v", f)
		}
		s.randomFraction = f
		return nil
	}
}

var defaults = []Option{
	func(s *Solver) error {
		if s.log == nil {
			s.log = logrus.WithField("component", "qbf")
		}
		return nil
	},
	func(s *Solver) error {
		if s.tracer == nil {
			s.tracer = analysis.DefaultTracer{}
		}
		return nil
	},
	func(s *Solver) error {
		if s.randomFraction == 0 {
			s.randomFraction = 0.02
		}
		return nil
	},
}

// New builds the circuit from src and constructs a Solver ready to
// Solve. A malformed src (out-of-range block indices, and anything
// circuit.Build itself rejects) is reported as a *ParseError.
func New(src circuit.GateSource, opts ...Option) (*Solver, error) {
	c, err := circuit.Build(src)
	if err != nil {
		return nil, newParseError(err)
	}

	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	sequent.LoadOriginal(st, c, fs)

	s := &Solver{circuit: c, formula: fs, store: st}
	for _, opt := range append(opts, defaults...) {
		if err := opt(s); err != nil {
			return nil, errors.Wrap(err, "qbf: applying option")
		}
	}
	return s, nil
}

// Solve runs one search attempt to a terminal sequent (spec §2, §4.7),
// translating its answer formula into a Result. Cancelling ctx (or
// exceeding a deadline placed on it by the caller's -timeout flag)
// yields a *Timeout error; a search driver that exhausts every
// decision candidate without reaching a terminal sequent — which
// should never happen against a sound circuit — is an
// *InternalInvariant and traps the process via logrus.Panic, matching
// spec §7's propagation policy.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()

	var cegarEngine *cegar.Engine
	if s.cegarEnabled {
		cegarEngine = cegar.NewEngine(s.circuit, s.store, s.formula, s.cegarBudget)
	}

	tr := trail.New(s.circuit.Prefix, s.store)
	d := search.NewDriver(tr, s.store, s.circuit.Prefix, s.circuit, s.formula, cegarEngine, s.tracer, s.seed)
	d.RandomFraction = s.randomFraction
	d.Log = s.log

	terminal, err := d.Run(ctx)
	if cegarEngine != nil && cegarEngine.Disabled() {
		s.log.WithError(newResourceExhausted(errors.New("fresh CEGAR variable budget exhausted"))).
			Warn("qbf: CEGAR disabled itself for the remainder of this solve")
	}
	if err != nil {
		if ctx.Err() != nil {
			s.log.WithError(err).Warn("qbf: timed out before reaching a terminal sequent")
			return nil, newTimeout(err)
		}
		invariant := newInternalInvariant(err)
		s.log.WithError(invariant).Panic("qbf: search driver failed to reach a terminal sequent")
		return nil, invariant
	}

	res := &Result{StrategyRoot: terminal.F, Stats: Stats{Elapsed: time.Since(start)}}
	switch {
	case s.formula.IsTrue(terminal.F):
		res.Outcome = OutcomeTrue
		s.log.WithField("elapsed", res.Stats.Elapsed).Info("qbf: answer true")
	case s.formula.IsFalse(terminal.F):
		res.Outcome = OutcomeFalse
		s.log.WithField("elapsed", res.Stats.Elapsed).Info("qbf: answer false")
	case s.freeVariables:
		res.Outcome = OutcomeFree
		res.Strategy = Strategy{
			formula.VarName(fmt.Sprintf("g%d", s.circuit.OutputGateLit.Var())): s.formula.Node(terminal.F),
		}
		s.log.WithField("elapsed", res.Stats.Elapsed).Info("qbf: answer free, strategy emitted")
	default:
		invariant := newInternalInvariant(errors.Errorf("terminal sequent carries non-constant answer formula %v outside free-variable mode", terminal.F))
		s.log.WithError(invariant).Panic("qbf: non-constant terminal answer outside free-variable mode")
		return nil, invariant
	}
	return res, nil
}

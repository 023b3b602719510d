// Package search implements the top-level search loop (spec §4.7):
// decide a literal or resolve a conflict, backjump, optionally launch
// CEGAR, decay/rescale activities, delete excess learned sequents, and
// restart on a Luby-like schedule, wiring together internal/trail,
// internal/analysis, and internal/cegar.
package search

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gitrdm/ghostq/internal/analysis"
	"github.com/gitrdm/ghostq/internal/cegar"
	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/sequent"
	"github.com/gitrdm/ghostq/internal/trail"
)

// Driver owns one solve attempt's mutable search state: the trail,
// sequent store, CEGAR engine, activity decay/rescale parameters,
// restart schedule, and deletion budget.
type Driver struct {
	Trail   *trail.Trail
	Store   *sequent.Store
	Prefix  *circuit.Prefix
	Circuit *circuit.Circuit
	Formula *formula.Store
	Cegar   *cegar.Engine
	Tracer  analysis.Tracer
	Log     *logrus.Entry

	rng *rand.Rand

	// RandomFraction is the probability a decision picks a random
	// unassigned literal from the chosen block instead of the
	// highest-activity one (spec §4.7's "occasional random
	// perturbations").
	RandomFraction float64

	VarDecay     float64
	VarRescaleAt float64
	SeqDecay     float64
	SeqRescaleAt float64

	restartBase           int
	conflictsSinceRestart int
	restartCount          int

	deletionBudget int
	deletionGrowth float64

	preferred *circuit.Literal

	polarityPathIdx   int
	polarityRandomize bool
}

// NewDriver creates a Driver over an already-built circuit/store/trail
// triple, with CDCL-typical decay/restart/deletion defaults. cegarEngine
// may be nil to run without CEGAR.
func NewDriver(tr *trail.Trail, st *sequent.Store, prefix *circuit.Prefix, c *circuit.Circuit, fs *formula.Store, cegarEngine *cegar.Engine, tracer analysis.Tracer, seed int64) *Driver {
	if tracer == nil {
		tracer = analysis.DefaultTracer{}
	}
	return &Driver{
		Trail:          tr,
		Store:          st,
		Prefix:         prefix,
		Circuit:        c,
		Formula:        fs,
		Cegar:          cegarEngine,
		Tracer:         tracer,
		Log:            logrus.WithField("component", "search"),
		rng:            rand.New(rand.NewSource(seed)),
		RandomFraction: 0.02,
		VarDecay:       0.95,
		VarRescaleAt:   1e100,
		SeqDecay:       0.999,
		SeqRescaleAt:   1e100,
		restartBase:    100,
		deletionBudget: 200,
		deletionGrowth: 1.1,
	}
}

// SetPreferred injects a literal decide() must try first, before
// falling back to the activity heuristic (spec §4.7 step (a)).
func (d *Driver) SetPreferred(lit circuit.Literal) { d.preferred = &lit }

// prime performs the one-time initial unit-propagation pass over every
// already-forcing sequent — chiefly the original gate-definition and
// seed sequents from sequent.LoadOriginal, several of which are unit
// and so ripe from the very first instant, before any literal has ever
// been assigned to trigger the normal watch-driven Propagate cascade.
// Forced literals are queued via Enqueue; the first real Propagate()
// call in Run drains them and lets the ordinary watch mechanism take
// over the resulting chain reaction.
func (d *Driver) prime() {
	for _, s := range d.Store.All() {
		status, forced := d.Store.Classify(s, d.Trail)
		if status == sequent.StatusForcing && !d.Trail.IsAssigned(forced) {
			d.Trail.Enqueue(forced, s)
		}
	}
}

// Run executes the main loop until a terminal sequent (empty Lnow) is
// derived or ctx is cancelled.
func (d *Driver) Run(ctx context.Context) (*sequent.Sequent, error) {
	d.prime()
	for {
		if !d.Trail.Propagate() {
			terminal, err := d.handleConflict()
			if err != nil {
				return nil, err
			}
			if terminal != nil {
				return terminal, nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "search: cancelled before reaching a terminal sequent")
		default:
		}

		lit, ok := d.decide()
		if !ok {
			return nil, errors.New("search: exhausted decisions without reaching a terminal sequent")
		}
		d.Trail.Decide(lit)
	}
}

// handleConflict runs one pass of spec §4.7's conflict branch: analyze,
// install, backjump, CEGAR, decay, deletion, restart, then re-arm the
// learned sequent's single remaining trigger directly (the watch
// mechanism only reacts to freshly assigned literals, and backjumping
// does not assign one on its own).
func (d *Driver) handleConflict() (*sequent.Sequent, error) {
	conflict := d.Trail.Conflicts[0]
	decisionBlock := d.currentDecisionBlock()

	learned, target := analysis.Analyze(d.Trail, d.Store, d.Prefix, d.Formula, conflict, d.Tracer)
	d.Log.WithField("sequent", learned.ID).WithField("target", target).Debug("search: learned sequent from conflict")

	if len(learned.Lnow) == 0 {
		return learned, nil
	}

	d.Trail.BacktrackTo(target)
	d.runCegar(conflict, decisionBlock)
	d.decayActivities()
	d.maybeDeleteLearned()

	d.conflictsSinceRestart++
	if d.shouldRestart() {
		d.restart()
	}

	status, forced := d.Store.Classify(learned, d.Trail)
	switch status {
	case sequent.StatusForcing:
		d.Trail.Enqueue(forced, learned)
	case sequent.StatusConflicting:
		return learned, nil
	}
	return nil, nil
}

// runCegar attempts one CEGAR episode for the block being eliminated,
// skipping free-variable blocks (CEGAR only eliminates quantified
// player moves, spec §4.6).
func (d *Driver) runCegar(conflict *sequent.Sequent, decisionBlock *circuit.QBlock) {
	if d.Cegar == nil || d.Cegar.Disabled() {
		return
	}
	q := cegar.SelectEliminationBlock(d.Prefix, conflict, decisionBlock)
	if q == nil {
		return
	}
	var winner circuit.Player
	switch q.Type {
	case circuit.QExists:
		winner = circuit.Existential
	case circuit.QForall:
		winner = circuit.Universal
	default:
		return
	}
	if s := d.Cegar.Run(d.Trail, conflict, decisionBlock, winner); s != nil {
		d.Log.WithField("sequent", s.ID).Debug("search: installed CEGAR-synthesized sequent")
	}
}

// currentDecisionBlock returns the quantifier block of the most recent
// decision literal still on the trail, CEGAR's fallback elimination
// block when seeding opportunistically.
func (d *Driver) currentDecisionBlock() *circuit.QBlock {
	for ts := d.Trail.Chronology() - 1; ts >= 0; ts-- {
		lit := d.Trail.LiteralAt(ts)
		if d.Trail.AntecedentOf(lit) == nil {
			return d.Prefix.BlockOf(lit.Var())
		}
	}
	return d.Prefix.Blocks[0]
}

// decidable reports whether v is a variable the search loop may decide
// directly: an original input, or a CEGAR-synthesized fresh input.
// Gate and ghost variables are only ever set by propagation.
func (d *Driver) decidable(v circuit.GateVar) bool {
	if d.Circuit.IsInput(v) {
		return true
	}
	return d.Cegar != nil && d.Cegar.IsCegarInput(v)
}

// decide implements spec §4.7 step (a): an injected preferred literal
// if still unassigned, else the highest-activity unassigned variable
// in the outermost block with one, with saved polarity preference
// (subject to the current restart polarity path), occasionally
// replaced by a uniformly random literal from that block.
func (d *Driver) decide() (circuit.Literal, bool) {
	if d.preferred != nil {
		lit := *d.preferred
		d.preferred = nil
		if !d.Trail.IsAssigned(lit) {
			return lit, true
		}
	}

	block, cands := d.outermostUnassignedBlock()
	if block == nil {
		return 0, false
	}

	var v circuit.GateVar
	if d.RandomFraction > 0 && d.rng.Float64() < d.RandomFraction {
		v = cands[d.rng.Intn(len(cands))]
	} else {
		v = cands[0]
		best := d.Trail.Activity(v)
		for _, c := range cands[1:] {
			if a := d.Trail.Activity(c); a > best {
				v, best = c, a
			}
		}
	}
	if d.polarityFor(v) {
		return v.Pos(), true
	}
	return v.Neg(), true
}

// outermostUnassignedBlock scans the prefix in outer-to-inner order
// for the first block with a decidable, unassigned variable, returning
// it and every such variable in that block in ascending GateVar order
// (a deterministic tie-break so runs with the same seed stay stable,
// per spec §5).
func (d *Driver) outermostUnassignedBlock() (*circuit.QBlock, []circuit.GateVar) {
	for _, b := range d.Prefix.Blocks {
		var cands []circuit.GateVar
		for v := range b.Vars {
			if !d.decidable(v) || d.Trail.IsAssigned(v.Pos()) {
				continue
			}
			cands = append(cands, v)
		}
		if len(cands) > 0 {
			sort.Slice(cands, func(i, j int) bool { return cands[i] < cands[j] })
			return b, cands
		}
	}
	return nil, nil
}

// polarityFor returns the polarity decide() should use for v under the
// current restart "path" (spec §4.7: a small rotating set, with
// optional randomization, of saved polarity preferences).
func (d *Driver) polarityFor(v circuit.GateVar) bool {
	switch d.polarityPathIdx {
	case 1:
		return true
	case 2:
		return false
	default:
		pref := d.Trail.PolarityPreference(v)
		if d.polarityRandomize && d.rng.Float64() < 0.5 {
			return !pref
		}
		return pref
	}
}

// decayActivities implements spec §4.7's decay/rescale pair for both
// variable activity (internal/trail) and sequent activity (mutated
// directly on the exported Sequent.Activity field, the same pattern
// internal/analysis's resolveStep already uses).
func (d *Driver) decayActivities() {
	d.Trail.DecayActivity(d.VarDecay)
	d.Trail.RescaleActivityIfNeeded(d.VarRescaleAt)

	all := d.Store.All()
	max := 0.0
	for _, s := range all {
		s.Activity *= d.SeqDecay
		if s.Activity > max {
			max = s.Activity
		}
	}
	if max > d.SeqRescaleAt {
		for _, s := range all {
			s.Activity /= d.SeqRescaleAt
		}
	}
}

// maybeDeleteLearned implements spec §4.7's deletion policy: once the
// live learned count exceeds the current budget, delete every
// deletable (zero in-use) learned sequent whose activity is below the
// median of that deletable set, then grow the budget.
func (d *Driver) maybeDeleteLearned() {
	learnedCount := 0
	for _, s := range d.Store.All() {
		if s.Learned {
			learnedCount++
		}
	}
	if learnedCount <= d.deletionBudget {
		return
	}
	candidates := d.Store.DeletionCandidates()
	if len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Activity < candidates[j].Activity })
	median := candidates[len(candidates)/2].Activity
	for _, s := range candidates {
		if s.Activity < median {
			d.Store.Delete(s.ID)
		}
	}
	d.deletionBudget = int(float64(d.deletionBudget) * d.deletionGrowth)
}

// shouldRestart reports whether the conflict count since the last
// restart has reached the Luby-scheduled threshold.
func (d *Driver) shouldRestart() bool {
	threshold := int(float64(d.restartBase) * luby(2, d.restartCount))
	if threshold < 1 {
		threshold = 1
	}
	return d.conflictsSinceRestart >= threshold
}

// restart backtracks to level zero and rotates the polarity-preference
// path (spec §4.7).
func (d *Driver) restart() {
	d.Trail.Restart()
	d.conflictsSinceRestart = 0
	d.restartCount++
	d.polarityPathIdx = (d.polarityPathIdx + 1) % 3
	d.polarityRandomize = d.polarityPathIdx == 0
	d.Log.WithField("restart", d.restartCount).Debug("search: restarted")
}

// luby computes y^seq for the standard Luby restart sequence term at
// (0-indexed) position x — 1,1,2,1,1,2,4,1,1,2,1,1,2,4,8,... when y=2 —
// the widely used MiniSat-style restart schedule (spec §4.7: "the
// first few restarts at a fixed small interval, then a slowly-growing
// cycle").
func luby(y float64, x int) float64 {
	size, seq := 1, 0
	for size < x+1 {
		seq++
		size = 2*size + 1
	}
	for size-1 != x {
		size = (size - 1) / 2
		seq--
		x = x % size
	}
	return math.Pow(y, float64(seq))
}

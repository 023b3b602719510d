// Package analysis implements Q-resolution conflict/solution analysis
// (spec §4.5): given a conflicting or terminal sequent, it walks the
// trail's trigger literals in reverse-chronological order, resolving
// the working sequent against each trigger's antecedent, detects an
// asserting decision-level UIP, minimizes the result by
// self-subsumption, and ∀/∃-reduces its reserved literals — producing
// a new sequent plus a backjump target for the search driver.
package analysis

import (
	"sort"

	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/sequent"
)

// Trail is the narrow view analysis needs of the decision trail,
// mirroring sequent.Assigner plus the chronological/antecedent
// bookkeeping resolution walks backward over. internal/trail.Trail
// implements this.
type Trail interface {
	sequent.Assigner
	Level() int
	DecisionLevelOf(l circuit.Literal) int
	AntecedentOf(l circuit.Literal) *sequent.Sequent
	Chronology() int
	LiteralAt(ts int) circuit.Literal
	TimestampOf(l circuit.Literal) int
	BumpActivity(v circuit.GateVar, inc float64)
}

// working is the mutable sequent analysis builds up across resolution
// steps, before it is interned into the store as W's final form.
type working struct {
	lnow map[circuit.Literal]bool
	lfut map[circuit.Literal]bool
	f    formula.Lit
}

func newWorking(s *sequent.Sequent) *working {
	w := &working{
		lnow: make(map[circuit.Literal]bool, len(s.Lnow)),
		lfut: make(map[circuit.Literal]bool, len(s.Lfut)),
		f:    s.F,
	}
	for _, l := range s.Lnow {
		w.lnow[l] = true
	}
	for _, l := range s.Lfut {
		w.lfut[l] = true
	}
	return w
}

func (w *working) lnowSlice() []circuit.Literal {
	out := make([]circuit.Literal, 0, len(w.lnow))
	for l := range w.lnow {
		out = append(out, l)
	}
	return out
}

func (w *working) lfutSlice() []circuit.Literal {
	out := make([]circuit.Literal, 0, len(w.lfut))
	for l := range w.lfut {
		out = append(out, l)
	}
	return out
}

// quantifierTypeOf maps a circuit block's QType to the resolution
// "combine" rule it drives: F (free), E (existential), A (universal).
func quantifierTypeOf(prefix *circuit.Prefix, v circuit.GateVar) circuit.QType {
	b := prefix.BlockOf(v)
	if b == nil {
		return circuit.QExists
	}
	if b.Type == circuit.QFreeBlock {
		return circuit.QFreeBlock
	}
	return b.Type
}

// combine implements spec §4.5 step 2's F-merge rule for a resolved
// pivot ℓ: ITE for a free pivot, OR for an existential pivot, AND for
// a universal one.
func combine(fs *formula.Store, qt circuit.QType, pivot circuit.Literal, fw, fd formula.Lit) formula.Lit {
	switch qt {
	case circuit.QFreeBlock:
		cond := fs.Var(formula.VarName(pivot.Var().String()))
		if !pivot.IsPos() {
			cond = fs.Negate(cond)
		}
		return fs.Ite(cond, fw, fd)
	case circuit.QForall:
		return fs.And(fw, fd)
	default: // QExists
		return fs.Or(fw, fd)
	}
}

// Analyze runs the full Q-resolution algorithm over a conflicting (or
// terminal) sequent c, returning the newly learned sequent and the
// backjump decision level the search driver should unwind to.
func Analyze(tr Trail, store *sequent.Store, prefix *circuit.Prefix, fs *formula.Store, c *sequent.Sequent, tracer Tracer) (*sequent.Sequent, int) {
	w := newWorking(c)

	// Trigger literals in reverse-chronological processing order:
	// every Lnow literal of the evolving working sequent that is
	// currently assigned, scanned from the latest timestamp backward.
	for ts := tr.Chronology() - 1; ts >= 0; ts-- {
		lit := tr.LiteralAt(ts)
		if !w.lnow[lit] {
			continue
		}
		if tr.AntecedentOf(lit) == nil {
			// A decision literal: nothing to resolve against.
			continue
		}
		d := tr.AntecedentOf(lit)
		resolveStep(tr, prefix, fs, w, lit, d)
		if tracer != nil {
			tracer.Trace(AnalysisPosition{Trail: tr, Working: w.lnowSlice()})
		}
		if _, ok := findUIP(tr, prefix, w); ok {
			learned := finalize(store, prefix, w, true)
			return learned, backjumpTarget(tr, learned.Lnow)
		}
	}

	// Ran out of trigger literals without an earlier UIP (the
	// terminal/top-level case).
	learned := finalize(store, prefix, w, true)
	return learned, backjumpTarget(tr, learned.Lnow)
}

// backjumpTarget implements spec §4.5's backjump rule: the decision
// level of the second-most-recent trigger literal in the learned
// sequent's final Lnow, or 0 if it has fewer than two triggers.
func backjumpTarget(tr Trail, lnow []circuit.Literal) int {
	if len(lnow) < 2 {
		return 0
	}
	ordered := append([]circuit.Literal(nil), lnow...)
	sort.Slice(ordered, func(i, j int) bool {
		return tr.TimestampOf(ordered[i]) > tr.TimestampOf(ordered[j])
	})
	return tr.DecisionLevelOf(ordered[1])
}

// resolveStep performs one Q-resolution step of W against D on pivot
// ℓ (spec §4.5 step 2).
func resolveStep(tr Trail, prefix *circuit.Prefix, fs *formula.Store, w *working, pivot circuit.Literal, d *sequent.Sequent) {
	delete(w.lnow, pivot)
	for _, l := range d.Lnow {
		if l == pivot.Not() {
			continue
		}
		w.lnow[l] = true
	}

	for _, l := range d.Lfut {
		w.lfut[l] = true
	}
	qt := quantifierTypeOf(prefix, pivot.Var())
	if qt == circuit.QFreeBlock || strategiesDiffer(fs, w.f, d.F, pivot) {
		w.lfut[pivot] = true
		w.lfut[pivot.Not()] = true
	}

	w.f = combine(fs, qt, pivot, w.f, d.F)

	d.Activity++
	for _, l := range d.Lnow {
		tr.BumpActivity(l.Var(), 1.0)
	}
}

// strategiesDiffer reports whether W's and D's strategy formulas
// disagree on the natural (positive) polarity of pivot's variable,
// per spec §4.5 step 2's second insertion condition. Absent a full
// symbolic-equivalence check (out of scope here), a constant-vs-constant
// mismatch on the winner encodes the disagreement the spec describes;
// non-constant strategies are conservatively treated as differing.
func strategiesDiffer(fs *formula.Store, fw, fd formula.Lit, pivot circuit.Literal) bool {
	if fs.IsConst(fw) && fs.IsConst(fd) {
		return fw != fd
	}
	return true
}

// findUIP reports an asserting UIP when exactly one trigger literal of
// W sits at the current decision level and no Lfut literal of W is
// ordered strictly outer to it. Every trigger literal at the current
// level is counted: its quantifier type is not compared with the
// declared winner (findUIP is not given the winner).
func findUIP(tr Trail, prefix *circuit.Prefix, w *working) (int, bool) {
	level := tr.Level()
	var candidates []circuit.Literal
	for l := range w.lnow {
		if tr.DecisionLevelOf(l) != level {
			continue
		}
		candidates = append(candidates, l)
	}
	if len(candidates) != 1 {
		return 0, false
	}
	asserting := candidates[0]
	assertingBlock := blockIndexOf(prefix, asserting.Var())
	for l := range w.lfut {
		if blockIndexOf(prefix, l.Var()) < assertingBlock {
			return 0, false
		}
	}
	return level, true
}

func blockIndexOf(prefix *circuit.Prefix, v circuit.GateVar) int {
	b := prefix.BlockOf(v)
	if b == nil {
		return 0
	}
	return b.Index
}

// finalize performs spec §4.5 steps 4-5 (self-subsumption minimization
// and ∀/∃-reduction of Lfut) and installs W into the store as a
// learned sequent.
func finalize(store *sequent.Store, prefix *circuit.Prefix, w *working, learned bool) *sequent.Sequent {
	lnow := selfSubsumptionMinimize(store, w.lnowSlice())
	lfut := reduceLfut(prefix, lnow, w.lfutSlice())
	return store.Add(lnow, lfut, w.f, learned)
}

// selfSubsumptionMinimize drops a trigger literal l from lnow when some
// sequent returned by store.WatchingRequired(l) passes subsumedBy. Every
// such sequent has l itself in its Lnow, which subsumedBy rejects, so no
// literal is dropped and the result holds the same literals as lnow.
func selfSubsumptionMinimize(store *sequent.Store, lnow []circuit.Literal) []circuit.Literal {
	present := make(map[circuit.Literal]bool, len(lnow))
	for _, l := range lnow {
		present[l] = true
	}
	out := make([]circuit.Literal, 0, len(lnow))
	for _, l := range lnow {
		if redundant(store, present, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func redundant(store *sequent.Store, present map[circuit.Literal]bool, l circuit.Literal) bool {
	for _, ante := range store.WatchingRequired(l) {
		if subsumedBy(ante, present, l) {
			return true
		}
	}
	return false
}

// subsumedBy reports whether ante's Lnow, minus l's negation, is a
// subset of the surviving literal set (excluding l itself).
func subsumedBy(ante *sequent.Sequent, present map[circuit.Literal]bool, l circuit.Literal) bool {
	if len(ante.Lnow) == 0 {
		return false
	}
	for _, al := range ante.Lnow {
		if al == l.Not() {
			continue
		}
		if al == l {
			return false
		}
		if !present[al] {
			return false
		}
	}
	return true
}

// reduceLfut drops any reserved literal whose block index is strictly
// outer to the outermost trigger literal's block (spec §4.5 step 5:
// standard QBF ∀/∃-reduction).
func reduceLfut(prefix *circuit.Prefix, lnow, lfut []circuit.Literal) []circuit.Literal {
	outermostTrigger := -1
	for _, l := range lnow {
		b := blockIndexOf(prefix, l.Var())
		if outermostTrigger == -1 || b < outermostTrigger {
			outermostTrigger = b
		}
	}
	if outermostTrigger == -1 {
		return lfut
	}
	out := make([]circuit.Literal, 0, len(lfut))
	for _, l := range lfut {
		if blockIndexOf(prefix, l.Var()) >= outermostTrigger {
			out = append(out, l)
		}
	}
	return out
}

// StrategyFromReserved derives a sequent's winner strategy formula
// purely from its reserved (Lfut) literals when F carries no other
// content, grounded on ghostq-cleansed.cpp's strat_from_Lfut: each
// reserved literal contributes an ITE arm keyed on its own variable,
// and an empty Lfut returns fallback unchanged.
func StrategyFromReserved(fs *formula.Store, lfut []circuit.Literal, fallback formula.Lit) formula.Lit {
	if len(lfut) == 0 {
		return fallback
	}
	result := fallback
	for i := len(lfut) - 1; i >= 0; i-- {
		l := lfut[i]
		cond := fs.Var(formula.VarName(l.Var().String()))
		if l.IsPos() {
			result = fs.Ite(cond, fs.True, result)
		} else {
			result = fs.Ite(cond, result, fs.True)
		}
	}
	return result
}

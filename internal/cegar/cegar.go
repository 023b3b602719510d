// Package cegar implements CEGAR-style gate synthesis (spec §4.6):
// selecting an elimination block, restricting the circuit under the
// literals assigned at or before it, and — when the restricted result
// is not a constant — installing a learned sequent that
// generalizes the triggering conflict or cube.
package cegar

import (
	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/sequent"
)

// Trail is the narrow trail view CEGAR needs: enough to walk the
// chronological assignment list and ask which decision block an input
// variable's value came from.
type Trail interface {
	sequent.Assigner
	Chronology() int
	LiteralAt(ts int) circuit.Literal
}

// Engine owns the fixed-size fresh-CEGAR-variable budget (spec §4.6's
// resource contract: "the fresh-variable arena has a fixed upper
// bound... when exhausted, CEGAR silently disables itself").
type Engine struct {
	Circuit *circuit.Circuit
	Store   *sequent.Store
	Formula *formula.Store

	budget int
	used   int

	// synthesized records every fresh CEGAR-input variable Restrict has
	// ever allocated, since such a variable sits past LastInputVar and
	// so would not otherwise be recognized by circuit.IsInput.
	synthesized map[circuit.GateVar]bool
}

// NewEngine creates an Engine with the given fresh-variable budget.
func NewEngine(c *circuit.Circuit, store *sequent.Store, fs *formula.Store, budget int) *Engine {
	return &Engine{Circuit: c, Store: store, Formula: fs, budget: budget, synthesized: make(map[circuit.GateVar]bool)}
}

// Disabled reports whether the fresh-variable budget has been
// exhausted; once true, the search driver must stop invoking Run.
func (e *Engine) Disabled() bool { return e.used >= e.budget }

// IsCegarInput reports whether v was synthesized by a prior Restrict
// call as a fresh CEGAR-input variable.
func (e *Engine) IsCegarInput(v circuit.GateVar) bool { return e.synthesized[v] }

// SelectEliminationBlock implements spec §4.6 step 1: the block of
// the conflicting sequent's reserved watch, or — when seeding CEGAR
// opportunistically rather than off a conflict — the current decision
// block.
func SelectEliminationBlock(prefix *circuit.Prefix, conflict *sequent.Sequent, currentDecisionBlock *circuit.QBlock) *circuit.QBlock {
	if conflict != nil {
		if rw, ok := conflict.ReservedWatch(); ok {
			if b := prefix.BlockOf(rw.Var()); b != nil {
				return b
			}
		}
	}
	return currentDecisionBlock
}

// AsgnLits implements spec §4.6 step 2: every chosen input literal at
// a block index at most Q's, plus — for winner — the conflicting
// sequent's own Lfut literals that fall exactly in block Q.
func AsgnLits(tr Trail, prefix *circuit.Prefix, c *circuit.Circuit, q *circuit.QBlock, conflict *sequent.Sequent, winner circuit.Player) []circuit.Literal {
	var out []circuit.Literal
	for ts := 0; ts < tr.Chronology(); ts++ {
		lit := tr.LiteralAt(ts)
		v := lit.Var()
		if !c.IsInput(v) {
			continue
		}
		b := prefix.BlockOf(v)
		if b == nil || b.Index > q.Index {
			continue
		}
		out = append(out, lit)
	}
	if conflict == nil {
		return out
	}
	for _, l := range conflict.Lfut {
		b := prefix.BlockOf(l.Var())
		if b != nil && b.Index == q.Index {
			out = append(out, l)
		}
	}
	return out
}

// hitMap turns AsgnLits into a variable -> truth-value map for pinning
// during restriction.
func hitMap(asgn []circuit.Literal) map[circuit.GateVar]bool {
	m := make(map[circuit.GateVar]bool, len(asgn))
	for _, l := range asgn {
		m[l.Var()] = l.IsPos()
	}
	return m
}

// Restrict implements spec §4.6 step 3: recursively rewrites g under
// the pinned assignment hit relative to elimination block q — input
// literals outer to q pass through unchanged, input literals exactly
// at q are pinned by hit, and input literals strictly inside q are
// replaced by a fresh "CEGAR input" variable placed in the block just
// before q, or in q itself when q is the outermost block (the
// e.budget-gated fresh-variable allocation this
// package owns). Gate literals fold through circuit.Circuit.AddGate,
// so the restricted output is either a constant, an existing literal,
// or a freshly interned gate.
func (e *Engine) Restrict(g circuit.Literal, hit map[circuit.GateVar]bool, q *circuit.QBlock) circuit.Literal {
	memo := make(map[circuit.GateVar]circuit.Literal)
	cegarVars := make(map[circuit.GateVar]circuit.GateVar)
	return e.restrict(g, hit, q, memo, cegarVars)
}

func (e *Engine) restrict(g circuit.Literal, hit map[circuit.GateVar]bool, q *circuit.QBlock, memo map[circuit.GateVar]circuit.Literal, cegarVars map[circuit.GateVar]circuit.GateVar) circuit.Literal {
	if circuit.IsConst(g) {
		return g
	}
	v := g.Var()

	if e.Circuit.IsInput(v) {
		b := e.Circuit.Prefix.BlockOf(v)
		switch {
		case b == nil || b.Index < q.Index:
			return g
		case b.Index == q.Index:
			val, ok := hit[v]
			if !ok {
				return g
			}
			return circuit.BoolLit(val == g.IsPos())
		default:
			fresh, ok := cegarVars[v]
			if !ok {
				if e.Disabled() {
					// Budget exhausted: fall back to the unrestricted
					// literal rather than synthesizing further. The
					// caller (search driver) must stop invoking CEGAR
					// once Disabled() is observed true; this is a
					// last-resort degrade-gracefully path for a single
					// in-flight restriction.
					return g
				}
				fresh = e.Circuit.FreshVar()
				e.used++
				target := q.Index - 1
				if target < 0 {
					target = q.Index
				}
				e.Circuit.Prefix.AddVar(fresh, e.Circuit.Prefix.Blocks[target])
				e.synthesized[fresh] = true
				cegarVars[v] = fresh
			}
			if g.IsPos() {
				return fresh.Pos()
			}
			return fresh.Neg()
		}
	}

	if out, ok := memo[v]; ok {
		if g.IsPos() {
			return out
		}
		return out.Not()
	}

	def := e.Circuit.Gate(v)
	if def == nil {
		return g
	}
	restrictedArgs := make([]circuit.Literal, len(def.Args))
	for i, a := range def.Args {
		restrictedArgs[i] = e.restrict(a, hit, q, memo, cegarVars)
	}
	out := e.Circuit.AddGate(restrictedArgs)
	memo[v] = out
	if g.IsPos() {
		return out
	}
	return out.Not()
}

// Run executes one CEGAR episode: selects AsgnLits for winner at
// elimination block q, restricts the circuit's output under them, and
// — if the result is not a constant — installs a learned sequent
// encoding the winner's commitment and the opponent's residual
// obligation (spec §4.6 step 4). The result is learned from whether it
// is a freshly interned gate, a gate that already existed, an input
// literal, or a CEGAR-input literal; only a constant result is
// rejected. Returns nil if Disabled(), if no elimination block is
// found, or if restriction folded to a constant.
func (e *Engine) Run(tr Trail, conflict *sequent.Sequent, currentDecisionBlock *circuit.QBlock, winner circuit.Player) *sequent.Sequent {
	if e.Disabled() {
		return nil
	}
	prefix := e.Circuit.Prefix
	q := SelectEliminationBlock(prefix, conflict, currentDecisionBlock)
	if q == nil {
		return nil
	}
	asgn := AsgnLits(tr, prefix, e.Circuit, q, conflict, winner)
	hit := hitMap(asgn)

	restricted := e.Restrict(e.Circuit.OutputGateLit, hit, q)
	if circuit.IsConst(restricted) {
		return nil
	}
	rv := restricted.Var()
	if !e.Circuit.IsInput(rv) && e.Circuit.Gate(rv) == nil && !e.IsCegarInput(rv) {
		return nil
	}

	lnow := make([]circuit.Literal, 0, len(asgn))
	for _, l := range asgn {
		lnow = append(lnow, l.Not())
	}
	lfut := []circuit.Literal{restricted}

	var f formula.Lit
	if winner == circuit.Existential {
		f = e.Formula.True
	} else {
		f = e.Formula.False
	}

	return e.Store.Add(lnow, lfut, f, true)
}

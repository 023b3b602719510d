// Package satexec implements the auxiliary "get a satisfying
// assignment" operation (spec §6.2): a Tseitin CNF encoding of a
// formula, a DIMACS file writer, a subprocess invocation of an
// external SAT-solver executable, and a parser for its output file.
// This is never on the solving critical path — it exists purely as a
// convenience the external driver can offer on top of a loaded
// formula, grounded on ghostq-pg-2021/bin/fmla.cpp's
// DimacsWriter/get_sat_asgn pattern.
package satexec

import (
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/gitrdm/ghostq/internal/formula"
)

// Encoder performs a structural (Tseitin) CNF encoding of a
// formula.Store DAG, reusing each node's own formula.Var as its DIMACS
// variable id rather than minting a parallel numbering — the node
// arena is already a dense, 1-based integer space, so no renumbering
// table is needed the way fmla.cpp's lit_to_fmla map provides one.
// Clause literals are represented with gini's z.Lit, the same signed
// var<<1|polarity packing internal/formula and internal/circuit use
// for their own Lit/Literal types, converted at the boundary via
// z.Dimacs2Lit/Lit.Dimacs.
type Encoder struct {
	fs      *formula.Store
	seen    map[formula.Var]bool
	clauses [][]z.Lit
	maxVar  int

	// vars maps every VAR node's name to its DIMACS id, so a caller can
	// later filter a returned model down to the formula's real
	// variables and drop internal Tseitin gate variables, mirroring
	// fmla.cpp's lit_to_fmla filtering in get_sat_asgn.
	vars map[formula.VarName]int
}

// NewEncoder returns an Encoder over fs. A single Encoder may Encode
// more than one root; node visits are memoized across calls so a
// shared subformula is clausified only once.
func NewEncoder(fs *formula.Store) *Encoder {
	return &Encoder{
		fs:   fs,
		seen: make(map[formula.Var]bool),
		vars: make(map[formula.VarName]int),
	}
}

// Vars returns the VAR-name-to-DIMACS-id table accumulated by every
// Encode call so far.
func (e *Encoder) Vars() map[formula.VarName]int { return e.vars }

// MaxVar returns the highest DIMACS variable id used by any clause
// emitted so far.
func (e *Encoder) MaxVar() int { return e.maxVar }

// Clauses returns every clause emitted so far.
func (e *Encoder) Clauses() [][]z.Lit { return e.clauses }

// Encode Tseitin-encodes root and everything it depends on, appending
// to the Encoder's running clause set, and returns the z.Lit standing
// for root itself.
func (e *Encoder) Encode(root formula.Lit) (clauses [][]z.Lit, outputLit z.Lit, err error) {
	if err := e.visit(root.Var()); err != nil {
		return nil, 0, err
	}
	return e.clauses, e.translate(root), nil
}

// translate converts a formula.Lit to the z.Lit naming the same
// (var, polarity) pair, tracking the running high-water mark of
// variable ids seen so far.
func (e *Encoder) translate(l formula.Lit) z.Lit {
	v := int(l.Var())
	if v > e.maxVar {
		e.maxVar = v
	}
	if l.IsPos() {
		return z.Dimacs2Lit(v)
	}
	return z.Dimacs2Lit(-v)
}

// gateLit returns the positive z.Lit naming v's own gate variable.
func (e *Encoder) gateLit(v formula.Var) z.Lit {
	if int(v) > e.maxVar {
		e.maxVar = int(v)
	}
	return z.Dimacs2Lit(int(v))
}

func (e *Encoder) addClause(lits ...z.Lit) {
	clause := make([]z.Lit, len(lits))
	copy(clause, lits)
	e.clauses = append(e.clauses, clause)
}

// visit emits the defining clauses for v's node, recursing into its
// arguments first. Each node is visited at most once: the node arena
// is already a DAG, so without memoization a shared subformula would
// be clausified once per occurrence.
func (e *Encoder) visit(v formula.Var) error {
	if e.seen[v] {
		return nil
	}
	e.seen[v] = true

	n := e.fs.NodeAt(v)
	g := e.gateLit(v)
	notG := g.Not()

	switch n.Op {
	case formula.VAR:
		e.vars[n.Name] = int(v)

	case formula.TRUE:
		e.addClause(g)

	case formula.FALSE:
		// Store.NewStore never interns a distinct FALSE node — False is
		// True's negative-polarity Lit — so this path is unreached from
		// any formula built through ops.go, and formula.ReadText and
		// ReadBinary also map FALSE to s.False. Kept as a defensive case
		// because the Op enum still has the tag.
		e.addClause(notG)

	case formula.AND:
		for _, a := range n.Args {
			if err := e.visit(a.Var()); err != nil {
				return err
			}
		}
		for _, a := range n.Args {
			e.addClause(notG, e.translate(a))
		}
		negs := make([]z.Lit, 0, len(n.Args)+1)
		negs = append(negs, g)
		for _, a := range n.Args {
			negs = append(negs, e.translate(a).Not())
		}
		e.addClause(negs...)

	case formula.OR:
		for _, a := range n.Args {
			if err := e.visit(a.Var()); err != nil {
				return err
			}
		}
		for _, a := range n.Args {
			e.addClause(g, e.translate(a).Not())
		}
		pos := make([]z.Lit, 0, len(n.Args)+1)
		pos = append(pos, notG)
		for _, a := range n.Args {
			pos = append(pos, e.translate(a))
		}
		e.addClause(pos...)

	case formula.XOR:
		if len(n.Args) != 2 {
			return errors.Errorf("satexec: XOR node %v has %d args, want 2", v, len(n.Args))
		}
		if err := e.visit(n.Args[0].Var()); err != nil {
			return err
		}
		if err := e.visit(n.Args[1].Var()); err != nil {
			return err
		}
		a, b := e.translate(n.Args[0]), e.translate(n.Args[1])
		notA, notB := a.Not(), b.Not()
		e.addClause(notG, notA, notB)
		e.addClause(notG, a, b)
		e.addClause(g, a, notB)
		e.addClause(g, notA, b)

	case formula.ITE:
		if len(n.Args) != 3 {
			return errors.Errorf("satexec: ITE node %v has %d args, want 3", v, len(n.Args))
		}
		for _, a := range n.Args {
			if err := e.visit(a.Var()); err != nil {
				return err
			}
		}
		i, then, els := e.translate(n.Args[0]), e.translate(n.Args[1]), e.translate(n.Args[2])
		notI, notThen, notEls := i.Not(), then.Not(), els.Not()
		e.addClause(notG, notI, then)
		e.addClause(notG, i, els)
		e.addClause(g, notI, notThen)
		e.addClause(g, i, notEls)

	default:
		return errors.Errorf("satexec: cannot Tseitin-encode a %s node: not a boolean-gate operator", n.Op)
	}
	return nil
}

// Package sequent implements the sequent store: the central learned
// object of the solver (spec data model §3.4) plus the watched-literal
// indices that support fast incremental propagation (component design
// §4.3), and the derivation of the circuit's original gate-definition
// sequents (§4.2).
package sequent

import (
	"sort"

	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
)

// ID is a sequent's stable identity. Slots are never reused, so an ID
// remains a valid historical key even after the sequent it named has
// been deleted (useful for the strategy file and proof trace).
type ID uint64

// Sequent is the triple (Lnow, Lfut, F): Lnow is the sorted, disjoint
// set of required ("trigger") literals, Lfut is the sorted set of
// reserved literals over outer-quantified variables, and F is the
// strategy/winner formula.
type Sequent struct {
	ID ID

	Lnow []circuit.Literal // sorted under ≺
	Lfut []circuit.Literal // sorted under ≺
	F    formula.Lit

	Activity float64
	InUse    int  // count of this sequent's implied literals currently on the trail
	Learned  bool // false for original gate-definition/seed sequents
	Alive    bool

	reqWatch [2]int // indices into Lnow; -1 if not applicable (len(Lnow) < 2)
	resWatch int     // index into Lfut; -1 if none
}

// newSequent allocates a sequent with Lnow/Lfut sorted under prefix's ≺
// relation and its watches initialized to the last two Lnow literals
// (the watch-fixing discipline moves them once assignments begin).
func newSequent(id ID, lnow, lfut []circuit.Literal, f formula.Lit, learned bool, prefix *circuit.Prefix) *Sequent {
	lnow = sortedCopy(lnow, prefix)
	lfut = sortedCopy(lfut, prefix)
	s := &Sequent{
		ID:      id,
		Lnow:    lnow,
		Lfut:    lfut,
		F:       f,
		Learned: learned,
		Alive:   true,
		resWatch: -1,
	}
	switch len(lnow) {
	case 0:
		s.reqWatch = [2]int{-1, -1}
	case 1:
		s.reqWatch = [2]int{0, -1}
	default:
		s.reqWatch = [2]int{len(lnow) - 2, len(lnow) - 1}
	}
	if len(lfut) > 0 {
		s.resWatch = len(lfut) - 1
	}
	return s
}

func sortedCopy(lits []circuit.Literal, prefix *circuit.Prefix) []circuit.Literal {
	out := make([]circuit.Literal, len(lits))
	copy(out, lits)
	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].Var(), out[j].Var()
		if vi == vj {
			return out[i] < out[j]
		}
		return prefix.Precedes(vi, vj)
	})
	return out
}

// Deletable reports whether a learned sequent is eligible for
// deletion: in-use mask zero and not an original (spec §3.4/§4.3).
func (s *Sequent) Deletable() bool {
	return s.Learned && s.InUse == 0
}

// ReservedWatch returns the literal s's reserved watch currently
// points at, and whether one is set at all (it never is for a
// sequent with an empty Lfut). CEGAR elimination-block selection
// reads this to find "the block of the reserved watch" (spec §4.6
// step 1).
func (s *Sequent) ReservedWatch() (circuit.Literal, bool) {
	if s.resWatch < 0 {
		return circuit.LitNull, false
	}
	return s.Lfut[s.resWatch], true
}

package sequent

import (
	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
)

// Assigner is the trail's view as seen by the sequent store: enough to
// fix watches and classify a sequent without the store importing
// internal/trail (which itself depends on sequent for antecedents).
type Assigner interface {
	// IsAssigned reports whether l's variable currently has a value.
	IsAssigned(l circuit.Literal) bool
	// IsSatisfied reports whether l evaluates true under the current
	// trail. Only meaningful when IsAssigned(l) is true.
	IsSatisfied(l circuit.Literal) bool
}

// Status is the outcome of classifying a sequent against the current
// trail (spec §4.4).
type Status int

const (
	// StatusInert: not ripe, nothing to do.
	StatusInert Status = iota
	// StatusBlocked: some Lfut literal is falsified; the sequent cannot
	// fire even though its Lnow watches are exhausted.
	StatusBlocked
	// StatusForcing: exactly one Lnow literal is unassigned and every
	// other Lnow literal is satisfied; Classify's second return value is
	// that literal's negation.
	StatusForcing
	// StatusConflicting: every Lnow literal is satisfied.
	StatusConflicting
)

// Store owns every live sequent, its watched-literal indices, and
// supports fast iteration over sequents watching a given literal
// (spec §4.3).
type Store struct {
	prefix *circuit.Prefix

	byID  map[ID]*Sequent
	order []ID // insertion order, for deterministic iteration/deletion scans
	next  ID

	watchReq map[circuit.Literal][]ID
	watchRes map[circuit.Literal][]ID
}

// NewStore creates an empty Store over the given circuit's quantifier
// prefix, which governs the ≺ ordering used to sort Lnow/Lfut and pick
// watches.
func NewStore(prefix *circuit.Prefix) *Store {
	return &Store{
		prefix:   prefix,
		byID:     make(map[ID]*Sequent),
		watchReq: make(map[circuit.Literal][]ID),
		watchRes: make(map[circuit.Literal][]ID),
	}
}

// Add interns a new sequent over (lnow, lfut, f), registers its
// initial watches, and returns it.
func (st *Store) Add(lnow, lfut []circuit.Literal, f formula.Lit, learned bool) *Sequent {
	st.next++
	s := newSequent(st.next, lnow, lfut, f, learned, st.prefix)
	st.byID[s.ID] = s
	st.order = append(st.order, s.ID)
	st.registerWatches(s)
	return s
}

func (st *Store) registerWatches(s *Sequent) {
	for _, i := range s.reqWatch {
		if i < 0 {
			continue
		}
		l := s.Lnow[i]
		st.watchReq[l] = append(st.watchReq[l], s.ID)
	}
	if s.resWatch >= 0 {
		l := s.Lfut[s.resWatch]
		st.watchRes[l] = append(st.watchRes[l], s.ID)
	}
}

func (st *Store) unregisterWatches(s *Sequent) {
	for _, i := range s.reqWatch {
		if i < 0 {
			continue
		}
		l := s.Lnow[i]
		st.watchReq[l] = removeID(st.watchReq[l], s.ID)
	}
	if s.resWatch >= 0 {
		l := s.Lfut[s.resWatch]
		st.watchRes[l] = removeID(st.watchRes[l], s.ID)
	}
}

func removeID(ids []ID, target ID) []ID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Get returns the sequent with the given id, or nil.
func (st *Store) Get(id ID) *Sequent { return st.byID[id] }

// WatchingRequired returns every live sequent whose required watch
// currently sits on l.
func (st *Store) WatchingRequired(l circuit.Literal) []*Sequent {
	return st.resolveIDs(st.watchReq[l])
}

// WatchingReserved returns every live sequent whose reserved watch
// currently sits on l.
func (st *Store) WatchingReserved(l circuit.Literal) []*Sequent {
	return st.resolveIDs(st.watchRes[l])
}

func (st *Store) resolveIDs(ids []ID) []*Sequent {
	out := make([]*Sequent, 0, len(ids))
	for _, id := range ids {
		if s, ok := st.byID[id]; ok && s.Alive {
			out = append(out, s)
		}
	}
	return out
}

// FixRequiredWatch implements the watch-move discipline on fix (spec
// §4.3): firedLit is the literal that just became assigned, which must
// currently sit in one of s's two required watch slots. If some other
// Lnow literal is still unassigned, the watch moves there and
// FixRequiredWatch returns true. Otherwise the watch stays (the
// sequent is now ripe for classification) and it returns false.
func (st *Store) FixRequiredWatch(s *Sequent, firedLit circuit.Literal, asg Assigner) bool {
	watchIdx := -1
	for i, pos := range s.reqWatch {
		if pos >= 0 && s.Lnow[pos] == firedLit {
			watchIdx = i
			break
		}
	}
	if watchIdx < 0 {
		// firedLit is not (or no longer) a required watch of s; nothing
		// to fix.
		return false
	}
	oldPos := s.reqWatch[watchIdx]
	oldLit := s.Lnow[oldPos]
	other := s.reqWatch[1-watchIdx]

	for i, l := range s.Lnow {
		if i == oldPos || i == other {
			continue
		}
		if !asg.IsAssigned(l) {
			st.watchReq[oldLit] = removeID(st.watchReq[oldLit], s.ID)
			s.reqWatch[watchIdx] = i
			st.watchReq[l] = append(st.watchReq[l], s.ID)
			st.fixReservedWatch(s, asg)
			return true
		}
	}
	st.fixReservedWatch(s, asg)
	return false
}

// fixReservedWatch re-points the reserved watch at some Lfut literal
// with a block index not smaller than the sequent's latest required
// watch, lazily, whenever the required watches change (spec §4.3: "the
// reserved watch is updated lazily whenever required watches change so
// that it points to an outer-block unassigned literal when the
// sequent is one-literal-from-firing").
func (st *Store) fixReservedWatch(s *Sequent, asg Assigner) {
	if len(s.Lfut) == 0 {
		return
	}
	var latestReqLit circuit.Literal
	haveLatest := false
	for _, i := range s.reqWatch {
		if i >= 0 {
			latestReqLit = s.Lnow[i]
			haveLatest = true
		}
	}
	best := -1
	for i, l := range s.Lfut {
		if asg.IsAssigned(l) {
			continue
		}
		if !haveLatest || !st.prefix.Precedes(l.Var(), latestReqLit.Var()) {
			best = i
		}
	}
	if best < 0 {
		best = len(s.Lfut) - 1
	}
	if s.resWatch == best {
		return
	}
	if s.resWatch >= 0 {
		oldLit := s.Lfut[s.resWatch]
		st.watchRes[oldLit] = removeID(st.watchRes[oldLit], s.ID)
	}
	s.resWatch = best
	st.watchRes[s.Lfut[best]] = append(st.watchRes[s.Lfut[best]], s.ID)
}

// Classify determines whether s is inert, blocked, forcing, or
// conflicting under the current trail (spec §4.4's firing-eligibility
// invariant): blocked whenever any Lfut literal is already falsified,
// otherwise forcing/conflicting based on how many Lnow literals remain
// unassigned.
func (st *Store) Classify(s *Sequent, asg Assigner) (Status, circuit.Literal) {
	for _, l := range s.Lfut {
		if asg.IsAssigned(l) && !asg.IsSatisfied(l) {
			return StatusBlocked, circuit.LitNull
		}
	}

	unassignedCount := 0
	var lastUnassigned circuit.Literal
	for _, l := range s.Lnow {
		if !asg.IsAssigned(l) {
			unassignedCount++
			lastUnassigned = l
			continue
		}
		if !asg.IsSatisfied(l) {
			return StatusInert, circuit.LitNull
		}
	}
	switch unassignedCount {
	case 0:
		return StatusConflicting, circuit.LitNull
	case 1:
		return StatusForcing, lastUnassigned.Not()
	default:
		return StatusInert, circuit.LitNull
	}
}

// Delete frees a learned sequent, removing its watch entries. It
// panics if the sequent is not Deletable, which indicates a driver
// bug (spec: "a learned sequent may be freed only when its in-use mask
// is zero").
func (st *Store) Delete(id ID) {
	s := st.byID[id]
	if s == nil || !s.Alive {
		return
	}
	if !s.Deletable() {
		panic("sequent: attempted to delete a sequent that is not deletable")
	}
	st.unregisterWatches(s)
	s.Alive = false
	delete(st.byID, id)
}

// All returns every live sequent in insertion order.
func (st *Store) All() []*Sequent {
	out := make([]*Sequent, 0, len(st.order))
	for _, id := range st.order {
		if s, ok := st.byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// DeletionCandidates returns every live, learned sequent whose in-use
// mask is zero, for the search driver's median-activity deletion pass
// (spec §4.3/§4.7).
func (st *Store) DeletionCandidates() []*Sequent {
	var out []*Sequent
	for _, s := range st.All() {
		if s.Deletable() {
			out = append(out, s)
		}
	}
	return out
}

// DebugSubsumptionCandidates reports, for each live sequent, any other
// live sequent whose Lnow is a subset of its Lnow under ⊆ — candidates
// a proof-log writer may want to flag, without the store itself acting
// on them (spec §4.3: "report subsumption candidates when debugging").
func (st *Store) DebugSubsumptionCandidates() map[ID][]ID {
	all := st.All()
	out := make(map[ID][]ID)
	for _, a := range all {
		aSet := litSet(a.Lnow)
		for _, b := range all {
			if a.ID == b.ID || len(b.Lnow) >= len(a.Lnow) {
				continue
			}
			if subsetOf(litSet(b.Lnow), aSet) {
				out[a.ID] = append(out[a.ID], b.ID)
			}
		}
	}
	return out
}

func litSet(lits []circuit.Literal) map[circuit.Literal]bool {
	m := make(map[circuit.Literal]bool, len(lits))
	for _, l := range lits {
		m[l] = true
	}
	return m
}

func subsetOf(small, big map[circuit.Literal]bool) bool {
	for l := range small {
		if !big[l] {
			return false
		}
	}
	return true
}

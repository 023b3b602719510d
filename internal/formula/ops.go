package formula

import "sort"

// Negate returns a canonical ¬l without recursion into the DAG: for
// every operator except FREE this is the O(1) polarity flip gini uses
// for its AIG literals. FREE is the one operator that does not treat
// polarity uniformly (spec: "NOT... pushes through FREE by negating
// the body"), so a FREE node is always interned positive and Negate
// builds (or finds) the FREE node wrapping the negated body instead of
// ever returning a negative literal over a FREE var.
func (s *Store) Negate(l Lit) Lit {
	n := s.Node(l)
	if n.Op == FREE {
		body := n.Args[0]
		negBody := s.Negate(body)
		v := s.intern(Node{Op: FREE, Args: []Lit{negBody}, Keys: n.Keys})
		return v.Pos()
	}
	return l.Not()
}

// And constructs the conjunction of args, with constant folding,
// identity/annihilator absorption, and single-child collapse.
func (s *Store) And(args ...Lit) Lit {
	return s.andOr(AND, args)
}

// Or constructs the disjunction of args, with the dual simplifications
// of And.
func (s *Store) Or(args ...Lit) Lit {
	return s.andOr(OR, args)
}

func (s *Store) andOr(op Op, args []Lit) Lit {
	identity, annihilator := s.True, s.False
	if op == OR {
		identity, annihilator = s.False, s.True
	}

	seen := make(map[Lit]bool, len(args))
	kept := make([]Lit, 0, len(args))
	for _, a := range args {
		if a == annihilator {
			return annihilator
		}
		if a == identity || seen[a] {
			continue
		}
		if seen[a.Not()] {
			return annihilator
		}
		seen[a] = true
		kept = append(kept, a)
	}
	switch len(kept) {
	case 0:
		return identity
	case 1:
		return kept[0]
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	v := s.intern(Node{Op: op, Args: kept})
	return v.Pos()
}

// Ite builds `if i then t else e`, folding when the test is constant
// or the branches are equal.
func (s *Store) Ite(i, t, e Lit) Lit {
	switch {
	case s.IsTrue(i):
		return t
	case s.IsFalse(i):
		return e
	case t == e:
		return t
	case s.IsTrue(t) && s.IsFalse(e):
		return i
	case s.IsFalse(t) && s.IsTrue(e):
		return s.Negate(i)
	}
	v := s.intern(Node{Op: ITE, Args: []Lit{i, t, e}})
	return v.Pos()
}

// Impl rewrites a -> b to Or(¬a, b), per the spec's own simplification
// rule; no IMPL node is ever stored.
func (s *Store) Impl(a, b Lit) Lit {
	return s.Or(s.Negate(a), b)
}

// Xor builds the exclusive-or of a and b. The node is always interned
// with both children in positive polarity and canonical order; any
// sign contributed by the caller's inputs is folded into the polarity
// of the returned literal ("a single possibly-negated child").
func (s *Store) Xor(a, b Lit) Lit {
	switch {
	case a == b:
		return s.False
	case a == b.Not():
		return s.True
	case s.IsTrue(a):
		return s.Negate(b)
	case s.IsFalse(a):
		return b
	case s.IsTrue(b):
		return s.Negate(a)
	case s.IsFalse(b):
		return a
	}
	flip := false
	if !a.IsPos() {
		a = a.Not()
		flip = !flip
	}
	if !b.IsPos() {
		b = b.Not()
		flip = !flip
	}
	if a > b {
		a, b = b, a
	}
	v := s.intern(Node{Op: XOR, Args: []Lit{a, b}})
	lit := v.Pos()
	if flip {
		lit = lit.Not()
	}
	return lit
}

// Eq builds the biconditional a <-> b, with the same constant-folding
// as Xor (spec: "EQ uses constant identities").
func (s *Store) Eq(a, b Lit) Lit {
	return s.Negate(s.Xor(a, b))
}

// List interns an ordered, unsimplified grouping of literals, used for
// serialization of ordered argument/name sequences.
func (s *Store) List(args ...Lit) Lit {
	cp := make([]Lit, len(args))
	copy(cp, args)
	v := s.intern(Node{Op: LIST, Args: cp})
	return v.Pos()
}

// Exists/Forall/Free wrap body with a quantifier-block marker naming
// the bound variables. These markers are used by strategy formulas and
// the NNF/AIG rewriters; the authoritative quantifier prefix governing
// solving lives in the circuit model (internal/circuit), not here.
func (s *Store) Exists(names []VarName, body Lit) Lit {
	return s.quantWrap(EXISTS, names, body)
}

func (s *Store) Forall(names []VarName, body Lit) Lit {
	return s.quantWrap(FORALL, names, body)
}

// Free wraps body as a FREE formula. FREE nodes are always interned
// positive; see Negate.
func (s *Store) Free(names []VarName, body Lit) Lit {
	return s.quantWrap(FREE, names, body)
}

func (s *Store) quantWrap(op Op, names []VarName, body Lit) Lit {
	cp := make([]VarName, len(names))
	copy(cp, names)
	v := s.intern(Node{Op: op, Args: []Lit{body}, Keys: cp})
	return v.Pos()
}

// Gseq interns a formula-level grouping of a sequent's pieces, used by
// the optional proof-log/strategy writers to serialize a Sequent as an
// ordinary formula node.
func (s *Store) Gseq(args ...Lit) Lit {
	cp := make([]Lit, len(args))
	copy(cp, args)
	v := s.intern(Node{Op: GSEQ, Args: cp})
	return v.Pos()
}

// Subst interns an explicit (unevaluated) substitution record: body
// with keys replaced by the parallel subs literals. This is the
// serialization-facing counterpart of the eager Substitute function in
// substitute.go; most callers want Substitute, not Subst.
func (s *Store) Subst(body Lit, keys []VarName, subs []Lit) Lit {
	ck := make([]VarName, len(keys))
	copy(ck, keys)
	cs := make([]Lit, len(subs))
	copy(cs, subs)
	v := s.intern(Node{Op: SUBST, Args: []Lit{body}, Keys: ck, Subs: cs})
	return v.Pos()
}

// Resolve interns a formula-level record of a Q-resolution step:
// resolving left and right on pivot. Used only to serialize a proof
// trace; it plays no part in Sequent construction itself (see
// internal/analysis).
func (s *Store) Resolve(pivot VarName, left, right Lit) Lit {
	v := s.intern(Node{Op: RESOLVE, Args: []Lit{left, right}, Name: pivot})
	return v.Pos()
}

// Newenv interns a fresh-environment marker used by the (external)
// multi-file parser to scope INCLUDEd definitions.
func (s *Store) Newenv(body Lit) Lit {
	v := s.intern(Node{Op: NEWENV, Args: []Lit{body}})
	return v.Pos()
}

// Include interns a reference to an externally-named environment.
func (s *Store) Include(name VarName) Lit {
	v := s.intern(Node{Op: INCLUDE, Name: name})
	return v.Pos()
}

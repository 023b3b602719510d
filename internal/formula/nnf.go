package formula

// ToNNF pushes negation down to the VAR/constant leaves (De Morgan for
// AND/OR, quantifier-swap for EXISTS/FORALL, branch-negation for
// ITE/XOR), memoized per call. Used by the (external) NNF/AIG/BDD
// writers and by strategy merging, which both want a representation
// where only leaves carry negative polarity.
func (s *Store) ToNNF(l Lit) Lit {
	memo := make(map[Lit]Lit, 64)
	return s.nnfRec(l, memo)
}

func (s *Store) nnfRec(l Lit, memo map[Lit]Lit) Lit {
	if v, ok := memo[l]; ok {
		return v
	}
	n := s.Node(l)
	pos := l.IsPos()
	var result Lit
	switch n.Op {
	case VAR, TRUE, FALSE, ERROR, INCLUDE:
		result = l
	case AND, OR:
		op := n.Op
		if !pos {
			if op == AND {
				op = OR
			} else {
				op = AND
			}
		}
		args := make([]Lit, len(n.Args))
		for i, a := range n.Args {
			child := a
			if !pos {
				child = a.Not()
			}
			args[i] = s.nnfRec(child, memo)
		}
		if op == AND {
			result = s.And(args...)
		} else {
			result = s.Or(args...)
		}
	case XOR:
		a, b := n.Args[0], n.Args[1]
		if !pos {
			a = a.Not()
		}
		result = s.Xor(s.nnfRec(a, memo), s.nnfRec(b, memo))
	case ITE:
		i, t, e := n.Args[0], n.Args[1], n.Args[2]
		if !pos {
			t, e = t.Not(), e.Not()
		}
		result = s.Ite(s.nnfRec(i, memo), s.nnfRec(t, memo), s.nnfRec(e, memo))
	case EXISTS, FORALL:
		op := n.Op
		body := n.Args[0]
		if !pos {
			body = body.Not()
			if op == EXISTS {
				op = FORALL
			} else {
				op = EXISTS
			}
		}
		nb := s.nnfRec(body, memo)
		v := s.intern(Node{Op: op, Args: []Lit{nb}, Keys: n.Keys})
		result = v.Pos()
	case FREE:
		nb := s.nnfRec(n.Args[0], memo)
		v := s.intern(Node{Op: FREE, Args: []Lit{nb}, Keys: n.Keys})
		result = v.Pos()
	case LIST, GSEQ, SUBST, RESOLVE, NEWENV:
		result = l
	default:
		result = l
	}
	memo[l] = result
	return result
}

// NNFToAIG lowers an already-NNF formula into a representation that
// uses only AND and leaf negation (De Morgan-expanding OR, XOR and
// ITE), the shape the AIG output writer and the external AIGER
// translator need. Input should already be the result of ToNNF.
func (s *Store) NNFToAIG(l Lit) Lit {
	memo := make(map[Lit]Lit, 64)
	return s.aigRec(l, memo)
}

func (s *Store) aigRec(l Lit, memo map[Lit]Lit) Lit {
	if v, ok := memo[l]; ok {
		return v
	}
	n := s.Node(l)
	var result Lit
	switch n.Op {
	case VAR, TRUE, FALSE, ERROR, INCLUDE:
		result = l
	case AND:
		args := make([]Lit, len(n.Args))
		for i, a := range n.Args {
			args[i] = s.aigRec(a, memo)
		}
		result = s.signAfter(l, s.And(args...))
	case OR:
		args := make([]Lit, len(n.Args))
		for i, a := range n.Args {
			args[i] = s.Negate(s.aigRec(a, memo))
		}
		result = s.signAfter(l, s.Negate(s.And(args...)))
	case XOR:
		a, b := s.aigRec(n.Args[0], memo), s.aigRec(n.Args[1], memo)
		t1 := s.And(a, s.Negate(b))
		t2 := s.And(s.Negate(a), b)
		result = s.signAfter(l, s.Negate(s.And(s.Negate(t1), s.Negate(t2))))
	case ITE:
		i, t, e := s.aigRec(n.Args[0], memo), s.aigRec(n.Args[1], memo), s.aigRec(n.Args[2], memo)
		thenB := s.And(i, t)
		elseB := s.And(s.Negate(i), e)
		result = s.signAfter(l, s.Negate(s.And(s.Negate(thenB), s.Negate(elseB))))
	case EXISTS, FORALL, FREE:
		body := s.aigRec(n.Args[0], memo)
		v := s.intern(Node{Op: n.Op, Args: []Lit{body}, Keys: n.Keys})
		result = s.signAfter(l, v.Pos())
	case LIST, GSEQ, SUBST, RESOLVE, NEWENV:
		result = l
	default:
		result = l
	}
	memo[l] = result
	return result
}

// SimpIte collapses nested ITEs sharing a condition, e.g.
// ITE(i, ITE(i, t1, e1), e2) -> ITE(i, t1, e2), memoized per call.
func (s *Store) SimpIte(l Lit) Lit {
	memo := make(map[Lit]Lit, 64)
	return s.simpIteRec(l, memo)
}

func (s *Store) simpIteRec(l Lit, memo map[Lit]Lit) Lit {
	if v, ok := memo[l]; ok {
		return v
	}
	n := s.Node(l)
	var result Lit
	switch n.Op {
	case ITE:
		i := s.simpIteRec(n.Args[0], memo)
		t := s.simpIteRec(n.Args[1], memo)
		e := s.simpIteRec(n.Args[2], memo)
		if tn := s.Node(t); t.IsPos() && tn.Op == ITE && tn.Args[0] == i {
			t = tn.Args[1]
		} else if t.IsPos() && tn.Op == ITE && tn.Args[0] == i.Not() {
			t = tn.Args[2]
		}
		if en := s.Node(e); e.IsPos() && en.Op == ITE && en.Args[0] == i {
			e = en.Args[2]
		} else if e.IsPos() && en.Op == ITE && en.Args[0] == i.Not() {
			e = en.Args[1]
		}
		result = s.signAfter(l, s.Ite(i, t, e))
	case AND:
		args := make([]Lit, len(n.Args))
		for k, a := range n.Args {
			args[k] = s.simpIteRec(a, memo)
		}
		result = s.signAfter(l, s.And(args...))
	case OR:
		args := make([]Lit, len(n.Args))
		for k, a := range n.Args {
			args[k] = s.simpIteRec(a, memo)
		}
		result = s.signAfter(l, s.Or(args...))
	case XOR:
		result = s.signAfter(l, s.Xor(s.simpIteRec(n.Args[0], memo), s.simpIteRec(n.Args[1], memo)))
	case EXISTS, FORALL, FREE:
		body := s.simpIteRec(n.Args[0], memo)
		v := s.intern(Node{Op: n.Op, Args: []Lit{body}, Keys: n.Keys})
		result = s.signAfter(l, v.Pos())
	default:
		result = l
	}
	memo[l] = result
	return result
}

// FindItes returns every ITE node reachable from l, as positive
// literals, in topological (post-) order with duplicates removed. Used
// by the BDD writer collaborator to enumerate branch sites.
func (s *Store) FindItes(l Lit) []Lit {
	seen := make(map[Var]bool)
	var out []Lit
	var walk func(m Lit)
	walk = func(m Lit) {
		v := m.Var()
		if seen[v] {
			return
		}
		seen[v] = true
		n := s.Node(m)
		for _, a := range n.Args {
			walk(a)
		}
		for _, a := range n.Subs {
			walk(a)
		}
		if n.Op == ITE {
			out = append(out, v.Pos())
		}
	}
	walk(l)
	return out
}

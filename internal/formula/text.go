package formula

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteText serializes root in the round-trippable textual form: one
// "$n := OP args..." definition per reachable node in topological
// order, sharing every subformula via its $n name, followed by a
// trailing "ROOT ±$n" line. This is the intern module's own
// round-trip format (spec data model §4.1); the richer external
// s-expression grammar with human-authored syntax is owned by the
// parser/writer collaborators and is not implemented here.
func (s *Store) WriteText(w io.Writer, root Lit) error {
	order, index := s.topoOrder(root)
	bw := bufio.NewWriter(w)
	for _, v := range order {
		n := s.nodes[v]
		fmt.Fprintf(bw, "$%d := %s", index[v], n.Op)
		switch n.Op {
		case VAR:
			fmt.Fprintf(bw, " %s", n.Name)
		case INCLUDE:
			fmt.Fprintf(bw, " %s", n.Name)
		case RESOLVE:
			fmt.Fprintf(bw, " %s %s %s", n.Name, refStr(n.Args[0], index), refStr(n.Args[1], index))
		case EXISTS, FORALL, FREE:
			fmt.Fprintf(bw, " [%s] %s", strings.Join(namesOf(n.Keys), ","), refStr(n.Args[0], index))
		case SUBST:
			subRefs := make([]string, len(n.Subs))
			for i, sv := range n.Subs {
				subRefs[i] = refStr(sv, index)
			}
			fmt.Fprintf(bw, " %s [%s] [%s]", refStr(n.Args[0], index), strings.Join(namesOf(n.Keys), ","), strings.Join(subRefs, ","))
		default:
			for _, a := range n.Args {
				fmt.Fprintf(bw, " %s", refStr(a, index))
			}
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "ROOT %s\n", refStr(root, index))
	return bw.Flush()
}

func namesOf(ks []VarName) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}

func refStr(l Lit, index map[Var]int) string {
	sign := ""
	if !l.IsPos() {
		sign = "-"
	}
	return fmt.Sprintf("%s$%d", sign, index[l.Var()])
}

// topoOrder returns every Var reachable from root in dependency order
// (children before parents), plus an index map from each Var to its
// position in that order, which WriteText and WriteBinary use as the
// node's serialized number.
func (s *Store) topoOrder(root Lit) ([]Var, map[Var]int) {
	visited := make(map[Var]bool)
	var order []Var
	var walk func(l Lit)
	walk = func(l Lit) {
		v := l.Var()
		if visited[v] {
			return
		}
		visited[v] = true
		n := s.nodes[v]
		for _, a := range n.Args {
			walk(a)
		}
		for _, a := range n.Subs {
			walk(a)
		}
		order = append(order, v)
	}
	walk(root)
	index := make(map[Var]int, len(order))
	for i, v := range order {
		index[v] = i
	}
	return order, index
}

// ReadText parses the textual form WriteText produces and returns the
// literal equivalent to the encoded root, interned into s. Nodes are
// re-interned (not merely replayed), so identical sub-definitions
// collapse to the same node whether or not they did in the writer's
// store.
func (s *Store) ReadText(r io.Reader) (Lit, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	defs := make(map[int]Lit)
	var root Lit
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ROOT ") {
			lit, err := s.parseRef(strings.TrimSpace(line[len("ROOT "):]), defs)
			if err != nil {
				return LitNull, err
			}
			root = lit
			continue
		}
		parts := strings.SplitN(line, ":=", 2)
		if len(parts) != 2 {
			return LitNull, fmt.Errorf("formula: malformed definition line %q", line)
		}
		id, err := parseDollar(strings.TrimSpace(parts[0]))
		if err != nil {
			return LitNull, err
		}
		lit, err := s.parseDef(strings.TrimSpace(parts[1]), defs)
		if err != nil {
			return LitNull, err
		}
		defs[id] = lit
	}
	if err := sc.Err(); err != nil {
		return LitNull, err
	}
	return root, nil
}

func parseDollar(tok string) (int, error) {
	if !strings.HasPrefix(tok, "$") {
		return 0, fmt.Errorf("formula: expected $n, got %q", tok)
	}
	return strconv.Atoi(tok[1:])
}

func (s *Store) parseRef(tok string, defs map[int]Lit) (Lit, error) {
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	}
	id, err := parseDollar(tok)
	if err != nil {
		return LitNull, err
	}
	lit, ok := defs[id]
	if !ok {
		return LitNull, fmt.Errorf("formula: undefined reference $%d", id)
	}
	if neg {
		lit = s.Negate(lit)
	}
	return lit, nil
}

func (s *Store) parseDef(body string, defs map[int]Lit) (Lit, error) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return LitNull, fmt.Errorf("formula: empty definition")
	}
	op := fields[0]
	rest := fields[1:]
	switch op {
	case "VAR":
		return s.Var(VarName(strings.Join(rest, " "))), nil
	case "TRUE":
		return s.True, nil
	case "FALSE":
		return s.False, nil
	case "ERROR":
		return s.Error, nil
	case "INCLUDE":
		return s.Include(VarName(strings.Join(rest, " "))), nil
	case "RESOLVE":
		if len(rest) != 3 {
			return LitNull, fmt.Errorf("formula: RESOLVE wants name+2 refs, got %v", rest)
		}
		left, err := s.parseRef(rest[1], defs)
		if err != nil {
			return LitNull, err
		}
		right, err := s.parseRef(rest[2], defs)
		if err != nil {
			return LitNull, err
		}
		return s.Resolve(VarName(rest[0]), left, right), nil
	case "AND", "OR", "LIST", "GSEQ":
		args := make([]Lit, len(rest))
		for i, r := range rest {
			lit, err := s.parseRef(r, defs)
			if err != nil {
				return LitNull, err
			}
			args[i] = lit
		}
		switch op {
		case "AND":
			return s.And(args...), nil
		case "OR":
			return s.Or(args...), nil
		case "LIST":
			return s.List(args...), nil
		default:
			return s.Gseq(args...), nil
		}
	case "XOR":
		if len(rest) != 2 {
			return LitNull, fmt.Errorf("formula: XOR wants 2 refs")
		}
		a, err := s.parseRef(rest[0], defs)
		if err != nil {
			return LitNull, err
		}
		b, err := s.parseRef(rest[1], defs)
		if err != nil {
			return LitNull, err
		}
		return s.Xor(a, b), nil
	case "ITE":
		if len(rest) != 3 {
			return LitNull, fmt.Errorf("formula: ITE wants 3 refs")
		}
		i, err := s.parseRef(rest[0], defs)
		if err != nil {
			return LitNull, err
		}
		t, err := s.parseRef(rest[1], defs)
		if err != nil {
			return LitNull, err
		}
		e, err := s.parseRef(rest[2], defs)
		if err != nil {
			return LitNull, err
		}
		return s.Ite(i, t, e), nil
	case "EXISTS", "FORALL", "FREE":
		names, ref, err := splitBracketAndRef(rest)
		if err != nil {
			return LitNull, err
		}
		body, err := s.parseRef(ref, defs)
		if err != nil {
			return LitNull, err
		}
		switch op {
		case "EXISTS":
			return s.Exists(names, body), nil
		case "FORALL":
			return s.Forall(names, body), nil
		default:
			return s.Free(names, body), nil
		}
	case "SUBST":
		if len(rest) != 3 {
			return LitNull, fmt.Errorf("formula: SUBST wants body [keys] [subs]")
		}
		body, err := s.parseRef(rest[0], defs)
		if err != nil {
			return LitNull, err
		}
		keys := splitBracket(rest[1])
		subTokens := splitBracket(rest[2])
		subs := make([]Lit, len(subTokens))
		for i, t := range subTokens {
			lit, err := s.parseRef(t, defs)
			if err != nil {
				return LitNull, err
			}
			subs[i] = lit
		}
		return s.Subst(body, toVarNames(keys), subs), nil
	default:
		return LitNull, fmt.Errorf("formula: unknown op %q", op)
	}
}

func splitBracket(tok string) []string {
	tok = strings.TrimPrefix(tok, "[")
	tok = strings.TrimSuffix(tok, "]")
	if tok == "" {
		return nil
	}
	return strings.Split(tok, ",")
}

func toVarNames(ss []string) []VarName {
	out := make([]VarName, len(ss))
	for i, x := range ss {
		out[i] = VarName(x)
	}
	return out
}

func splitBracketAndRef(rest []string) ([]VarName, string, error) {
	if len(rest) != 2 {
		return nil, "", fmt.Errorf("formula: quantifier wants [names] ref")
	}
	return toVarNames(splitBracket(rest[0])), rest[1], nil
}

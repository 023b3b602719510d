package formula

import (
	"fmt"
	"strings"
)

// Store is the append-only arena of interned formula nodes. It is the
// structural-hashing analogue of gini's logic.C: Store.nodes grows
// monotonically for the lifetime of a solver run, and And/Or/... never
// allocate a new node for an already-seen (op, args, name, keys)
// tuple.
type Store struct {
	nodes []Node
	cache map[string]Var

	// well-known singletons
	True  Lit
	False Lit
	Error Lit
}

// NewStore creates a Store with its constant singletons interned.
func NewStore() *Store {
	s := &Store{
		nodes: make([]Node, 1, 256), // nodes[0] is the invalid sentinel
		cache: make(map[string]Var, 256),
	}
	trueVar := s.newNode(Node{Op: TRUE})
	s.True = trueVar.Pos()
	s.False = trueVar.Neg()
	errVar := s.newNode(Node{Op: ERROR})
	s.Error = errVar.Pos()
	return s
}

// Len returns the number of interned nodes, including the sentinel.
func (s *Store) Len() int { return len(s.nodes) }

// NodeAt returns the Node for a Var. Panics on an out-of-range Var,
// which indicates a caller bug (a Lit minted by a different Store).
func (s *Store) NodeAt(v Var) *Node { return &s.nodes[v] }

// Node resolves the Node that a Lit's Var identifies.
func (s *Store) Node(l Lit) *Node { return &s.nodes[l.Var()] }

// IsTrue/IsFalse test a literal against the store's constant singletons.
func (s *Store) IsTrue(l Lit) bool  { return l == s.True }
func (s *Store) IsFalse(l Lit) bool { return l == s.False }
func (s *Store) IsConst(l Lit) bool { return l == s.True || l == s.False }

func (s *Store) newNode(n Node) Var {
	id := Var(len(s.nodes))
	s.nodes = append(s.nodes, n)
	return id
}

// key builds the structural-hash cache key for a candidate node. Per
// the solver's own re-architecture note, the intern cache is a hashmap
// from (op, arity, child-ids, optional name) to id; we use a compact
// string encoding of that tuple as the Go map key rather than a custom
// bucket-chained strash, since Go's built-in map already amortizes
// collisions for us.
func key(n Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", n.Op)
	for _, a := range n.Args {
		fmt.Fprintf(&b, "%d,", a)
	}
	b.WriteByte('|')
	b.WriteString(string(n.Name))
	b.WriteByte('|')
	for _, k := range n.Keys {
		b.WriteString(string(k))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, sv := range n.Subs {
		fmt.Fprintf(&b, "%d,", sv)
	}
	return b.String()
}

// intern returns the canonical Var for n, allocating a new node only
// if an identical one has never been interned.
func (s *Store) intern(n Node) Var {
	k := key(n)
	if v, ok := s.cache[k]; ok {
		return v
	}
	v := s.newNode(n)
	s.cache[k] = v
	return v
}

// Var constructs (or retrieves) the VAR node with the given name,
// returning its positive literal.
func (s *Store) Var(name VarName) Lit {
	v := s.intern(Node{Op: VAR, Name: name})
	return v.Pos()
}

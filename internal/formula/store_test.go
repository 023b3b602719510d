package formula

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIdentity(t *testing.T) {
	s := NewStore()
	a1 := s.Var("a")
	b1 := s.Var("b")
	a2 := s.Var("a")
	assert.Equal(t, a1, a2, "re-interning the same VAR name must return the same literal")

	n1 := s.And(a1, b1)
	n2 := s.And(b1, a1)
	assert.Equal(t, n1, n2, "AND must canonicalize argument order so permutations intern identically")
}

func TestNegateInvolution(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	assert.Equal(t, a, s.Negate(s.Negate(a)))

	free := s.Free([]VarName{"x"}, a)
	assert.Equal(t, free, s.Negate(s.Negate(free)))
}

func TestNegateThroughFree(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	free := s.Free([]VarName{"x"}, a)
	negFree := s.Negate(free)

	assert.True(t, negFree.IsPos(), "a FREE literal must always stay positive; negation pushes through the body")
	negBody := s.Node(negFree).Args[0]
	assert.Equal(t, a.Not(), negBody)
}

func TestAndOrCollapseSingleArg(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	assert.Equal(t, a, s.And(a))
	assert.Equal(t, a, s.Or(a))
}

func TestAndOrAbsorption(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	b := s.Var("b")

	assert.Equal(t, s.False, s.And(a, s.Negate(a)))
	assert.Equal(t, s.True, s.Or(a, s.Negate(a)))
	assert.Equal(t, s.False, s.And(a, s.False))
	assert.Equal(t, a, s.And(a, s.True))
	assert.Equal(t, s.True, s.Or(a, s.True))
	assert.Equal(t, a, s.Or(a, s.False))
	assert.Equal(t, s.And(a, b), s.And(a, b, a))
}

func TestXorCanonicalAndFold(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	b := s.Var("b")

	assert.Equal(t, s.False, s.Xor(a, a))
	assert.Equal(t, s.True, s.Xor(a, s.Negate(a)))

	xor1 := s.Xor(a, b)
	xor2 := s.Xor(b, a)
	assert.Equal(t, xor1, xor2, "XOR must be interned symmetrically")

	// Negating either side flips the result's polarity but shares the
	// same underlying node.
	flipped := s.Xor(s.Negate(a), b)
	assert.Equal(t, xor1.Var(), flipped.Var())
	assert.NotEqual(t, xor1.IsPos(), flipped.IsPos())
}

func TestImplAndEqRewriteAway(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	b := s.Var("b")

	impl := s.Impl(a, b)
	assert.Equal(t, s.Or(s.Negate(a), b), impl)
	assert.Equal(t, OR, s.Node(impl).Op, "IMPL must never be materialized as a stored node")

	eq := s.Eq(a, b)
	assert.Equal(t, s.Negate(s.Xor(a, b)), eq)
	assert.Equal(t, XOR, s.Node(eq).Op, "EQ must never be materialized as a stored node")
}

func TestIteFolding(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	b := s.Var("b")

	assert.Equal(t, b, s.Ite(s.True, b, s.Var("c")))
	assert.Equal(t, b, s.Ite(s.False, s.Var("c"), b))
	assert.Equal(t, a, s.Ite(a, s.True, s.False))
	assert.Equal(t, s.Negate(a), s.Ite(a, s.False, s.True))
	assert.Equal(t, b, s.Ite(a, b, b))
}

func TestSubstituteRespectsBinders(t *testing.T) {
	s := NewStore()
	x := s.Var("x")
	y := s.Var("y")
	body := s.And(x, y)
	bound := s.Exists([]VarName{"x"}, body)

	replaced := s.Substitute(bound, Subst{"x": s.Var("z"), "y": s.Var("w")})
	innerBody := s.Node(replaced).Args[0]
	assert.Equal(t, s.And(x, s.Var("w")), innerBody, "substitution must not reach under a binder that shadows the same name")
}

func TestFlattenAndOrChains(t *testing.T) {
	s := NewStore()
	a, b, c := s.Var("a"), s.Var("b"), s.Var("c")
	inner := s.And(a, b)
	outer := s.List(inner, s.And(inner, c))

	flat := s.FlattenAndOr(outer)
	n := s.Node(flat)
	require.Len(t, n.Args, 2)
	// inner has two referrers (both list slots), so it must not be
	// spliced into the outer AND's argument list.
	second := s.Node(n.Args[1])
	assert.Equal(t, AND, second.Op)
	assert.Contains(t, second.Args, inner)
}

func TestToNNFPushesNegationToLeaves(t *testing.T) {
	s := NewStore()
	a, b := s.Var("a"), s.Var("b")
	f := s.Negate(s.And(a, b))
	nnf := s.ToNNF(f)

	n := s.Node(nnf)
	assert.True(t, nnf.IsPos())
	assert.Equal(t, OR, n.Op)
	assert.ElementsMatch(t, []Lit{a.Not(), b.Not()}, n.Args)
}

func TestToNNFSwapsQuantifiers(t *testing.T) {
	s := NewStore()
	a := s.Var("a")
	f := s.Negate(s.Exists([]VarName{"a"}, a))
	nnf := s.ToNNF(f)

	n := s.Node(nnf)
	assert.Equal(t, FORALL, n.Op)
	assert.Equal(t, a.Not(), n.Args[0])
}

func TestNNFToAIGUsesOnlyAndAndLeafNegation(t *testing.T) {
	s := NewStore()
	a, b := s.Var("a"), s.Var("b")
	orNode := s.Or(a, b)
	aig := s.NNFToAIG(orNode)

	var walk func(l Lit)
	walk = func(l Lit) {
		n := s.Node(l)
		switch n.Op {
		case AND, VAR, TRUE, FALSE:
		default:
			t.Fatalf("unexpected op %s reachable after NNFToAIG lowering", n.Op)
		}
		for _, arg := range n.Args {
			walk(arg)
		}
	}
	walk(aig)
}

func TestSimpIteCollapsesSharedCondition(t *testing.T) {
	s := NewStore()
	i := s.Var("i")
	t1 := s.Var("t1")
	e1 := s.Var("e1")
	e2 := s.Var("e2")
	nested := s.Ite(i, t1, e1)
	outer := s.Ite(i, nested, e2)

	simplified := s.SimpIte(outer)
	n := s.Node(simplified)
	assert.Equal(t, ITE, n.Op)
	assert.Equal(t, t1, n.Args[1], "nested ITE sharing the outer condition must collapse to its then-branch")
}

func TestFindItesDedupesAndOrdersPostorder(t *testing.T) {
	s := NewStore()
	i := s.Var("i")
	a := s.Var("a")
	b := s.Var("b")
	inner := s.Ite(i, a, b)
	outer := s.And(inner, inner)

	ites := s.FindItes(outer)
	require.Len(t, ites, 1)
	assert.Equal(t, inner.Var().Pos(), ites[0])
}

func TestTextRoundTrip(t *testing.T) {
	s := NewStore()
	a, b, c := s.Var("a"), s.Var("b"), s.Var("c")
	shared := s.And(a, b)
	root := s.Or(shared, s.Negate(s.Ite(c, shared, a)))

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf, root))

	s2 := NewStore()
	got, err := s2.ReadText(&buf)
	require.NoError(t, err)

	var buf2 bytes.Buffer
	require.NoError(t, s2.WriteText(&buf2, got))

	var buf3 bytes.Buffer
	require.NoError(t, s.WriteText(&buf3, root))
	assert.Equal(t, buf3.String(), buf2.String(), "round-tripping through text must reproduce an isomorphic node graph")
}

func TestTextRoundTripQuantifiersAndSubst(t *testing.T) {
	s := NewStore()
	x, y := s.Var("x"), s.Var("y")
	body := s.Exists([]VarName{"x"}, s.Forall([]VarName{"y"}, s.Xor(x, y)))
	root := s.Subst(body, []VarName{"y"}, []Lit{s.True})

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf, root))

	s2 := NewStore()
	got, err := s2.ReadText(&buf)
	require.NoError(t, err)

	var out1, out2 bytes.Buffer
	require.NoError(t, s.WriteText(&out1, root))
	require.NoError(t, s2.WriteText(&out2, got))
	assert.Equal(t, out1.String(), out2.String())
}

func TestBinaryRoundTrip(t *testing.T) {
	s := NewStore()
	a, b, c := s.Var("a"), s.Var("b"), s.Var("c")
	shared := s.And(a, b)
	root := s.Or(shared, s.Negate(s.Ite(c, shared, a)))

	var buf bytes.Buffer
	require.NoError(t, s.WriteBinary(&buf, root, "test formula", false))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(binaryHeader)))

	s2 := NewStore()
	got, err := s2.ReadBinary(&buf)
	require.NoError(t, err)

	var out1, out2 bytes.Buffer
	require.NoError(t, s.WriteText(&out1, root))
	require.NoError(t, s2.WriteText(&out2, got))
	assert.Equal(t, out1.String(), out2.String())
}

func TestBinaryStrippedOmitsNames(t *testing.T) {
	s := NewStore()
	a := s.Var("secret")
	root := s.Negate(a)

	var buf bytes.Buffer
	require.NoError(t, s.WriteBinary(&buf, root, "", true))
	assert.NotContains(t, buf.String(), "secret")
}

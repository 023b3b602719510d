package satexec

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-air/gini/z"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/ghostq/internal/formula"
)

// zl builds the z.Lit for a signed DIMACS integer, to keep expected
// clause literals in tests readable as plain signed ints.
func zl(n int) z.Lit { return z.Dimacs2Lit(n) }

func TestEncodeVarNodeHasNoClauses(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(a)
	require.NoError(t, err)

	assert.Empty(t, clauses, "a bare variable needs no defining clauses")
	assert.Equal(t, zl(int(a.Var())), outLit)
	assert.Equal(t, int(a.Var()), enc.Vars()["a"])
}

func TestEncodeTrueForcesUnitClause(t *testing.T) {
	fs := formula.NewStore()

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(fs.True)
	require.NoError(t, err)

	trueVar := int(fs.True.Var())
	assert.Equal(t, [][]z.Lit{{zl(trueVar)}}, clauses)
	assert.Equal(t, zl(trueVar), outLit)
}

func TestEncodeFalseIsTrueNegatedPolarity(t *testing.T) {
	fs := formula.NewStore()

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(fs.False)
	require.NoError(t, err)

	// False shares True's node (same Var, negative polarity), so the
	// unit clause forcing that var true is unchanged; only the
	// translated output literal flips sign.
	trueVar := int(fs.True.Var())
	assert.Equal(t, [][]z.Lit{{zl(trueVar)}}, clauses)
	assert.Equal(t, zl(-trueVar), outLit)
}

func TestEncodeAndGate(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	g := fs.And(a, b)

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(g)
	require.NoError(t, err)

	av, bv, gv := int(a.Var()), int(b.Var()), int(g.Var())
	assert.Equal(t, zl(gv), outLit)
	assert.ElementsMatch(t, [][]z.Lit{
		{zl(-gv), zl(av)},
		{zl(-gv), zl(bv)},
		{zl(gv), zl(-av), zl(-bv)},
	}, clauses)
}

func TestEncodeOrGate(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	g := fs.Or(a, b)

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(g)
	require.NoError(t, err)

	av, bv, gv := int(a.Var()), int(b.Var()), int(g.Var())
	assert.Equal(t, zl(gv), outLit)
	assert.ElementsMatch(t, [][]z.Lit{
		{zl(gv), zl(-av)},
		{zl(gv), zl(-bv)},
		{zl(-gv), zl(av), zl(bv)},
	}, clauses)
}

func TestEncodeXorGate(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	g := fs.Xor(a, b)
	require.True(t, g.IsPos(), "two already-positive operands fold to a positive XOR literal")

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(g)
	require.NoError(t, err)

	av, bv, gv := int(a.Var()), int(b.Var()), int(g.Var())
	assert.Equal(t, zl(gv), outLit)
	assert.ElementsMatch(t, [][]z.Lit{
		{zl(-gv), zl(-av), zl(-bv)},
		{zl(-gv), zl(av), zl(bv)},
		{zl(gv), zl(av), zl(-bv)},
		{zl(gv), zl(-av), zl(bv)},
	}, clauses)
}

func TestEncodeEqGateReusesXorClauses(t *testing.T) {
	// Eq(a,b) = Negate(Xor(a,b)): no EQ node is ever interned, so
	// encoding it must produce exactly the XOR clauses above with an
	// output literal of opposite polarity.
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	g := fs.Eq(a, b)
	require.False(t, g.IsPos(), "Eq negates the underlying XOR literal")

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(g)
	require.NoError(t, err)

	av, bv, gv := int(a.Var()), int(b.Var()), int(g.Var())
	assert.Equal(t, zl(-gv), outLit)
	assert.ElementsMatch(t, [][]z.Lit{
		{zl(-gv), zl(-av), zl(-bv)},
		{zl(-gv), zl(av), zl(bv)},
		{zl(gv), zl(av), zl(-bv)},
		{zl(gv), zl(-av), zl(bv)},
	}, clauses)
}

func TestEncodeIteGate(t *testing.T) {
	fs := formula.NewStore()
	i := fs.Var("i")
	th := fs.Var("t")
	el := fs.Var("e")
	g := fs.Ite(i, th, el)

	enc := NewEncoder(fs)
	clauses, outLit, err := enc.Encode(g)
	require.NoError(t, err)

	iv, tv, ev, gv := int(i.Var()), int(th.Var()), int(el.Var()), int(g.Var())
	assert.Equal(t, zl(gv), outLit)
	assert.ElementsMatch(t, [][]z.Lit{
		{zl(-gv), zl(-iv), zl(tv)},
		{zl(-gv), zl(iv), zl(ev)},
		{zl(gv), zl(-iv), zl(-tv)},
		{zl(gv), zl(iv), zl(-ev)},
	}, clauses)
}

func TestEncodeSharedSubformulaVisitedOnce(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	c := fs.Var("c")
	sub := fs.Or(a, b)
	g := fs.And(sub, c)

	enc := NewEncoder(fs)
	_, _, err := enc.Encode(sub)
	require.NoError(t, err)
	afterSub := len(enc.Clauses())
	assert.Equal(t, 3, afterSub, "the OR gate's 3 defining clauses")

	_, _, err = enc.Encode(g)
	require.NoError(t, err)
	assert.Len(t, enc.Clauses(), 6, "the AND gate adds exactly 3 more clauses; sub is not re-clausified")
}

func TestEncodeRejectsNonBooleanOperator(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	list := fs.List(a, b)

	enc := NewEncoder(fs)
	_, _, err := enc.Encode(list)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LIST")
}

func TestWriteDimacsFormatsHeaderAndClauses(t *testing.T) {
	clauses := [][]z.Lit{{zl(-5), zl(3)}, {zl(-5), zl(4)}, {zl(5), zl(-3), zl(-4)}}

	var buf bytes.Buffer
	require.NoError(t, WriteDimacs(&buf, clauses, 5))

	want := "p cnf 5 3\n-5 3 0\n-5 4 0\n5 -3 -4 0\n"
	assert.Equal(t, want, buf.String())
}

func TestParseResultUnsat(t *testing.T) {
	res, err := parseResult([]byte("UNSAT\n"), nil)
	require.NoError(t, err)
	assert.False(t, res.Satisfiable)
	assert.Empty(t, res.Assignment)
}

func TestParseResultSatFiltersUntrackedLiterals(t *testing.T) {
	vars := map[formula.VarName]int{"a": 3, "b": 4}
	// 99 is not a tracked variable (an internal Tseitin gate var) and
	// must be silently dropped, the way fmla.cpp's lit_to_fmla lookup
	// skips any literal with no entry.
	res, err := parseResult([]byte("SAT -3 4 99 0"), vars)
	require.NoError(t, err)
	assert.True(t, res.Satisfiable)
	assert.Equal(t, Assignment{"a": false, "b": true}, res.Assignment)
}

func TestParseResultRejectsUnknownFirstToken(t *testing.T) {
	_, err := parseResult([]byte("MAYBE 1 0"), nil)
	require.Error(t, err)
}

func TestParseResultRejectsEmptyOutput(t *testing.T) {
	_, err := parseResult(nil, nil)
	require.Error(t, err)
}

func TestRunInvokesConfiguredExecutableAndParsesSat(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")
	b := fs.Var("b")
	root := fs.Or(a, b)

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fakesolver.sh")
	script := "#!/bin/sh\nprintf 'SAT\\n3 0\\n' > \"$2\"\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o755))

	res, err := Run(context.Background(), scriptPath, fs, root)
	require.NoError(t, err)
	assert.True(t, res.Satisfiable)
	assert.Equal(t, Assignment{"a": true}, res.Assignment)
}

func TestRunParsesUnsat(t *testing.T) {
	fs := formula.NewStore()
	a := fs.Var("a")

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fakesolver.sh")
	script := "#!/bin/sh\nprintf 'UNSAT\\n' > \"$2\"\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o755))

	res, err := Run(context.Background(), scriptPath, fs, a)
	require.NoError(t, err)
	assert.False(t, res.Satisfiable)
}

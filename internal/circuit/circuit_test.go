package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds: prefix [E:{1,2}, A:{3}], gate 4 = AND(1,2,3), output = 4.
func fixture(t *testing.T) *Circuit {
	t.Helper()
	src := GateSourceFunc{
		BlocksFn: func() []QType { return []QType{QExists, QForall} },
		InputsFn: func() []RawInput {
			return []RawInput{
				{Var: 1, Block: 0},
				{Var: 2, Block: 0},
				{Var: 3, Block: 1},
			}
		},
		GatesFn: func() []RawGate {
			return []RawGate{
				{Var: 4, Op: GateAnd, Args: []Literal{GateVar(1).Pos(), GateVar(2).Pos(), GateVar(3).Pos()}},
			}
		},
		OutputFn: func() Literal { return GateVar(4).Pos() },
	}
	c, err := Build(src)
	require.NoError(t, err)
	return c
}

func TestBuildAssignsPrefixAndGates(t *testing.T) {
	c := fixture(t)
	assert.Equal(t, GateVar(3), c.LastInputVar)
	assert.Equal(t, GateVar(4), c.LastGateVar)
	assert.Equal(t, GateVar(4).Pos(), c.OutputGateLit)
	require.Len(t, c.Gates(), 1)
	assert.Equal(t, GateVar(4), c.Gates()[0].Out)
}

func TestOrGateNormalizedToAnd(t *testing.T) {
	src := GateSourceFunc{
		BlocksFn: func() []QType { return []QType{QExists} },
		InputsFn: func() []RawInput { return []RawInput{{Var: 1, Block: 0}, {Var: 2, Block: 0}} },
		GatesFn: func() []RawGate {
			return []RawGate{{Var: 3, Op: GateOr, Args: []Literal{GateVar(1).Pos(), GateVar(2).Pos()}}}
		},
		OutputFn: func() Literal { return GateVar(3).Pos() },
	}
	c, err := Build(src)
	require.NoError(t, err)
	g := c.Gate(3)
	require.NotNil(t, g)
	assert.Equal(t, []Literal{GateVar(1).Neg(), GateVar(2).Neg()}, g.Args, "OR must be stored as AND of negated inputs")
	assert.Equal(t, GateVar(3).Neg(), c.OutputGateLit,
		"Output must be flipped to compensate the De Morgan negation of gate 3's own Args")
}

// TestOrNormalizationPropagatesToLaterGateArgs covers spec.md §4.2's "An OR
// gate is normalized to ¬AND by negating inputs and the output": gate 4 (OR)
// is itself referenced, by its original positive polarity, from gate 5's
// Args. Build must translate that reference too, not just gate 4's own Args.
func TestOrNormalizationPropagatesToLaterGateArgs(t *testing.T) {
	src := GateSourceFunc{
		BlocksFn: func() []QType { return []QType{QExists} },
		InputsFn: func() []RawInput { return []RawInput{{Var: 1, Block: 0}, {Var: 2, Block: 0}, {Var: 3, Block: 0}} },
		GatesFn: func() []RawGate {
			return []RawGate{
				{Var: 4, Op: GateOr, Args: []Literal{GateVar(1).Pos(), GateVar(2).Pos()}},
				{Var: 5, Op: GateAnd, Args: []Literal{GateVar(4).Pos(), GateVar(3).Pos()}},
			}
		},
		OutputFn: func() Literal { return GateVar(5).Pos() },
	}
	c, err := Build(src)
	require.NoError(t, err)

	g4 := c.Gate(4)
	require.NotNil(t, g4)
	assert.Equal(t, []Literal{GateVar(1).Neg(), GateVar(2).Neg()}, g4.Args)

	g5 := c.Gate(5)
	require.NotNil(t, g5)
	assert.Equal(t, []Literal{GateVar(4).Neg(), GateVar(3).Pos()}, g5.Args,
		"gate 5's reference to gate 4 must be flipped to keep naming OR(1,2), not its stored ¬AND negation")

	assert.Equal(t, GateVar(5).Pos(), c.OutputGateLit, "gate 5 is an AND gate, so Output needs no translation")
}

func TestDeriveGhostsPlacesBothPlayers(t *testing.T) {
	c := fixture(t)
	eg := c.ExistGhostOf(4)
	ug := c.UnivGhostOf(4)
	require.NotZero(t, eg)
	require.NotZero(t, ug)
	assert.NotEqual(t, eg, ug)

	assert.True(t, c.IsGhost(eg))
	assert.True(t, c.IsGhost(ug))
	assert.False(t, c.IsGhost(1), "an input variable is never a ghost")

	ply, ok := c.GhostPlayerOf(eg)
	assert.True(t, ok)
	assert.Equal(t, Existential, ply)

	ply, ok = c.GhostPlayerOf(ug)
	assert.True(t, ok)
	assert.Equal(t, Universal, ply)
}

func TestGhostPlacementRespectsInnermostInputBlock(t *testing.T) {
	c := fixture(t)
	eg := c.ExistGhostOf(4)
	ug := c.UnivGhostOf(4)
	// Gate 4's innermost input (var 3) lives in the universal block; the
	// nearest enclosing existential block at or before it is the real E
	// block (index 0), and the nearest enclosing universal block is the
	// real A block itself (index 1).
	egBlock := c.Prefix.BlockOf(eg)
	ugBlock := c.Prefix.BlockOf(ug)
	require.NotNil(t, egBlock)
	require.NotNil(t, ugBlock)
	assert.Equal(t, QExists, egBlock.Type)
	assert.Equal(t, QForall, ugBlock.Type)
	assert.Equal(t, c.Prefix.Blocks[1], ugBlock, "universal ghost should land in the real A block, not a sentinel")
}

func TestOriginalOfAndGhostedRoundTrip(t *testing.T) {
	c := fixture(t)
	eg := c.ExistGhostOf(4)

	ghostLit := eg.Pos()
	assert.Equal(t, GateVar(4).Pos(), c.OriginalOf(ghostLit))
	assert.Equal(t, GateVar(4).Neg(), c.OriginalOf(ghostLit.Not()))

	reghosted := c.Ghosted(GateVar(4).Pos(), Existential)
	assert.Equal(t, ghostLit, reghosted)
}

func TestGhostedOrPassPassesThroughInputs(t *testing.T) {
	c := fixture(t)
	assert.Equal(t, GateVar(1).Pos(), c.GhostedOrPass(GateVar(1).Pos(), Existential))
	assert.Equal(t, c.Ghosted(GateVar(4).Pos(), Universal), c.GhostedOrPass(GateVar(4).Pos(), Universal))
}

func TestPrecedesOrdersByBlockIndex(t *testing.T) {
	c := fixture(t)
	assert.True(t, c.Prefix.Precedes(1, 3), "var 1 (block 0) must precede var 3 (block 1)")
	assert.False(t, c.Prefix.Precedes(3, 1))
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/ghostq/internal/cegar"
	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/sequent"
	"github.com/gitrdm/ghostq/internal/trail"
)

// fixture builds: prefix [E:{1,2}, A:{3}], gate 4 = AND(1,2,3), output = 4.
// Build derives existGhost=5 (placed in block 0) and univGhost=6 (placed
// in block 1) as a side effect, the same as internal/cegar's fixture.
func fixture(t *testing.T) *circuit.Circuit {
	t.Helper()
	src := circuit.GateSourceFunc{
		BlocksFn: func() []circuit.QType { return []circuit.QType{circuit.QExists, circuit.QForall} },
		InputsFn: func() []circuit.RawInput {
			return []circuit.RawInput{
				{Var: 1, Block: 0},
				{Var: 2, Block: 0},
				{Var: 3, Block: 1},
			}
		},
		GatesFn: func() []circuit.RawGate {
			return []circuit.RawGate{
				{Var: 4, Op: circuit.GateAnd, Args: []circuit.Literal{
					circuit.GateVar(1).Pos(), circuit.GateVar(2).Pos(), circuit.GateVar(3).Pos(),
				}},
			}
		},
		OutputFn: func() circuit.Literal { return circuit.GateVar(4).Pos() },
	}
	c, err := circuit.Build(src)
	require.NoError(t, err)
	return c
}

func TestPrimeEnqueuesInitialForcedLiteralsFromUnitSeeds(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	sequent.LoadOriginal(st, c, fs)
	tr := trail.New(c.Prefix, st)
	d := NewDriver(tr, st, c.Prefix, c, fs, nil, nil, 1)

	d.prime()

	require.True(t, tr.IsAssigned(circuit.GateVar(6).Pos()), "the universal-loses seed sequent must force var 6 false")
	assert.False(t, tr.IsSatisfied(circuit.GateVar(6).Pos()))

	require.True(t, tr.IsAssigned(circuit.GateVar(5).Pos()), "the existential-loses seed sequent must force var 5 true")
	assert.True(t, tr.IsSatisfied(circuit.GateVar(5).Pos()))
}

func TestDecidePrefersInjectedPreferredLiteral(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	tr := trail.New(c.Prefix, st)
	d := NewDriver(tr, st, c.Prefix, c, fs, nil, nil, 1)
	d.RandomFraction = 0

	d.SetPreferred(circuit.GateVar(2).Neg())
	lit, ok := d.decide()
	require.True(t, ok)
	assert.Equal(t, circuit.GateVar(2).Neg(), lit)
	assert.Nil(t, d.preferred, "a consumed preferred literal must be cleared")
}

func TestDecidePicksHighestActivityInOutermostBlock(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	tr := trail.New(c.Prefix, st)
	d := NewDriver(tr, st, c.Prefix, c, fs, nil, nil, 1)
	d.RandomFraction = 0

	tr.BumpActivity(2, 5.0)
	tr.BumpActivity(1, 1.0)

	lit, ok := d.decide()
	require.True(t, ok)
	assert.Equal(t, circuit.GateVar(2).Pos(), lit, "var 2 has higher activity and defaults to positive polarity")
}

func TestDecidableRecognizesInputsAndCegarInputsOnly(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	e := cegar.NewEngine(c, st, fs, 10)
	d := NewDriver(trail.New(c.Prefix, st), st, c.Prefix, c, fs, e, nil, 1)

	hit := map[circuit.GateVar]bool{1: true, 2: true}
	out := e.Restrict(circuit.GateVar(4).Pos(), hit, c.Prefix.Blocks[0])
	require.False(t, circuit.IsConst(out))

	assert.True(t, d.decidable(out.Var()), "a freshly synthesized CEGAR input must be decidable")
	assert.True(t, d.decidable(circuit.GateVar(1)), "an original input variable must be decidable")
	assert.False(t, d.decidable(circuit.GateVar(4)), "a gate variable is never decided directly")
}

func TestLubySequenceMatchesKnownTerms(t *testing.T) {
	want := []float64{1, 1, 2, 1, 1, 2, 4}
	for i, w := range want {
		assert.Equal(t, w, luby(2, i), "luby(2, %d)", i)
	}
}

func TestShouldRestartUsesLubySchedule(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	d := NewDriver(trail.New(c.Prefix, st), st, c.Prefix, c, fs, nil, nil, 1)
	d.restartBase = 10

	d.conflictsSinceRestart = 9
	assert.False(t, d.shouldRestart())
	d.conflictsSinceRestart = 10
	assert.True(t, d.shouldRestart())
}

func TestRestartRotatesPolarityPathAndResetsCounters(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	d := NewDriver(trail.New(c.Prefix, st), st, c.Prefix, c, fs, nil, nil, 1)
	d.conflictsSinceRestart = 5

	d.restart()
	assert.Equal(t, 0, d.conflictsSinceRestart)
	assert.Equal(t, 1, d.restartCount)
	assert.Equal(t, 1, d.polarityPathIdx)
	assert.False(t, d.polarityRandomize)

	d.restart()
	assert.Equal(t, 2, d.polarityPathIdx)

	d.restart()
	assert.Equal(t, 0, d.polarityPathIdx)
	assert.True(t, d.polarityRandomize, "the phase-saved path randomizes polarity on return")
}

func TestMaybeDeleteLearnedRemovesBelowMedianActivity(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	d := NewDriver(trail.New(c.Prefix, st), st, c.Prefix, c, fs, nil, nil, 1)
	d.deletionBudget = 3
	d.deletionGrowth = 2.0

	activities := []float64{10, 20, 30, 40, 50, 60}
	for _, a := range activities {
		s := st.Add([]circuit.Literal{circuit.GateVar(1).Pos()}, nil, fs.True, true)
		s.Activity = a
	}
	require.Len(t, st.All(), 6)

	d.maybeDeleteLearned()

	remaining := st.All()
	assert.Len(t, remaining, 3, "the three sequents below the median activity (40) must be deleted")
	for _, s := range remaining {
		assert.GreaterOrEqual(t, s.Activity, 40.0)
	}
	assert.Equal(t, 6, d.deletionBudget, "the deletion budget must grow after a deletion pass")
}

func TestDecayActivitiesRescalesVariableActivity(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	tr := trail.New(c.Prefix, st)
	d := NewDriver(tr, st, c.Prefix, c, fs, nil, nil, 1)
	d.VarDecay = 0.5
	d.VarRescaleAt = 10

	tr.BumpActivity(1, 100.0)
	d.decayActivities()

	assert.Equal(t, 5.0, tr.Activity(1), "100 * 0.5 = 50 exceeds the rescale threshold of 10, so it is divided by 10")
}

func TestDecayActivitiesRescalesSequentActivity(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	d := NewDriver(trail.New(c.Prefix, st), st, c.Prefix, c, fs, nil, nil, 1)
	d.SeqDecay = 0.5
	d.SeqRescaleAt = 10

	s := st.Add([]circuit.Literal{circuit.GateVar(1).Pos()}, nil, fs.True, true)
	s.Activity = 100.0

	d.decayActivities()
	assert.Equal(t, 5.0, s.Activity)
}

func TestCurrentDecisionBlockTracksMostRecentDecision(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	tr := trail.New(c.Prefix, st)
	d := NewDriver(tr, st, c.Prefix, c, fs, nil, nil, 1)

	tr.Decide(circuit.GateVar(1).Pos())
	tr.Decide(circuit.GateVar(3).Pos())
	assert.Equal(t, c.Prefix.Blocks[1], d.currentDecisionBlock())

	tr.Backtrack(false)
	assert.Equal(t, c.Prefix.Blocks[0], d.currentDecisionBlock())
}

func TestRunCegarDerivesWinnerFromEliminationBlockType(t *testing.T) {
	c := fixture(t)
	fs := formula.NewStore()
	st := sequent.NewStore(c.Prefix)
	tr := trail.New(c.Prefix, st)
	e := cegar.NewEngine(c, st, fs, 10)
	d := NewDriver(tr, st, c.Prefix, c, fs, e, nil, 1)

	conflict := st.Add(
		[]circuit.Literal{circuit.GateVar(1).Pos()},
		[]circuit.Literal{circuit.GateVar(3).Pos()},
		fs.True, true,
	)
	before := len(st.All())
	d.runCegar(conflict, c.Prefix.Blocks[0])
	assert.Greater(t, len(st.All()), before, "CEGAR should install a learned sequent eliminating the A-block (Universal) reserved watch")
}

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/gqfile"
)

func TestFlattenToFormulaBuildsAndOrTree(t *testing.T) {
	text := `
CktQBF
OutputGateLit 6
<q gate=6>
e 2 4
</q>
6 = or(2, 4)
`
	src, err := gqfile.Parse(strings.NewReader(text))
	require.NoError(t, err)

	fs := formula.NewStore()
	root, err := flattenToFormula(src, fs)
	require.NoError(t, err)

	node := fs.Node(root)
	assert.Equal(t, formula.OR, node.Op)
	assert.Len(t, node.Args, 2)
}

func TestFlattenToFormulaAppliesNegation(t *testing.T) {
	text := `
CktQBF
OutputGateLit 6
<q gate=6>
a 2
</q>
<q gate=6>
e 4
</q>
6 = and(-2, 4)
`
	src, err := gqfile.Parse(strings.NewReader(text))
	require.NoError(t, err)

	fs := formula.NewStore()
	root, err := flattenToFormula(src, fs)
	require.NoError(t, err)

	node := fs.Node(root)
	require.Equal(t, formula.AND, node.Op)
	require.Len(t, node.Args, 2)
	assert.False(t, node.Args[0].IsPos(), "the -2 argument must be negated")
	assert.True(t, node.Args[1].IsPos())
}

func TestNewRootCmdRegistersSpecFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"seed", "timeout", "free", "cegar", "cegar-budget", "strat", "trace", "sat-exe", "debug"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %q must be registered", name)
	}
}

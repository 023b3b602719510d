package sequent

import (
	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
)

// LoadOriginal derives and adds every original sequent for c: for each
// AND gate and each player's ghost-ply copy, the gate-definition
// sequents of spec §4.2, plus the two top-level seed sequents at the
// output gate. fs is the formula store the strategy/winner formulas F
// are interned into.
//
// Winner-constant convention (ghostq-cleansed.cpp:4303-4305's
// NewLrnGs_Top calls ghost the output literal for the universal ply
// with winner=1 and the negated output literal for the existential ply
// with winner=0): a gate-definition sequent's own trigger entailing a
// contradiction carries no answer-forcing content of its own, so its F
// is fs.True; only the two seed sequents at the output gate carry the
// actual true/false answer.
func LoadOriginal(st *Store, c *circuit.Circuit, fs *formula.Store) {
	for _, g := range c.Gates() {
		for _, ply := range []circuit.Player{circuit.Existential, circuit.Universal} {
			loadGateSequents(st, c, fs, g, ply)
		}
	}
	loadSeedSequents(st, c, fs)
}

func loadGateSequents(st *Store, c *circuit.Circuit, fs *formula.Store, g *circuit.GateDef, ply circuit.Player) {
	gGhost := c.Ghosted(g.Out.Pos(), ply)
	argGhosts := make([]circuit.Literal, len(g.Args))
	for i, a := range g.Args {
		argGhosts[i] = c.GhostedOrPass(a, ply)
	}

	lnow := append([]circuit.Literal{gGhost.Not()}, argGhosts...)
	st.Add(lnow, nil, fs.True, false)

	for _, ag := range argGhosts {
		st.Add([]circuit.Literal{gGhost, ag.Not()}, nil, fs.True, false)
	}
}

// loadSeedSequents emits the two top-level sequents stating that
// losing for each player at the output gate forces the opposite
// constant answer.
func loadSeedSequents(st *Store, c *circuit.Circuit, fs *formula.Store) {
	univLosesAtOutput := c.Ghosted(c.OutputGateLit, circuit.Universal)
	st.Add([]circuit.Literal{univLosesAtOutput}, nil, fs.True, false)

	existLosesAtNegOutput := c.Ghosted(c.OutputGateLit.Not(), circuit.Existential)
	st.Add([]circuit.Literal{existLosesAtNegOutput}, nil, fs.False, false)
}

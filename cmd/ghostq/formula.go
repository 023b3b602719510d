package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/gqfile"
)

// flattenToFormula rebuilds src's and/or gate list as a formula.Store
// DAG, purely to feed the "-sat-exe" auxiliary operation (spec.md
// §6.2): the external SAT solver protocol operates on a Tseitin
// encoding of a plain boolean formula, not the ghosted/quantified
// circuit model the core search runs against, so every input variable
// here is treated as free regardless of its quantifier block in src.
func flattenToFormula(src *gqfile.Source, fs *formula.Store) (formula.Lit, error) {
	lits := make(map[circuit.GateVar]formula.Lit)

	for _, in := range src.Inputs() {
		name := src.Names[in.Var]
		if name == "" {
			name = fmt.Sprintf("v%d", in.Var)
		}
		lits[in.Var] = fs.Var(formula.VarName(name))
	}

	translate := func(l circuit.Literal) (formula.Lit, error) {
		fl, ok := lits[l.Var()]
		if !ok {
			return 0, errors.Errorf("flattenToFormula: literal %v references an undefined variable", l)
		}
		if !l.IsPos() {
			return fs.Negate(fl), nil
		}
		return fl, nil
	}

	for _, g := range src.Gates() {
		args := make([]formula.Lit, len(g.Args))
		for i, a := range g.Args {
			fl, err := translate(a)
			if err != nil {
				return 0, err
			}
			args[i] = fl
		}
		switch g.Op {
		case circuit.GateAnd:
			lits[g.Var] = fs.And(args...)
		case circuit.GateOr:
			lits[g.Var] = fs.Or(args...)
		default:
			return 0, errors.Errorf("flattenToFormula: unsupported gate operator for var %v", g.Var)
		}
	}

	return translate(src.Output())
}

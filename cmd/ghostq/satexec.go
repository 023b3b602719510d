package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/gqfile"
	"github.com/gitrdm/ghostq/internal/satexec"
)

// runAuxiliarySat implements the "-sat-exe" auxiliary operation
// (spec.md §6.2): flatten the input circuit into a plain propositional
// formula, Tseitin-encode it, and hand it to an external SAT-solver
// executable. Always reported as a warning on failure, never fatal to
// the main solve it runs alongside.
func runAuxiliarySat(ctx context.Context, exe string, src *gqfile.Source, log *logrus.Entry) error {
	fs := formula.NewStore()
	root, err := flattenToFormula(src, fs)
	if err != nil {
		return errors.Wrap(err, "ghostq: flattening circuit for sat-exe")
	}

	res, err := satexec.Run(ctx, exe, fs, root)
	if err != nil {
		return errors.Wrap(err, "ghostq: running external sat solver")
	}

	if !res.Satisfiable {
		fmt.Println("sat-exe: UNSAT")
		return nil
	}

	names := make([]string, 0, len(res.Assignment))
	for name := range res.Assignment {
		names = append(names, string(name))
	}
	sort.Strings(names)

	fmt.Println("sat-exe: SAT")
	for _, name := range names {
		fmt.Printf("  %s = %v\n", name, res.Assignment[formula.VarName(name)])
	}
	return nil
}

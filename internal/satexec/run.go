package satexec

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/gitrdm/ghostq/internal/formula"
)

// Assignment maps a formula variable name to its value in a satisfying
// model returned by the external solver. Only names that appear as
// VAR nodes in the encoded formula are included — internal Tseitin
// gate variables are never surfaced, the same filtering
// fmla.cpp's get_sat_asgn does via its lit_to_fmla map.
type Assignment map[formula.VarName]bool

// Result is the outcome of one external SAT-solver invocation.
type Result struct {
	Satisfiable bool
	Assignment  Assignment
}

// Run Tseitin-encodes root, writes it to a temporary DIMACS file,
// invokes exe as "<exe> <dimacs> <out>" (spec §6.2), and parses the
// result file exe is expected to have written. It is always reported
// to the caller as an error on failure, never treated as fatal to a
// running solve — this operation sits outside the solving critical
// path entirely.
func Run(ctx context.Context, exe string, fs *formula.Store, root formula.Lit) (*Result, error) {
	enc := NewEncoder(fs)
	clauses, _, err := enc.Encode(root)
	if err != nil {
		return nil, errors.Wrap(err, "satexec: encoding formula")
	}

	dimacsFile, err := os.CreateTemp("", "ghostq-dimacs-*.cnf")
	if err != nil {
		return nil, errors.Wrap(err, "satexec: creating dimacs temp file")
	}
	dimacsPath := dimacsFile.Name()
	defer os.Remove(dimacsPath)

	writeErr := WriteDimacs(dimacsFile, clauses, enc.MaxVar())
	closeErr := dimacsFile.Close()
	if writeErr != nil {
		return nil, errors.Wrap(writeErr, "satexec: writing dimacs file")
	}
	if closeErr != nil {
		return nil, errors.Wrap(closeErr, "satexec: closing dimacs file")
	}

	outFile, err := os.CreateTemp("", "ghostq-satout-*.txt")
	if err != nil {
		return nil, errors.Wrap(err, "satexec: creating output temp file")
	}
	outPath := outFile.Name()
	if err := outFile.Close(); err != nil {
		return nil, errors.Wrap(err, "satexec: closing output temp file")
	}
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, exe, dimacsPath, outPath)
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "satexec: running external solver %q", exe)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.Wrap(err, "satexec: reading solver output")
	}
	return parseResult(out, enc.Vars())
}

// parseResult implements spec §6.2's output-file protocol: the first
// whitespace-delimited token is SAT or UNSAT, followed (when SAT) by a
// space-separated list of signed integer literals terminated by a
// literal 0.
func parseResult(data []byte, vars map[formula.VarName]int) (*Result, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, errors.New("satexec: empty solver output")
	}

	switch fields[0] {
	case "UNSAT":
		return &Result{Satisfiable: false}, nil
	case "SAT":
	default:
		return nil, errors.Errorf("satexec: solver output starts with %q, want SAT or UNSAT", fields[0])
	}

	byVar := make(map[int]bool, len(vars))
	for _, tok := range fields[1:] {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.Wrapf(err, "satexec: parsing literal %q", tok)
		}
		if n == 0 {
			break
		}
		lit := z.Dimacs2Lit(n)
		byVar[int(lit.Var())] = lit.IsPos()
	}

	asgn := make(Assignment, len(vars))
	for name, id := range vars {
		if val, ok := byVar[id]; ok {
			asgn[name] = val
		}
	}
	return &Result{Satisfiable: true, Assignment: asgn}, nil
}

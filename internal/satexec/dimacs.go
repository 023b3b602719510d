package satexec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

// WriteDimacs writes clauses in DIMACS CNF text format: a header line
// "p cnf <maxVar> <numClauses>" followed by one line per clause, each
// a space-separated list of signed literals (via z.Lit.Dimacs)
// terminated by a literal 0 — the same layout ghostq-pg-2021's
// DimacsWriter::write emits.
func WriteDimacs(w io.Writer, clauses [][]z.Lit, maxVar int) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", maxVar, len(clauses)); err != nil {
		return errors.Wrap(err, "satexec: writing dimacs header")
	}
	for _, clause := range clauses {
		for _, lit := range clause {
			if _, err := bw.WriteString(strconv.Itoa(lit.Dimacs())); err != nil {
				return errors.Wrap(err, "satexec: writing dimacs literal")
			}
			if err := bw.WriteByte(' '); err != nil {
				return errors.Wrap(err, "satexec: writing dimacs literal")
			}
		}
		if _, err := bw.WriteString("0\n"); err != nil {
			return errors.Wrap(err, "satexec: writing dimacs clause terminator")
		}
	}
	return bw.Flush()
}

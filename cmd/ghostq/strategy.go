package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/gitrdm/ghostq/internal/formula"
	"github.com/gitrdm/ghostq/internal/qbf"
)

// writeStrategy dumps a free-variable answer's strategy map as one
// "name = OP[arg arg ...]" line per entry (the node's Args printed with
// %v). This is a minimal diagnostic
// listing, not spec.md §6's full strategy-listing writer (an
// out-of-core collaborator this repo does not implement) — it exists
// so a -strat path never silently discards a free answer.
func writeStrategy(path string, strat qbf.Strategy) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "ghostq: creating strategy file")
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	names := make([]string, 0, len(strat))
	for name := range strat {
		names = append(names, string(name))
	}
	sort.Strings(names)

	for _, name := range names {
		node := strat[formula.VarName(name)]
		fmt.Fprintf(bw, "%s = %s%v\n", name, node.Op, node.Args)
	}
	return bw.Flush()
}

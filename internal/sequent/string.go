package sequent

import (
	"fmt"
	"strings"

	"github.com/gitrdm/ghostq/internal/circuit"
	"github.com/gitrdm/ghostq/internal/formula"
)

// String renders a one-line debug dump of s, grounded on
// ghostq-cleansed.cpp's GsT::DumpRaw/DumpLitsEnc: id, original/learned
// flag, winner letter, in-use/activity, and the Lnow/Lfut literal lists.
// String has no formula store to test F against, so its winner letter
// is always '-'.
// Used by the optional proof-log writer and by trace output.
func (s *Sequent) String() string {
	return s.stringWithStore(nil)
}

// StringWithStore is String, but uses fs to print the winner letter: E
// for a constant-true F, A for a constant-false F, '-' otherwise. F
// itself is not rendered.
func (s *Sequent) StringWithStore(fs *formula.Store) string {
	return s.stringWithStore(fs)
}

func (s *Sequent) stringWithStore(fs *formula.Store) string {
	kind := "original"
	if s.Learned {
		kind = "learned"
	}
	winner := byte('-')
	if fs != nil {
		if fs.IsTrue(s.F) {
			winner = 'E'
		} else if fs.IsFalse(s.F) {
			winner = 'A'
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "seq[%d] (%s) winner='%c' inuse=%d activity=%.4g\n", s.ID, kind, winner, s.InUse, s.Activity)
	fmt.Fprintf(&b, "  Lnow: %s\n", dumpLits(s.Lnow))
	fmt.Fprintf(&b, "  Lfut: %s\n", dumpLits(s.Lfut))
	fmt.Fprintf(&b, "  watch: [%d, %d], res=%d", s.reqWatch[0], s.reqWatch[1], s.resWatch)
	return b.String()
}

func dumpLits(lits []circuit.Literal) string {
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",  ")
}

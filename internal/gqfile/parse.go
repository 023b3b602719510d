// Package gqfile implements a minimal reader for the GhostQ circuit
// text format (spec.md §6(a)): the solver's native input format,
// covering exactly the header fields, quantifier blocks, and and/or
// gate definitions that internal/circuit.Build itself consumes.
// QCIR-G14, the formula s-expression languages, and the richer
// forall/exists/free/list gate operators spec.md documents for the
// GhostQ format remain true external-collaborator stubs (spec.md §1
// scopes every textual parser out of core) — this package exists only
// because cmd/ghostq needs some way to turn a file on disk into a
// circuit.GateSource, and the native format is the narrowest one that
// lets it do that honestly.
package gqfile

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/gitrdm/ghostq/internal/circuit"
)

// Source is a parsed GhostQ circuit file, implementing
// circuit.GateSource directly so it can be handed to circuit.Build
// (and, through it, qbf.New) without any adapter.
type Source struct {
	Blocks []circuit.QType
	RawIns []circuit.RawInput
	RawGts []circuit.RawGate
	Out    circuit.Literal

	// Names carries every "VarName K : name" line, for a CLI's own
	// diagnostics — circuit.Build and everything downstream of it
	// addresses variables purely by number and never consults this.
	Names map[circuit.GateVar]string
}

func (s *Source) QuantifierBlocks() []circuit.QType { return s.Blocks }
func (s *Source) Inputs() []circuit.RawInput        { return s.RawIns }
func (s *Source) Gates() []circuit.RawGate          { return s.RawGts }
func (s *Source) Output() circuit.Literal           { return s.Out }

// Parse reads the GhostQ circuit text format from r.
func Parse(r io.Reader) (*Source, error) {
	sc := bufio.NewScanner(r)
	src := &Source{Names: make(map[circuit.GateVar]string)}

	sawHeader := false
	inBlock := false  // between <q ...> and </q>
	curBlock := -1    // index into src.Blocks once its type is known

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case line == "CktQBF":
			sawHeader = true

		case strings.HasPrefix(line, "LastInputVar "),
			strings.HasPrefix(line, "LastGateVar "),
			strings.HasPrefix(line, "PreprocTimeMilli "):
			// advisory fields circuit.Build re-derives from the gates
			// and inputs it is actually handed; not recorded.

		case strings.HasPrefix(line, "OutputGateLit "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "OutputGateLit ")))
			if err != nil {
				return nil, errors.Wrapf(err, "gqfile: parsing %q", line)
			}
			src.Out = litFromSigned(n)

		case strings.HasPrefix(line, "VarName "):
			k, name, err := parseVarName(line)
			if err != nil {
				return nil, err
			}
			src.Names[k] = name

		case strings.HasPrefix(line, "<q"):
			if inBlock {
				return nil, errors.Errorf("gqfile: nested <q> blocks are not supported: %q", line)
			}
			inBlock = true
			curBlock = -1

		case line == "</q>":
			if !inBlock {
				return nil, errors.New("gqfile: </q> with no matching <q>")
			}
			if curBlock == -1 {
				return nil, errors.New("gqfile: <q>...</q> block had no quantifier line")
			}
			inBlock = false
			curBlock = -1

		case inBlock && isQuantifierLine(line):
			qt, vars, err := parseQuantifierLine(line)
			if err != nil {
				return nil, err
			}
			if curBlock == -1 {
				src.Blocks = append(src.Blocks, qt)
				curBlock = len(src.Blocks) - 1
			} else if src.Blocks[curBlock] != qt {
				return nil, errors.Errorf("gqfile: block mixes quantifier types: %q", line)
			}
			for _, v := range vars {
				src.RawIns = append(src.RawIns, circuit.RawInput{Var: v, Block: curBlock})
			}

		case strings.Contains(line, "="):
			g, err := parseGateLine(line)
			if err != nil {
				return nil, err
			}
			src.RawGts = append(src.RawGts, g)

		default:
			return nil, errors.Errorf("gqfile: unrecognized line %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "gqfile: scanning input")
	}
	if !sawHeader {
		return nil, errors.New("gqfile: missing CktQBF header")
	}
	return src, nil
}

func litFromSigned(n int) circuit.Literal {
	if n < 0 {
		return circuit.GateVar(-n).Neg()
	}
	return circuit.GateVar(n).Pos()
}

func parseVarName(line string) (circuit.GateVar, string, error) {
	rest := strings.TrimPrefix(line, "VarName ")
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return 0, "", errors.Errorf("gqfile: malformed VarName line %q", line)
	}
	k, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, "", errors.Wrapf(err, "gqfile: parsing VarName index in %q", line)
	}
	return circuit.GateVar(k), strings.TrimSpace(parts[1]), nil
}

func isQuantifierLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "a", "e", "f":
		return true
	default:
		return false
	}
}

func parseQuantifierLine(line string) (circuit.QType, []circuit.GateVar, error) {
	fields := strings.Fields(line)
	var qt circuit.QType
	switch fields[0] {
	case "a":
		qt = circuit.QForall
	case "e":
		qt = circuit.QExists
	case "f":
		qt = circuit.QFreeBlock
	default:
		return 0, nil, errors.Errorf("gqfile: unknown quantifier marker %q", fields[0])
	}

	vars := make([]circuit.GateVar, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "gqfile: parsing quantifier variable %q", f)
		}
		vars = append(vars, circuit.GateVar(n))
	}
	return qt, vars, nil
}

// parseGateLine parses "G = op(arg1, arg2, …)". Only and/or are
// accepted: circuit.GateOp has no representation for the
// forall/exists/free/list sub-gate operators spec.md's format also
// allows, so a file using them is rejected rather than silently
// misread.
func parseGateLine(line string) (circuit.RawGate, error) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return circuit.RawGate{}, errors.Errorf("gqfile: malformed gate definition %q", line)
	}
	out, err := strconv.Atoi(strings.TrimSpace(line[:eq]))
	if err != nil {
		return circuit.RawGate{}, errors.Wrapf(err, "gqfile: parsing gate output var in %q", line)
	}

	rhs := strings.TrimSpace(line[eq+1:])
	open := strings.Index(rhs, "(")
	closeIdx := strings.LastIndex(rhs, ")")
	if open < 0 || closeIdx < open {
		return circuit.RawGate{}, errors.Errorf("gqfile: malformed gate definition %q", line)
	}

	var op circuit.GateOp
	switch strings.TrimSpace(rhs[:open]) {
	case "and":
		op = circuit.GateAnd
	case "or":
		op = circuit.GateOr
	default:
		return circuit.RawGate{}, errors.Errorf(
			"gqfile: gate operator %q is not and/or; forall/exists/free/list sub-gates are not supported by this reader", rhs[:open])
	}

	argsStr := strings.TrimSpace(rhs[open+1 : closeIdx])
	var args []circuit.Literal
	if argsStr != "" {
		for _, a := range strings.Split(argsStr, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return circuit.RawGate{}, errors.Wrapf(err, "gqfile: parsing gate argument %q", a)
			}
			args = append(args, litFromSigned(n))
		}
	}

	return circuit.RawGate{Var: circuit.GateVar(out), Op: op, Args: args}, nil
}

// Package circuit implements the gate-level circuit model a parsed QBF
// instance is lowered to: input/gate variables sharing one literal
// space, an attached quantifier prefix, AND-only gate definitions (OR
// is normalized away), and the per-gate "ghost" shadow variables used
// to track which player is forced by a gate (spec data model §3.2,
// §3.3; component design §4.2).
package circuit

import "fmt"

// GateVar identifies a variable in the circuit's single variable
// space: input variables, AND-gate output variables, their ghost
// shadows, and CEGAR-synthesized variables all share this space, the
// same way ghostq-cleansed.cpp's raw int literals do.
type GateVar uint32

func (v GateVar) String() string { return fmt.Sprintf("v%d", v) }

// Literal is a signed reference to a GateVar: the variable in the
// upper bits, polarity in the low bit (0 positive, 1 negative) —
// the same var<<1|polarity scheme as internal/formula.Lit, kept as a
// distinct type because circuit variables and formula nodes are
// different identity spaces.
type Literal uint32

// LitNull is returned where no literal is defined.
const LitNull Literal = 0

func (v GateVar) Pos() Literal { return Literal(v << 1) }
func (v GateVar) Neg() Literal { return Literal(v<<1 | 1) }

func (l Literal) Var() GateVar   { return GateVar(l >> 1) }
func (l Literal) IsPos() bool    { return l&1 == 0 }
func (l Literal) Not() Literal   { return l ^ 1 }
func (l Literal) Abs() Literal   { return l &^ 1 }
func (l Literal) String() string {
	if l.IsPos() {
		return l.Var().String()
	}
	return "-" + l.Var().String()
}

// Player names which side of the game a ghost variable, sequent, or
// winner formula belongs to.
type Player uint8

const (
	Universal Player = iota // the "A" player
	Existential
)

func (p Player) String() string {
	if p == Existential {
		return "E"
	}
	return "A"
}

// Opposite returns the other player.
func (p Player) Opposite() Player {
	if p == Existential {
		return Universal
	}
	return Existential
}

// QType is the type of a quantifier block.
type QType uint8

const (
	QForall QType = iota
	QExists
	QFreeBlock
)

func (t QType) String() string {
	switch t {
	case QForall:
		return "A"
	case QExists:
		return "E"
	default:
		return "F"
	}
}

// GateOp is the operator of a gate definition. Only AND survives past
// circuit construction: an OR gate is normalized to ¬AND(¬args) when
// the source hands it over, per spec §4.2.
type GateOp uint8

const (
	GateAnd GateOp = iota
	GateOr
)

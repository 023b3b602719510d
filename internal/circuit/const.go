package circuit

// ConstFalseVar/ConstTrueVar are two reserved variables, distinct from
// every input/gate/ghost/CEGAR variable Build or CEGAR synthesis ever
// allocates (those grow up from 1), used to represent the constant
// results circuit restriction (internal/cegar) can fold down to —
// spec §4.6 step 3: "the result is either a constant, an existing
// literal, or a freshly allocated gate variable."
const (
	ConstFalseVar GateVar = 1<<31 - 2
	ConstTrueVar  GateVar = 1<<31 - 1
)

// ConstFalse and ConstTrue are the two constant literals.
var (
	ConstFalse = ConstFalseVar.Pos()
	ConstTrue  = ConstTrueVar.Pos()
)

// IsConst reports whether l is one of the two constant literals.
func IsConst(l Literal) bool {
	return l.Var() == ConstFalseVar || l.Var() == ConstTrueVar
}

// ConstValue returns l's boolean value; only meaningful when
// IsConst(l) is true.
func ConstValue(l Literal) bool {
	if l.Var() == ConstTrueVar {
		return l.IsPos()
	}
	return !l.IsPos()
}

// BoolLit returns ConstTrue or ConstFalse for b.
func BoolLit(b bool) Literal {
	if b {
		return ConstTrue
	}
	return ConstFalse
}

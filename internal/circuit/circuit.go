package circuit

import "fmt"

// GateDef is one AND-gate definition: Out = Args[0] ∧ Args[1] ∧ ... An
// OR gate handed in by the source is normalized to this form by Build,
// which negates its args and every other literal reference to its
// output variable (other gates' Args, and the circuit's Output) so
// that Out keeps naming the same truth value as the original OR gate.
type GateDef struct {
	Out  GateVar
	Args []Literal
}

// RawInput names one input variable and the quantifier-block type
// sequence position it belongs to, as handed over by a GateSource.
type RawInput struct {
	Var   GateVar
	Block int // index into the QType slice passed to NewPrefix
}

// RawGate is a gate definition exactly as a GateSource hands it over:
// Op distinguishes AND from OR so Build can normalize OR to ¬AND.
type RawGate struct {
	Var GateVar
	Op  GateOp
	Args []Literal
}

// GateSource is the handoff contract between an external circuit
// parser (GhostQ format, QCIR-G14, or the AIGER translator alike) and
// circuit construction — a generalization of the teacher's
// ConstraintProvider/ConstraintProviderFunc (a cache entry hands over
// constraints; here a parsed file hands over gates) so any of those
// formats, or a test fixture, can feed Build uniformly.
type GateSource interface {
	// QuantifierBlocks returns the prefix's block types in outer-to-
	// inner order.
	QuantifierBlocks() []QType
	// Inputs returns every input variable and the block it belongs to.
	Inputs() []RawInput
	// Gates returns every gate definition in dependency order (a
	// gate's Args never reference a gate defined later in the slice).
	Gates() []RawGate
	// Output is the circuit's single output literal.
	Output() Literal
}

// GateSourceFunc adapts four plain functions into a
// GateSource, the functional-adapter idiom the teacher uses for
// ConstraintProviderFunc.
type GateSourceFunc struct {
	BlocksFn func() []QType
	InputsFn func() []RawInput
	GatesFn  func() []RawGate
	OutputFn func() Literal
}

func (f GateSourceFunc) QuantifierBlocks() []QType { return f.BlocksFn() }
func (f GateSourceFunc) Inputs() []RawInput         { return f.InputsFn() }
func (f GateSourceFunc) Gates() []RawGate            { return f.GatesFn() }
func (f GateSourceFunc) Output() Literal             { return f.OutputFn() }

// Circuit is the built gate-level model: the input/gate variable
// range, the output literal, the quantifier prefix, every AND-gate
// definition keyed by its positive gate variable, and the derived
// ghost-variable tables (spec §4.2).
type Circuit struct {
	LastInputVar  GateVar
	LastGateVar   GateVar
	OutputGateLit Literal
	Prefix        *Prefix

	gates   map[GateVar]*GateDef
	gateOrd []GateVar // gates in dependency (definition) order

	existGhost map[GateVar]GateVar // gate var -> its existential-loser ghost
	univGhost  map[GateVar]GateVar // gate var -> its universal-loser ghost
	ghostOrig  map[GateVar]GateVar // ghost var -> the gate var it shadows
	ghostPlyer map[GateVar]Player  // ghost var -> which player it shadows

	nextVar GateVar // next fresh variable, for ghosts and later CEGAR vars
}

// Gate returns the AND-gate definition for gate variable g, or nil if
// g is not a gate (e.g. an input variable).
func (c *Circuit) Gate(g GateVar) *GateDef { return c.gates[g] }

// Gates returns every AND-gate definition in dependency order.
func (c *Circuit) Gates() []*GateDef {
	out := make([]*GateDef, len(c.gateOrd))
	for i, g := range c.gateOrd {
		out[i] = c.gates[g]
	}
	return out
}

// IsInput reports whether v is an input variable (appears in the
// quantifier prefix rather than as a gate output).
func (c *Circuit) IsInput(v GateVar) bool { return v <= c.LastInputVar }

// FreshVar allocates and returns a new variable past every gate/ghost
// variable derived so far, for use by CEGAR synthesis (internal/cegar)
// and placed into block via c.Prefix.AddVar by the caller.
func (c *Circuit) FreshVar() GateVar {
	c.nextVar++
	return c.nextVar
}

// AddGate interns args as a (possibly new) AND gate, folding constants,
// deduplicating literals, detecting x ∧ ¬x contradictions, and reusing
// an existing gate whose stored argument list equals the sorted,
// deduplicated args (a gate stored with the same set in another order
// is not reused) — CEGAR
// synthesis's own gate-construction step (spec §4.6 step 3: "AND/OR
// gates fold constants, deduplicate args, detect contradictions, and
// intern the result as a new gate if the argument set changed").
func (c *Circuit) AddGate(args []Literal) Literal {
	seen := make(map[Literal]bool, len(args))
	kept := make([]Literal, 0, len(args))
	for _, a := range args {
		if IsConst(a) {
			if !ConstValue(a) {
				return ConstFalse
			}
			continue
		}
		if seen[a.Not()] {
			return ConstFalse
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		kept = append(kept, a)
	}
	switch len(kept) {
	case 0:
		return ConstTrue
	case 1:
		return kept[0]
	}

	sortLits(kept)
	for _, g := range c.gateOrd {
		if litsEqual(c.gates[g].Args, kept) {
			return g.Pos()
		}
	}

	v := c.FreshVar()
	c.gates[v] = &GateDef{Out: v, Args: kept}
	c.gateOrd = append(c.gateOrd, v)
	if v > c.LastGateVar {
		c.LastGateVar = v
	}
	return v.Pos()
}

func sortLits(lits []Literal) {
	for i := 1; i < len(lits); i++ {
		for j := i; j > 0 && lits[j-1] > lits[j]; j-- {
			lits[j-1], lits[j] = lits[j], lits[j-1]
		}
	}
}

func litsEqual(a, b []Literal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Build lowers a GateSource into a Circuit: assigns the quantifier
// prefix, records input variables, normalizes OR gates to ¬AND, and
// derives the per-gate ghost variables and their quantifier-block
// placement (spec §4.2).
func Build(src GateSource) (*Circuit, error) {
	c := &Circuit{
		Prefix:     NewPrefix(src.QuantifierBlocks()),
		gates:      make(map[GateVar]*GateDef),
		existGhost: make(map[GateVar]GateVar),
		univGhost:  make(map[GateVar]GateVar),
		ghostOrig:  make(map[GateVar]GateVar),
		ghostPlyer: make(map[GateVar]Player),
	}

	for _, in := range src.Inputs() {
		if in.Block < 0 || in.Block >= len(src.QuantifierBlocks()) {
			return nil, fmt.Errorf("circuit: input %s has out-of-range block %d", in.Var, in.Block)
		}
		c.Prefix.AddVar(in.Var, c.Prefix.Blocks[in.Block])
		if in.Var > c.LastInputVar {
			c.LastInputVar = in.Var
		}
		if in.Var > c.nextVar {
			c.nextVar = in.Var
		}
	}

	// orNormalized tracks which gate variables were rewritten from OR to
	// ¬AND: the stored GateDef for such a variable computes the negation
	// of the gate's original value, so every literal elsewhere that
	// names it — a later gate's Args, or the circuit's Output — must be
	// translated to keep referring to the same truth value.
	orNormalized := make(map[GateVar]bool)
	gates := src.Gates()
	// Reserve every gate variable before the first ghost is allocated,
	// so no ghost takes the number of a gate defined later in the list.
	for _, rg := range gates {
		if rg.Var > c.nextVar {
			c.nextVar = rg.Var
		}
	}
	for _, rg := range gates {
		def := normalizeGate(rg, orNormalized)
		c.gates[def.Out] = def
		c.gateOrd = append(c.gateOrd, def.Out)
		if def.Out > c.LastGateVar {
			c.LastGateVar = def.Out
		}
		if def.Out > c.nextVar {
			c.nextVar = def.Out
		}
		c.deriveGhosts(def)
		if rg.Op == GateOr {
			orNormalized[rg.Var] = true
		}
	}

	c.OutputGateLit = translateLit(src.Output(), orNormalized)
	return c, nil
}

// translateLit corrects a literal reference to account for any
// OR-to-¬AND normalization already performed on the gate variable it
// names, flipping its polarity when that gate was so normalized and
// leaving every other literal (inputs, AND gates) untouched.
func translateLit(l Literal, orNormalized map[GateVar]bool) Literal {
	if orNormalized[l.Var()] {
		return l.Not()
	}
	return l
}

// normalizeGate rewrites an OR gate to ¬AND(¬args): De Morgan applied
// once at construction time so every stored GateDef is an AND (spec
// §4.2: "An OR gate is normalized to ¬AND by negating inputs and the
// output"). Every arg is translated first, so a reference to an
// earlier OR-normalized gate variable is corrected before this gate's
// own negation (if any) is layered on top.
func normalizeGate(rg RawGate, orNormalized map[GateVar]bool) *GateDef {
	args := make([]Literal, len(rg.Args))
	for i, a := range rg.Args {
		args[i] = translateLit(a, orNormalized)
	}
	if rg.Op == GateAnd {
		return &GateDef{Out: rg.Var, Args: args}
	}
	for i, a := range args {
		args[i] = a.Not()
	}
	return &GateDef{Out: rg.Var, Args: args}
}

// deriveGhosts allocates the existential- and universal-loser ghost
// variables for an AND gate and places each into the nearest enclosing
// quantifier block of the matching type, at or before the innermost
// input block referenced by the gate's own arguments (spec §4.2).
func (c *Circuit) deriveGhosts(def *GateDef) {
	innermost := c.innermostInputBlock(def)

	existGhost := c.FreshVar()
	c.Prefix.AddVar(existGhost, c.Prefix.NearestEnclosing(QExists, innermost))
	c.existGhost[def.Out] = existGhost
	c.ghostOrig[existGhost] = def.Out
	c.ghostPlyer[existGhost] = Existential

	univGhost := c.FreshVar()
	c.Prefix.AddVar(univGhost, c.Prefix.NearestEnclosing(QForall, innermost))
	c.univGhost[def.Out] = univGhost
	c.ghostOrig[univGhost] = def.Out
	c.ghostPlyer[univGhost] = Universal
}

// innermostInputBlock returns the deepest (highest-index) quantifier
// block among def's own arguments that are themselves input variables,
// or nil if def has no direct input-variable argument.
func (c *Circuit) innermostInputBlock(def *GateDef) *QBlock {
	var best *QBlock
	for _, a := range def.Args {
		v := a.Var()
		if !c.IsInput(v) {
			continue
		}
		b := c.Prefix.BlockOf(v)
		if b == nil {
			continue
		}
		if best == nil || b.Index > best.Index {
			best = b
		}
	}
	return best
}

package circuit

// QBlock is one block of the quantifier prefix: a type, its position
// among the ordered blocks, and the variables belonging to it. Adjacent
// blocks have distinct types (spec §3.3).
type QBlock struct {
	Type  QType
	Index int
	Vars  map[GateVar]bool
}

func newQBlock(t QType, idx int) *QBlock {
	return &QBlock{Type: t, Index: idx, Vars: make(map[GateVar]bool)}
}

// Prefix is the ordered sequence of quantifier blocks attached to a
// circuit's output gate, including the two trailing sentinel empty
// blocks (one existential, one universal) that host newly minted
// ghost/CEGAR variables (spec §3.3).
type Prefix struct {
	Blocks []*QBlock
	blockOf map[GateVar]*QBlock
}

// NewPrefix builds a Prefix from the ordered block-type sequence a
// parser hands over, appending the two sentinel blocks.
func NewPrefix(types []QType) *Prefix {
	p := &Prefix{blockOf: make(map[GateVar]*QBlock)}
	for i, t := range types {
		p.Blocks = append(p.Blocks, newQBlock(t, i))
	}
	p.Blocks = append(p.Blocks, newQBlock(QExists, len(p.Blocks)))
	p.Blocks = append(p.Blocks, newQBlock(QForall, len(p.Blocks)))
	return p
}

// sentinelExists/sentinelForall return the two trailing ghost/CEGAR
// host blocks.
func (p *Prefix) sentinelExists() *QBlock { return p.Blocks[len(p.Blocks)-2] }
func (p *Prefix) sentinelForall() *QBlock { return p.Blocks[len(p.Blocks)-1] }

// AddVar places v in block b, recording the reverse lookup used by
// BlockOf/Precedes.
func (p *Prefix) AddVar(v GateVar, b *QBlock) {
	b.Vars[v] = true
	p.blockOf[v] = b
}

// BlockOf returns the block v was placed in, or nil if v has not been
// assigned to any block yet.
func (p *Prefix) BlockOf(v GateVar) *QBlock {
	return p.blockOf[v]
}

// NearestEnclosing returns the innermost (highest-index) block of type
// t whose index is at most the input block's index — "the nearest
// enclosing existential [or universal] block at or before the
// innermost input block" (spec §4.2) — falling back to the matching
// sentinel block when no such block precedes it.
func (p *Prefix) NearestEnclosing(t QType, innermostInput *QBlock) *QBlock {
	limit := len(p.Blocks)
	if innermostInput != nil {
		limit = innermostInput.Index + 1
	}
	var best *QBlock
	for i := 0; i < limit && i < len(p.Blocks); i++ {
		if p.Blocks[i].Type == t {
			best = p.Blocks[i]
		}
	}
	if best == nil {
		if t == QExists {
			best = p.sentinelExists()
		} else {
			best = p.sentinelForall()
		}
	}
	return best
}

// Precedes implements the ≺ variable-order relation: u ≺ v iff u's
// block index is less than v's (spec §4.2); ties (same block) are
// broken by GateVar identity to stay a stable total order.
func (p *Prefix) Precedes(u, v GateVar) bool {
	bu, bv := p.blockOf[u], p.blockOf[v]
	switch {
	case bu == nil || bv == nil:
		return u < v
	case bu.Index != bv.Index:
		return bu.Index < bv.Index
	default:
		return u < v
	}
}

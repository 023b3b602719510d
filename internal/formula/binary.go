package formula

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// binaryHeader is the literal header spec.md §6(c) requires at the
// start of the compact binary form.
const binaryHeader = "(FmlaBin)\n"

// binaryOps is the fixed operator table referenced by tag index in the
// encoded node stream, in the same order Op's own declaration uses so
// a tag is just int(Op).
var binaryOps = []Op{
	VAR, TRUE, FALSE, NOT, AND, OR, ITE, EQ, IMPL, XOR, LIST,
	EXISTS, FORALL, FREE, GSEQ, SUBST, RESOLVE, NEWENV, INCLUDE, ERROR,
}

// WriteBinary emits root and everything it depends on in the compact
// tagged binary form: the literal header, a comment string, the
// operator table, a subformula count, a variable name table (empty
// entries when stripped is true), then one varint-encoded record per
// node in topological order plus the root reference.
func (s *Store) WriteBinary(w io.Writer, root Lit, comment string, stripped bool) error {
	order, index := s.topoOrder(root)
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(binaryHeader); err != nil {
		return err
	}
	writeVarintStr(bw, comment)
	writeUvarint(bw, uint64(len(binaryOps)))
	for _, op := range binaryOps {
		writeVarintStr(bw, op.String())
	}
	writeUvarint(bw, uint64(len(order)))

	names := collectVarNames(s, order)
	writeUvarint(bw, uint64(len(names)))
	for _, nm := range names {
		if stripped {
			writeVarintStr(bw, "")
		} else {
			writeVarintStr(bw, string(nm))
		}
	}
	nameIndex := make(map[VarName]int, len(names))
	for i, nm := range names {
		nameIndex[nm] = i
	}

	for _, v := range order {
		n := s.nodes[v]
		writeUvarint(bw, uint64(opTag(n.Op)))
		switch n.Op {
		case VAR:
			writeUvarint(bw, uint64(nameIndex[n.Name]))
		case INCLUDE:
			writeUvarint(bw, uint64(nameIndex[n.Name]))
		case RESOLVE:
			writeUvarint(bw, uint64(nameIndex[n.Name]))
			writeLitRef(bw, n.Args[0], index)
			writeLitRef(bw, n.Args[1], index)
		case EXISTS, FORALL, FREE:
			writeUvarint(bw, uint64(len(n.Keys)))
			for _, k := range n.Keys {
				writeUvarint(bw, uint64(nameIndex[k]))
			}
			writeLitRef(bw, n.Args[0], index)
		case SUBST:
			writeLitRef(bw, n.Args[0], index)
			writeUvarint(bw, uint64(len(n.Keys)))
			for _, k := range n.Keys {
				writeUvarint(bw, uint64(nameIndex[k]))
			}
			writeUvarint(bw, uint64(len(n.Subs)))
			for _, sv := range n.Subs {
				writeLitRef(bw, sv, index)
			}
		case TRUE, FALSE, ERROR:
		default:
			writeUvarint(bw, uint64(len(n.Args)))
			for _, a := range n.Args {
				writeLitRef(bw, a, index)
			}
		}
	}
	writeLitRef(bw, root, index)
	return bw.Flush()
}

func opTag(op Op) int {
	for i, o := range binaryOps {
		if o == op {
			return i
		}
	}
	return -1
}

func collectVarNames(s *Store, order []Var) []VarName {
	seen := make(map[VarName]bool)
	var names []VarName
	add := func(n VarName) {
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		names = append(names, n)
	}
	for _, v := range order {
		n := s.nodes[v]
		switch n.Op {
		case VAR, INCLUDE, RESOLVE:
			add(n.Name)
		}
		if n.Op == EXISTS || n.Op == FORALL || n.Op == FREE || n.Op == SUBST {
			for _, k := range n.Keys {
				add(k)
			}
		}
	}
	return names
}

func writeUvarint(bw *bufio.Writer, x uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], x)
	bw.Write(buf[:n])
}

func writeVarintStr(bw *bufio.Writer, s string) {
	writeUvarint(bw, uint64(len(s)))
	bw.WriteString(s)
}

func writeLitRef(bw *bufio.Writer, l Lit, index map[Var]int) {
	sign := uint64(0)
	if !l.IsPos() {
		sign = 1
	}
	writeUvarint(bw, uint64(index[l.Var()])<<1|sign)
}

// ReadBinary parses the form WriteBinary produces and returns the
// literal equivalent to the encoded root, re-interned into s.
func (s *Store) ReadBinary(r io.Reader) (Lit, error) {
	br := bufio.NewReader(r)
	hdr := make([]byte, len(binaryHeader))
	if _, err := io.ReadFull(br, hdr); err != nil {
		return LitNull, err
	}
	if string(hdr) != binaryHeader {
		return LitNull, fmt.Errorf("formula: bad binary header %q", hdr)
	}
	if _, err := readVarintStr(br); err != nil {
		return LitNull, err
	}
	numOps, err := binary.ReadUvarint(br)
	if err != nil {
		return LitNull, err
	}
	ops := make([]Op, numOps)
	for i := range ops {
		opName, err := readVarintStr(br)
		if err != nil {
			return LitNull, err
		}
		ops[i] = opFromString(opName)
	}
	numNodes, err := binary.ReadUvarint(br)
	if err != nil {
		return LitNull, err
	}
	numNames, err := binary.ReadUvarint(br)
	if err != nil {
		return LitNull, err
	}
	names := make([]VarName, numNames)
	for i := range names {
		nm, err := readVarintStr(br)
		if err != nil {
			return LitNull, err
		}
		names[i] = VarName(nm)
	}

	defs := make([]Lit, numNodes)
	for i := uint64(0); i < numNodes; i++ {
		tag, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		if int(tag) >= len(ops) {
			return LitNull, fmt.Errorf("formula: bad op tag %d", tag)
		}
		op := ops[tag]
		lit, err := s.readBinaryNode(br, op, names, defs)
		if err != nil {
			return LitNull, err
		}
		defs[i] = lit
	}
	rootIdx, err := binary.ReadUvarint(br)
	if err != nil {
		return LitNull, err
	}
	return resolveLitRef(rootIdx, defs), nil
}

func (s *Store) readBinaryNode(br *bufio.Reader, op Op, names []VarName, defs []Lit) (Lit, error) {
	switch op {
	case VAR:
		idx, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		return s.Var(names[idx]), nil
	case TRUE:
		return s.True, nil
	case FALSE:
		return s.False, nil
	case ERROR:
		return s.Error, nil
	case INCLUDE:
		idx, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		return s.Include(names[idx]), nil
	case RESOLVE:
		idx, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		left, err := readLitRef(br, defs)
		if err != nil {
			return LitNull, err
		}
		right, err := readLitRef(br, defs)
		if err != nil {
			return LitNull, err
		}
		return s.Resolve(names[idx], left, right), nil
	case EXISTS, FORALL, FREE:
		nk, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		keys := make([]VarName, nk)
		for i := range keys {
			idx, err := binary.ReadUvarint(br)
			if err != nil {
				return LitNull, err
			}
			keys[i] = names[idx]
		}
		body, err := readLitRef(br, defs)
		if err != nil {
			return LitNull, err
		}
		switch op {
		case EXISTS:
			return s.Exists(keys, body), nil
		case FORALL:
			return s.Forall(keys, body), nil
		default:
			return s.Free(keys, body), nil
		}
	case SUBST:
		body, err := readLitRef(br, defs)
		if err != nil {
			return LitNull, err
		}
		nk, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		keys := make([]VarName, nk)
		for i := range keys {
			idx, err := binary.ReadUvarint(br)
			if err != nil {
				return LitNull, err
			}
			keys[i] = names[idx]
		}
		ns, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		subs := make([]Lit, ns)
		for i := range subs {
			lit, err := readLitRef(br, defs)
			if err != nil {
				return LitNull, err
			}
			subs[i] = lit
		}
		return s.Subst(body, keys, subs), nil
	case AND, OR, XOR, ITE, LIST, GSEQ:
		na, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		args := make([]Lit, na)
		for i := range args {
			lit, err := readLitRef(br, defs)
			if err != nil {
				return LitNull, err
			}
			args[i] = lit
		}
		switch op {
		case AND:
			return s.And(args...), nil
		case OR:
			return s.Or(args...), nil
		case XOR:
			return s.Xor(args[0], args[1]), nil
		case ITE:
			return s.Ite(args[0], args[1], args[2]), nil
		case LIST:
			return s.List(args...), nil
		default:
			return s.Gseq(args...), nil
		}
	case NEWENV:
		na, err := binary.ReadUvarint(br)
		if err != nil {
			return LitNull, err
		}
		args := make([]Lit, na)
		for i := range args {
			lit, err := readLitRef(br, defs)
			if err != nil {
				return LitNull, err
			}
			args[i] = lit
		}
		return s.Newenv(args[0]), nil
	default:
		return LitNull, fmt.Errorf("formula: unsupported op in binary stream: %s", op)
	}
}

func readLitRef(br *bufio.Reader, defs []Lit) (Lit, error) {
	x, err := binary.ReadUvarint(br)
	if err != nil {
		return LitNull, err
	}
	return resolveLitRef(x, defs), nil
}

func resolveLitRef(x uint64, defs []Lit) Lit {
	idx := x >> 1
	sign := x & 1
	lit := defs[idx]
	if sign == 1 {
		return lit.Not()
	}
	return lit
}

func readVarintStr(br *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func opFromString(s string) Op {
	for _, o := range binaryOps {
		if o.String() == s {
			return o
		}
	}
	return opInvalid
}

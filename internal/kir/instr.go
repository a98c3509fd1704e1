package kir

import "fmt"

// Opcode enumerates instruction kinds.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	// OpCall calls Operands[0] with Operands[1:].
	OpCall
	// OpLoad reads ElemType from Operands[0].
	OpLoad
	// OpStore writes Operands[0] to Operands[1].
	OpStore
	// OpGEP computes an element address: Operands[0] is the base, the rest are indices.
	OpGEP
	// OpBitCast reinterprets Operands[0] as Typ.
	OpBitCast
	OpAdd
	OpSub
	OpMul
	// OpICmp compares Operands[0] and Operands[1] using Pred.
	OpICmp
	// OpAlloca reserves a stack slot of ElemType.
	OpAlloca
	// OpPhi selects Operands[i] when control arrives from Targets[i].
	OpPhi
	// OpRet returns Operands[0], or nothing when Operands is empty.
	OpRet
	// OpBr jumps to Targets[0].
	OpBr
	// OpCondBr jumps to Targets[0] when Operands[0] is true, Targets[1] otherwise.
	OpCondBr
	OpUnreachable
)

func (op Opcode) String() string {
	switch op {
	case OpCall:
		return "call"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGEP:
		return "getelementptr"
	case OpBitCast:
		return "bitcast"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpICmp:
		return "icmp"
	case OpAlloca:
		return "alloca"
	case OpPhi:
		return "phi"
	case OpRet:
		return "ret"
	case OpBr, OpCondBr:
		return "br"
	case OpUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("Opcode(%d)", op)
	}
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpRet, OpBr, OpCondBr, OpUnreachable:
		return true
	}
	return false
}

// Well-known attachment kinds.
const (
	MetaDebugLoc = "dbg"
	MetaTBAA     = "tbaa"
)

// Attachment is a named annotation carried by an instruction. The payload is
// opaque to the lowering passes.
type Attachment struct {
	Kind    string
	Payload string
}

// Instr is a single instruction. It produces at most one value.
type Instr struct {
	Op       Opcode
	Name     string
	Typ      *Type
	Operands []Value
	Targets  []*Block
	ElemType *Type
	Pred     string
	InBounds bool

	Attachments []Attachment
	Parent      *Block
}

func (in *Instr) Type() *Type {
	if in.Typ == nil {
		return Void
	}
	return in.Typ
}

func (in *Instr) Ident() string { return "%" + in.Name }

// HasValue reports whether the instruction defines a usable value.
func (in *Instr) HasValue() bool {
	return !in.Op.IsTerminator() && in.Op != OpStore && !in.Type().IsVoid()
}

// Detached reports whether the instruction has been unlinked from its block.
func (in *Instr) Detached() bool { return in.Parent == nil }

// Callee returns the called function of a direct call, or nil.
func (in *Instr) Callee() *Func {
	if in.Op != OpCall || len(in.Operands) == 0 {
		return nil
	}
	f, _ := in.Operands[0].(*Func)
	return f
}

// Args returns the call arguments.
func (in *Instr) Args() []Value {
	if in.Op != OpCall || len(in.Operands) == 0 {
		return nil
	}
	return in.Operands[1:]
}

// ReplaceOperand swaps every occurrence of old with repl and returns how
// many operand slots changed.
func (in *Instr) ReplaceOperand(old, repl Value) int {
	n := 0
	for i, op := range in.Operands {
		if op == old {
			in.Operands[i] = repl
			n++
		}
	}
	return n
}

// Meta returns the payload of the attachment with the given kind.
func (in *Instr) Meta(kind string) (string, bool) {
	for _, a := range in.Attachments {
		if a.Kind == kind {
			return a.Payload, true
		}
	}
	return "", false
}

// SetMeta adds or replaces an attachment.
func (in *Instr) SetMeta(kind, payload string) {
	for i := range in.Attachments {
		if in.Attachments[i].Kind == kind {
			in.Attachments[i].Payload = payload
			return
		}
	}
	in.Attachments = append(in.Attachments, Attachment{Kind: kind, Payload: payload})
}

// ClearMeta removes the attachment of the given kind and reports whether
// one was present.
func (in *Instr) ClearMeta(kind string) bool {
	for i := range in.Attachments {
		if in.Attachments[i].Kind == kind {
			in.Attachments = append(in.Attachments[:i], in.Attachments[i+1:]...)
			return true
		}
	}
	return false
}

// NewCall builds a call; the result type is the callee's return type.
func NewCall(callee Value, args ...Value) *Instr {
	ops := make([]Value, 0, len(args)+1)
	ops = append(ops, callee)
	ops = append(ops, args...)
	return &Instr{Op: OpCall, Typ: calleeResult(callee), Operands: ops}
}

func calleeResult(callee Value) *Type {
	if f, ok := callee.(*Func); ok {
		return f.RetType
	}
	t := callee.Type()
	if t.IsPointer() && t.Elem != nil && t.Elem.Kind == KindFunc {
		return t.Elem.Elem
	}
	return Void
}

// NewLoad reads a value of type elem from src.
func NewLoad(elem *Type, src Value) *Instr {
	return &Instr{Op: OpLoad, Typ: elem, ElemType: elem, Operands: []Value{src}}
}

// NewStore writes val to dst.
func NewStore(val, dst Value) *Instr {
	return &Instr{Op: OpStore, Typ: Void, Operands: []Value{val, dst}}
}

// NewGEP computes the address of an element of elem-typed memory at src.
func NewGEP(elem *Type, src Value, indices ...Value) *Instr {
	ops := make([]Value, 0, len(indices)+1)
	ops = append(ops, src)
	ops = append(ops, indices...)
	return &Instr{Op: OpGEP, Typ: gepResult(elem, src.Type(), indices), ElemType: elem, Operands: ops}
}

// gepResult walks the indices past the first through struct fields.
func gepResult(elem, src *Type, indices []Value) *Type {
	var space AddrSpace
	if src.IsPointer() {
		space = src.AddrSpace
	}
	cur := elem
	for i := 1; i < len(indices); i++ {
		if cur == nil || cur.Kind != KindStruct {
			break
		}
		c, ok := indices[i].(*Const)
		if !ok || c.Int < 0 || int(c.Int) >= len(cur.Fields) {
			break
		}
		cur = cur.Fields[c.Int]
	}
	return PointerTo(cur, space)
}

// NewBitCast reinterprets v as type to.
func NewBitCast(v Value, to *Type) *Instr {
	return &Instr{Op: OpBitCast, Typ: to, Operands: []Value{v}}
}

// NewBinary builds an integer add, sub or mul.
func NewBinary(op Opcode, x, y Value) *Instr {
	return &Instr{Op: op, Typ: x.Type(), Operands: []Value{x, y}}
}

// NewICmp compares two integers; pred is an LLVM predicate such as "slt".
func NewICmp(pred string, x, y Value) *Instr {
	return &Instr{Op: OpICmp, Typ: I1, Pred: pred, Operands: []Value{x, y}}
}

// NewAlloca reserves a stack slot.
func NewAlloca(elem *Type) *Instr {
	return &Instr{Op: OpAlloca, Typ: PointerTo(elem, 0), ElemType: elem}
}

// NewPhi builds an empty phi; use AddIncoming to populate it.
func NewPhi(typ *Type) *Instr {
	return &Instr{Op: OpPhi, Typ: typ}
}

// AddIncoming appends a (value, predecessor) pair to a phi.
func (in *Instr) AddIncoming(v Value, pred *Block) {
	in.Operands = append(in.Operands, v)
	in.Targets = append(in.Targets, pred)
}

// NewRet returns v, or nothing when v is nil.
func NewRet(v Value) *Instr {
	in := &Instr{Op: OpRet, Typ: Void}
	if v != nil {
		in.Operands = []Value{v}
	}
	return in
}

// NewBr jumps unconditionally.
func NewBr(target *Block) *Instr {
	return &Instr{Op: OpBr, Typ: Void, Targets: []*Block{target}}
}

// NewCondBr branches on cond.
func NewCondBr(cond Value, then, els *Block) *Instr {
	return &Instr{Op: OpCondBr, Typ: Void, Operands: []Value{cond}, Targets: []*Block{then, els}}
}

// NewUnreachable marks the end of a block that cannot be reached.
func NewUnreachable() *Instr {
	return &Instr{Op: OpUnreachable, Typ: Void}
}

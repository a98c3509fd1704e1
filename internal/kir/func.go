package kir

// Linkage mirrors the LLVM linkage kinds the front end produces.
type Linkage uint8

const (
	LinkageExternal Linkage = iota
	LinkageInternal
	LinkagePrivate
	LinkageWeak
	LinkageLinkOnceODR
	LinkageAvailableExternally
)

func (l Linkage) String() string {
	switch l {
	case LinkageInternal:
		return "internal"
	case LinkagePrivate:
		return "private"
	case LinkageWeak:
		return "weak"
	case LinkageLinkOnceODR:
		return "linkonce_odr"
	case LinkageAvailableExternally:
		return "available_externally"
	default:
		return ""
	}
}

// Func is a function definition or, when it has no blocks, a declaration.
type Func struct {
	Name     string
	Params   []*Param
	RetType  *Type
	Variadic bool
	Linkage  Linkage
	Blocks   []*Block
	Parent   *Module
}

// NewFunc creates a function and binds the parameters to it.
func NewFunc(name string, ret *Type, params ...*Param) *Func {
	f := &Func{Name: name, RetType: ret}
	f.SetParams(params)
	return f
}

// SetParams replaces the parameter list and rebinds each parameter.
func (f *Func) SetParams(params []*Param) {
	f.Params = params
	for i, p := range params {
		p.Parent = f
		p.Index = i
	}
}

// Sig returns the function signature type.
func (f *Func) Sig() *Type {
	params := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Typ
	}
	return FuncOf(f.RetType, params, f.Variadic)
}

func (f *Func) Type() *Type   { return PointerTo(f.Sig(), 0) }
func (f *Func) Ident() string { return "@" + f.Name }

// IsDeclaration reports whether the function has no body.
func (f *Func) IsDeclaration() bool { return len(f.Blocks) == 0 }

// NewBlock appends an empty block.
func (f *Func) NewBlock(name string) *Block {
	b := &Block{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the first block.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AllInstrs returns a snapshot of every attached instruction in block order.
// Callers may mutate the function while iterating the snapshot.
func (f *Func) AllInstrs() []*Instr {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Instrs)
	}
	out := make([]*Instr, 0, n)
	for _, b := range f.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// Use is an edge from a consumer instruction back to one of its operands.
type Use struct {
	User  *Instr
	Index int
}

// Uses lists every operand slot of an attached instruction that refers to v.
func (f *Func) Uses(v Value) []Use {
	var uses []Use
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i, op := range in.Operands {
				if op == v {
					uses = append(uses, Use{User: in, Index: i})
				}
			}
		}
	}
	return uses
}

// ReplaceAllUses redirects every use of old inside f to repl.
func (f *Func) ReplaceAllUses(old, repl Value) int {
	n := 0
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			n += in.ReplaceOperand(old, repl)
		}
	}
	return n
}

// References reports whether any attached instruction of f names g.
func (f *Func) References(g *Func) bool {
	return len(f.Uses(g)) > 0
}

package kir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Namer hands out printable local names for one function. Named values keep
// their name unless it is purely numeric (LLVM reserves those for implicit
// numbering) or already taken.
type Namer struct {
	names map[any]string
	used  map[string]struct{}
	next  int
}

// NewNamer assigns names to every parameter, block and value of f.
func NewNamer(f *Func) *Namer {
	n := &Namer{names: make(map[any]string), used: make(map[string]struct{})}
	for _, p := range f.Params {
		n.assign(p, p.Name, "arg")
	}
	for _, b := range f.Blocks {
		n.assign(b, b.Name, "bb")
		for _, in := range b.Instrs {
			if in.HasValue() {
				n.assign(in, in.Name, "v")
			}
		}
	}
	return n
}

func (n *Namer) assign(key any, name, prefix string) {
	if name != "" && !isNumeric(name) {
		if _, taken := n.used[name]; !taken {
			n.used[name] = struct{}{}
			n.names[key] = name
			return
		}
	}
	for {
		candidate := prefix + strconv.Itoa(n.next)
		n.next++
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			n.names[key] = candidate
			return
		}
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Local returns the printable name of a param, block or instruction.
func (n *Namer) Local(key any) string {
	if name, ok := n.names[key]; ok {
		return name
	}
	return "?"
}

// Ref renders v as an operand reference.
func (n *Namer) Ref(v Value) string {
	switch v := v.(type) {
	case *Param, *Instr:
		return "%" + quoteLocal(n.Local(v))
	case *Func:
		return "@" + quoteLocal(v.Name)
	case nil:
		return "<nil>"
	default:
		return v.Ident()
	}
}

// BlockRef renders b as a branch target.
func (n *Namer) BlockRef(b *Block) string {
	return "%" + quoteLocal(n.Local(b))
}

func quoteLocal(s string) string {
	for _, r := range s {
		if !(r == '_' || r == '.' || r == '$' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return strconv.Quote(s)
		}
	}
	return s
}

// Dump writes a human-readable listing of the module.
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %q funcs=%d\n", m.Source, len(m.Funcs))
	for _, f := range m.Funcs {
		sb.WriteString(FormatFunc(f))
	}
	for _, t := range m.Tables {
		fmt.Fprintf(&sb, "table %s records=%d\n", t.Name, len(t.Records))
		for i, r := range t.Records {
			fmt.Fprintf(&sb, "  #%d {%s}\n", i, formatRecord(r))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatRecord(r Record) string {
	parts := make([]string, 0, len(r.Operands))
	for _, op := range r.Operands {
		switch op.Kind {
		case MetaFunc:
			parts = append(parts, "@"+op.Func.Name)
		case MetaString:
			parts = append(parts, strconv.Quote(op.Str))
		case MetaInt:
			parts = append(parts, "i32 "+strconv.FormatInt(op.Int, 10))
		}
	}
	return strings.Join(parts, ", ")
}

// FormatFunc renders one function.
func FormatFunc(f *Func) string {
	n := NewNamer(f)
	var sb strings.Builder
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, fmt.Sprintf("%s %%%s", p.Typ, quoteLocal(n.Local(p))))
	}
	if f.Variadic {
		params = append(params, "...")
	}
	kw := "define"
	if f.IsDeclaration() {
		kw = "declare"
	}
	link := ""
	if l := f.Linkage.String(); l != "" {
		link = l + " "
	}
	fmt.Fprintf(&sb, "%s %s%s @%s(%s)", kw, link, f.RetType, quoteLocal(f.Name), strings.Join(params, ", "))
	if f.IsDeclaration() {
		sb.WriteString("\n")
		return sb.String()
	}
	sb.WriteString(" {\n")
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", quoteLocal(n.Local(b)))
		for _, in := range b.Instrs {
			sb.WriteString("  ")
			sb.WriteString(FormatInstr(n, in))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

const missing = "<missing>"

// FormatInstr renders one instruction with operand types, LLVM style.
func FormatInstr(n *Namer, in *Instr) string {
	var sb strings.Builder
	if in.HasValue() {
		fmt.Fprintf(&sb, "%%%s = ", quoteLocal(n.Local(in)))
	}
	typed := func(v Value) string {
		return v.Type().String() + " " + n.Ref(v)
	}
	// accessors tolerate malformed instructions
	typedAt := func(i int) string {
		if i >= len(in.Operands) || in.Operands[i] == nil {
			return missing
		}
		return typed(in.Operands[i])
	}
	refAt := func(i int) string {
		if i >= len(in.Operands) || in.Operands[i] == nil {
			return missing
		}
		return n.Ref(in.Operands[i])
	}
	blockAt := func(i int) string {
		if i >= len(in.Targets) || in.Targets[i] == nil {
			return missing
		}
		return n.BlockRef(in.Targets[i])
	}
	switch in.Op {
	case OpCall:
		args := make([]string, 0, len(in.Operands))
		for _, a := range in.Args() {
			args = append(args, typed(a))
		}
		fmt.Fprintf(&sb, "call %s %s(%s)", in.Type(), refAt(0), strings.Join(args, ", "))
	case OpLoad:
		fmt.Fprintf(&sb, "load %s, %s", in.ElemType, typedAt(0))
	case OpStore:
		fmt.Fprintf(&sb, "store %s, %s", typedAt(0), typedAt(1))
	case OpGEP:
		parts := make([]string, 0, len(in.Operands))
		for i := range in.Operands {
			parts = append(parts, typedAt(i))
		}
		kw := "getelementptr"
		if in.InBounds {
			kw += " inbounds"
		}
		fmt.Fprintf(&sb, "%s %s, %s", kw, in.ElemType, strings.Join(parts, ", "))
	case OpBitCast:
		fmt.Fprintf(&sb, "bitcast %s to %s", typedAt(0), in.Type())
	case OpAdd, OpSub, OpMul:
		fmt.Fprintf(&sb, "%s %s, %s", in.Op, typedAt(0), refAt(1))
	case OpICmp:
		fmt.Fprintf(&sb, "icmp %s %s, %s", in.Pred, typedAt(0), refAt(1))
	case OpAlloca:
		fmt.Fprintf(&sb, "alloca %s", in.ElemType)
	case OpPhi:
		incs := make([]string, 0, len(in.Operands))
		for i := range in.Operands {
			incs = append(incs, fmt.Sprintf("[ %s, %s ]", refAt(i), blockAt(i)))
		}
		fmt.Fprintf(&sb, "phi %s %s", in.Type(), strings.Join(incs, ", "))
	case OpRet:
		if len(in.Operands) == 0 {
			sb.WriteString("ret void")
		} else {
			fmt.Fprintf(&sb, "ret %s", typedAt(0))
		}
	case OpBr:
		fmt.Fprintf(&sb, "br label %s", blockAt(0))
	case OpCondBr:
		fmt.Fprintf(&sb, "br %s, label %s, label %s", typedAt(0), blockAt(0), blockAt(1))
	case OpUnreachable:
		sb.WriteString("unreachable")
	default:
		fmt.Fprintf(&sb, "<%s>", in.Op)
	}
	return sb.String()
}

package kir

import "strconv"

// Value is anything an instruction can take as an operand.
type Value interface {
	Type() *Type
	Ident() string
}

// Param is a formal parameter of a function.
type Param struct {
	Name   string
	Typ    *Type
	Parent *Func
	Index  int
}

// NewParam creates a detached parameter; NewFunc binds it.
func NewParam(name string, typ *Type) *Param {
	return &Param{Name: name, Typ: typ}
}

func (p *Param) Type() *Type   { return p.Typ }
func (p *Param) Ident() string { return "%" + p.Name }

// Const is a module-level scalar constant. Constants are shared by reference
// between functions and never copied by CloneInto.
type Const struct {
	Typ   *Type
	Int   int64
	Null  bool
	Undef bool
}

// ConstInt returns an integer constant of type typ.
func ConstInt(typ *Type, v int64) *Const {
	return &Const{Typ: typ, Int: v}
}

// NullOf returns the null pointer of the given pointer type.
func NullOf(typ *Type) *Const {
	return &Const{Typ: typ, Null: true}
}

// UndefOf returns an undefined value of type typ.
func UndefOf(typ *Type) *Const {
	return &Const{Typ: typ, Undef: true}
}

func (c *Const) Type() *Type { return c.Typ }

func (c *Const) Ident() string {
	switch {
	case c.Undef:
		return "undef"
	case c.Null:
		return "null"
	case c.Typ != nil && c.Typ.Kind == KindInt && c.Typ.Width == 1:
		if c.Int != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(c.Int, 10)
}

// isLocal reports whether v belongs to a single function body and must be
// remapped when that body is cloned.
func isLocal(v Value) bool {
	switch v.(type) {
	case *Param, *Instr:
		return true
	}
	return false
}

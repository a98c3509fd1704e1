package kir

import "fmt"

// Module owns an ordered list of functions and the descriptor tables.
type Module struct {
	Source string
	Funcs  []*Func
	Tables []*Table
}

// Table is an ordered named list of descriptor records.
type Table struct {
	Name    string
	Records []Record
}

// Record is one descriptor entry.
type Record struct {
	Operands []MetaOperand
}

// MetaOperandKind distinguishes descriptor record operands.
type MetaOperandKind uint8

const (
	MetaFunc MetaOperandKind = iota
	MetaString
	MetaInt
)

// MetaOperand is a function reference, a string tag or a 32-bit integer.
type MetaOperand struct {
	Kind MetaOperandKind
	Func *Func
	Str  string
	Int  int64
}

// FuncRef wraps f as a record operand.
func FuncRef(f *Func) MetaOperand { return MetaOperand{Kind: MetaFunc, Func: f} }

// MetaStr wraps a string tag as a record operand.
func MetaStr(s string) MetaOperand { return MetaOperand{Kind: MetaString, Str: s} }

// MetaI32 wraps a 32-bit integer as a record operand.
func MetaI32(v int64) MetaOperand { return MetaOperand{Kind: MetaInt, Int: v} }

// NewModule creates an empty module.
func NewModule(source string) *Module {
	return &Module{Source: source}
}

// Func looks a function up by name.
func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Module) index(f *Func) int {
	for i, cur := range m.Funcs {
		if cur == f {
			return i
		}
	}
	return -1
}

// Definitions returns a snapshot of the functions that have a body.
func (m *Module) Definitions() []*Func {
	out := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if !f.IsDeclaration() {
			out = append(out, f)
		}
	}
	return out
}

// AddFunc appends f. Names must stay unique.
func (m *Module) AddFunc(f *Func) error {
	if m.Func(f.Name) != nil {
		return fmt.Errorf("%w: @%s", ErrDuplicateSymbol, f.Name)
	}
	f.Parent = m
	m.Funcs = append(m.Funcs, f)
	return nil
}

// Rename gives f a new name unless another function already holds it.
func (m *Module) Rename(f *Func, name string) error {
	if f.Name == name {
		return nil
	}
	if other := m.Func(name); other != nil {
		return fmt.Errorf("%w: @%s (renaming @%s)", ErrDuplicateSymbol, name, f.Name)
	}
	f.Name = name
	return nil
}

// Users returns the live functions, other than f, that reference f.
func (m *Module) Users(f *Func) []*Func {
	var users []*Func
	for _, g := range m.Funcs {
		if g != f && g.References(f) {
			users = append(users, g)
		}
	}
	return users
}

func (m *Module) referencedByTable(f *Func) bool {
	for _, t := range m.Tables {
		for _, r := range t.Records {
			for _, op := range r.Operands {
				if op.Kind == MetaFunc && op.Func == f {
					return true
				}
			}
		}
	}
	return false
}

// RemoveFunc drops f. It refuses while another live function or a
// descriptor record still refers to f.
func (m *Module) RemoveFunc(f *Func) error {
	idx := m.index(f)
	if idx < 0 {
		return fmt.Errorf("%w: @%s", ErrNotInModule, f.Name)
	}
	if users := m.Users(f); len(users) > 0 {
		return fmt.Errorf("%w: @%s is called from @%s", ErrFuncInUse, f.Name, users[0].Name)
	}
	if m.referencedByTable(f) {
		return fmt.Errorf("%w: @%s is listed in a descriptor table", ErrFuncInUse, f.Name)
	}
	m.Funcs = append(m.Funcs[:idx], m.Funcs[idx+1:]...)
	f.Parent = nil
	return nil
}

// ReplaceFunc installs repl in old's position, redirects every reference to
// old (calls in live functions, repl itself, descriptor records) and then
// drops old. repl must be fully built before the call.
func (m *Module) ReplaceFunc(old, repl *Func) error {
	idx := m.index(old)
	if idx < 0 {
		return fmt.Errorf("%w: @%s", ErrNotInModule, old.Name)
	}
	if m.index(repl) >= 0 {
		return fmt.Errorf("%w: @%s is already a member", ErrDuplicateSymbol, repl.Name)
	}
	if other := m.Func(repl.Name); other != nil && other != old {
		return fmt.Errorf("%w: @%s", ErrDuplicateSymbol, repl.Name)
	}
	repl.Parent = m
	m.Funcs = append(m.Funcs, nil)
	copy(m.Funcs[idx+1:], m.Funcs[idx:])
	m.Funcs[idx] = repl
	for _, g := range m.Funcs {
		if g != old {
			g.ReplaceAllUses(old, repl)
		}
	}
	for _, t := range m.Tables {
		for _, r := range t.Records {
			for i := range r.Operands {
				if r.Operands[i].Kind == MetaFunc && r.Operands[i].Func == old {
					r.Operands[i].Func = repl
				}
			}
		}
	}
	return m.RemoveFunc(old)
}

// Table returns the named table, or nil.
func (m *Module) Table(name string) *Table {
	for _, t := range m.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// AppendRecord adds a record to the named table, creating it on first use.
func (m *Module) AppendRecord(table string, rec Record) {
	t := m.Table(table)
	if t == nil {
		t = &Table{Name: table}
		m.Tables = append(m.Tables, t)
	}
	t.Records = append(t.Records, rec)
}

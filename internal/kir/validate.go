package kir

import (
	"errors"
	"fmt"
)

// Validate checks module invariants.
// Returns error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	seen := make(map[string]struct{}, len(m.Funcs))
	for _, f := range m.Funcs {
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("@%s: %w", f.Name, ErrDuplicateSymbol))
		}
		seen[f.Name] = struct{}{}
		if f.Parent != m {
			errs = append(errs, fmt.Errorf("@%s: parent is not this module", f.Name))
		}
		if err := validateFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	if err := validateTables(m); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateFunc(m *Module, f *Func) error {
	var errs []error

	// 1. Check all blocks terminated
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}

	// 2. Check operands and targets belong to this function or the module
	if err := validateOperands(m, f); err != nil {
		errs = append(errs, err)
	}

	// 3. Check returns against the declared result type
	if err := validateReturns(f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateBlocksTerminated checks that every block ends with exactly one terminator.
func validateBlocksTerminated(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Ident()))
			continue
		}
		for _, in := range b.Instrs[:len(b.Instrs)-1] {
			if in.Op.IsTerminator() {
				errs = append(errs, fmt.Errorf("%s: terminator %s in the middle of the block", b.Ident(), in.Op))
			}
		}
	}
	return errors.Join(errs...)
}

func validateOperands(m *Module, f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if b.Parent != f {
			errs = append(errs, fmt.Errorf("%s: parent is not @%s", b.Ident(), f.Name))
		}
		for _, in := range b.Instrs {
			if in.Parent != b {
				errs = append(errs, fmt.Errorf("%s: %s %s has stale parent", b.Ident(), in.Op, in.Ident()))
			}
			for i, op := range in.Operands {
				if err := checkOperand(m, f, op); err != nil {
					errs = append(errs, fmt.Errorf("%s: %s operand %d: %w", b.Ident(), in.Op, i, err))
				}
			}
			for _, t := range in.Targets {
				if t == nil || t.Parent != f {
					errs = append(errs, fmt.Errorf("%s: %s targets a foreign block", b.Ident(), in.Op))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func checkOperand(m *Module, f *Func, op Value) error {
	switch v := op.(type) {
	case nil:
		return errors.New("nil operand")
	case *Param:
		if v.Parent != f {
			return fmt.Errorf("parameter %s belongs to another function", v.Ident())
		}
	case *Instr:
		if v.Parent == nil {
			return fmt.Errorf("%s refers to a detached instruction", v.Ident())
		}
		if v.Parent.Parent != f {
			return fmt.Errorf("%s belongs to another function", v.Ident())
		}
	case *Func:
		if v.Parent != m {
			return fmt.Errorf("%s is not a member of the module", v.Ident())
		}
	}
	return nil
}

func validateReturns(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != OpRet {
			continue
		}
		hasValue := len(term.Operands) > 0
		if f.RetType.IsVoid() && hasValue {
			errs = append(errs, fmt.Errorf("%s: returns a value from a void function", b.Ident()))
		}
		if !f.RetType.IsVoid() && !hasValue {
			errs = append(errs, fmt.Errorf("%s: missing return value of type %s", b.Ident(), f.RetType))
		}
	}
	return errors.Join(errs...)
}

func validateTables(m *Module) error {
	var errs []error
	for _, t := range m.Tables {
		for i, r := range t.Records {
			for _, op := range r.Operands {
				if op.Kind == MetaFunc && (op.Func == nil || op.Func.Parent != m) {
					errs = append(errs, fmt.Errorf("table %s record %d: dangling function reference", t.Name, i))
				}
			}
		}
	}
	return errors.Join(errs...)
}

package kir

import "errors"

var (
	// ErrFuncInUse is returned when removing a function that a live function still references.
	ErrFuncInUse = errors.New("function still referenced")
	// ErrDuplicateSymbol is returned when two functions would share a name.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrUnmappedOperand is returned by CloneInto for a local operand with no mapping.
	ErrUnmappedOperand = errors.New("unmapped operand")
	// ErrNotInBlock is returned when an instruction is not where the caller expects.
	ErrNotInBlock = errors.New("instruction not in block")
	// ErrNotInModule is returned for a function that is not a member of the module.
	ErrNotInModule = errors.New("function not in module")
)

package kir

import "fmt"

// Block is a basic block: straight-line instructions ending in a terminator.
type Block struct {
	Name   string
	Instrs []*Instr
	Parent *Func
}

func (b *Block) Ident() string { return "%" + b.Name }

// Append adds in at the end of the block and returns it.
func (b *Block) Append(in *Instr) *Instr {
	in.Parent = b
	b.Instrs = append(b.Instrs, in)
	return in
}

// Terminator returns the block terminator, or nil for an unterminated block.
func (b *Block) Terminator() *Instr {
	if b == nil || len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

// Terminated reports whether the block ends with a terminator.
func (b *Block) Terminated() bool {
	return b.Terminator() != nil
}

// Index returns the position of in inside the block, or -1.
func (b *Block) Index(in *Instr) int {
	for i, cur := range b.Instrs {
		if cur == in {
			return i
		}
	}
	return -1
}

// InsertBefore splices in immediately before at.
func (b *Block) InsertBefore(in, at *Instr) error {
	idx := b.Index(at)
	if idx < 0 {
		return fmt.Errorf("%w: %s in %s", ErrNotInBlock, at.Ident(), b.Ident())
	}
	in.Parent = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[idx+1:], b.Instrs[idx:])
	b.Instrs[idx] = in
	return nil
}

// Detach unlinks in from the block without dropping its operands. A detached
// instruction no longer counts as a user of anything.
func (b *Block) Detach(in *Instr) bool {
	idx := b.Index(in)
	if idx < 0 {
		return false
	}
	b.Instrs = append(b.Instrs[:idx], b.Instrs[idx+1:]...)
	in.Parent = nil
	return true
}

// Erase unlinks in and drops its operand references.
func (b *Block) Erase(in *Instr) bool {
	if !b.Detach(in) {
		return false
	}
	in.Operands = nil
	in.Targets = nil
	return true
}

// Replace puts repl in old's slot and erases old.
func (b *Block) Replace(old, repl *Instr) error {
	idx := b.Index(old)
	if idx < 0 {
		return fmt.Errorf("%w: %s in %s", ErrNotInBlock, old.Ident(), b.Ident())
	}
	repl.Parent = b
	b.Instrs[idx] = repl
	old.Parent = nil
	old.Operands = nil
	old.Targets = nil
	return nil
}

package kir

import "fmt"

// ValueMap maps values and blocks of a source function onto their copies.
type ValueMap struct {
	values map[Value]Value
	blocks map[*Block]*Block
}

// NewValueMap returns an empty mapping.
func NewValueMap() *ValueMap {
	return &ValueMap{
		values: make(map[Value]Value),
		blocks: make(map[*Block]*Block),
	}
}

// Set records that old is represented by repl in the clone.
func (vm *ValueMap) Set(old, repl Value) {
	vm.values[old] = repl
}

// Lookup returns the mapping for v. Module-level values map to themselves.
func (vm *ValueMap) Lookup(v Value) (Value, bool) {
	if !isLocal(v) {
		return v, true
	}
	repl, ok := vm.values[v]
	return repl, ok
}

// Block returns the copy of b.
func (vm *ValueMap) Block(b *Block) (*Block, bool) {
	nb, ok := vm.blocks[b]
	return nb, ok
}

// Len returns the number of mapped values.
func (vm *ValueMap) Len() int { return len(vm.values) }

// MapParams establishes the positional parameter mapping src -> dst.
func (vm *ValueMap) MapParams(src, dst *Func) error {
	if len(src.Params) != len(dst.Params) {
		return fmt.Errorf("parameter count mismatch: @%s has %d, @%s has %d",
			src.Name, len(src.Params), dst.Name, len(dst.Params))
	}
	for i, p := range src.Params {
		vm.Set(p, dst.Params[i])
	}
	return nil
}

// CloneInto copies every block and instruction of src into dst, preserving
// order and resolving local operands through vm. The caller maps the
// parameters first. Blocks and instructions are created before any operand
// is resolved so that forward references (phis, back edges) work.
func CloneInto(dst, src *Func, vm *ValueMap) error {
	for _, b := range src.Blocks {
		nb := dst.NewBlock(b.Name)
		vm.blocks[b] = nb
		for _, in := range b.Instrs {
			c := &Instr{
				Op:       in.Op,
				Name:     in.Name,
				Typ:      in.Typ,
				ElemType: in.ElemType,
				Pred:     in.Pred,
				InBounds: in.InBounds,
			}
			if len(in.Attachments) > 0 {
				c.Attachments = append([]Attachment(nil), in.Attachments...)
			}
			nb.Append(c)
			vm.Set(in, c)
		}
	}
	for _, b := range src.Blocks {
		nb := vm.blocks[b]
		for i, in := range b.Instrs {
			c := nb.Instrs[i]
			if len(in.Operands) > 0 {
				c.Operands = make([]Value, len(in.Operands))
				for j, op := range in.Operands {
					mapped, ok := vm.Lookup(op)
					if !ok {
						return fmt.Errorf("@%s: %s operand %d (%s): %w",
							src.Name, in.Op, j, op.Ident(), ErrUnmappedOperand)
					}
					c.Operands[j] = mapped
				}
			}
			if len(in.Targets) > 0 {
				c.Targets = make([]*Block, len(in.Targets))
				for j, t := range in.Targets {
					mapped, ok := vm.blocks[t]
					if !ok {
						return fmt.Errorf("@%s: %s target %s is not a block of the function",
							src.Name, in.Op, t.Ident())
					}
					c.Targets[j] = mapped
				}
			}
		}
	}
	return nil
}

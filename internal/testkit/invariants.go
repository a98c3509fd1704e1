// Package testkit holds IR fixtures and structural checks shared by tests.
package testkit

import (
	"fmt"

	"kernlower/internal/kir"
)

// CheckIsomorphic verifies that b has the same control-flow shape as a:
// 1) same number of blocks, in the same order
// 2) same instruction count and opcode sequence per block
// 3) branch targets and phi predecessors correspond under the block order
// 4) parameters correspond positionally and local operands map one to one
func CheckIsomorphic(a, b *kir.Func) error {
	if a == nil || b == nil {
		return fmt.Errorf("nil function")
	}
	if len(a.Params) != len(b.Params) {
		return fmt.Errorf("param count: %d vs %d", len(a.Params), len(b.Params))
	}

	// 1) block lists
	if len(a.Blocks) != len(b.Blocks) {
		return fmt.Errorf("block count: %d vs %d", len(a.Blocks), len(b.Blocks))
	}
	blockIdx := func(f *kir.Func, blk *kir.Block) int {
		for i, cur := range f.Blocks {
			if cur == blk {
				return i
			}
		}
		return -1
	}

	vmap := make(map[kir.Value]kir.Value)
	for i, p := range a.Params {
		vmap[p] = b.Params[i]
	}
	for bi, ba := range a.Blocks {
		bb := b.Blocks[bi]
		// 2) instruction lists
		if len(ba.Instrs) != len(bb.Instrs) {
			return fmt.Errorf("block %d (%s): %d vs %d instructions", bi, ba.Name, len(ba.Instrs), len(bb.Instrs))
		}
		for ii, ia := range ba.Instrs {
			ib := bb.Instrs[ii]
			if ia.Op != ib.Op {
				return fmt.Errorf("block %d instr %d: %s vs %s", bi, ii, ia.Op, ib.Op)
			}
			vmap[ia] = ib
		}
	}

	for bi, ba := range a.Blocks {
		bb := b.Blocks[bi]
		for ii, ia := range ba.Instrs {
			ib := bb.Instrs[ii]
			// 3) targets
			if len(ia.Targets) != len(ib.Targets) {
				return fmt.Errorf("block %d instr %d: %d vs %d targets", bi, ii, len(ia.Targets), len(ib.Targets))
			}
			for ti := range ia.Targets {
				if blockIdx(a, ia.Targets[ti]) != blockIdx(b, ib.Targets[ti]) {
					return fmt.Errorf("block %d instr %d: target %d differs", bi, ii, ti)
				}
			}
			// 4) operands
			if len(ia.Operands) != len(ib.Operands) {
				return fmt.Errorf("block %d instr %d: %d vs %d operands", bi, ii, len(ia.Operands), len(ib.Operands))
			}
			for oi, op := range ia.Operands {
				want, local := vmap[op]
				if !local {
					want = op
				}
				if ib.Operands[oi] != want {
					return fmt.Errorf("block %d instr %d operand %d: %s does not map to %s", bi, ii, oi, op.Ident(), ib.Operands[oi].Ident())
				}
			}
		}
	}
	return nil
}

// CountOps returns how many attached instructions of each opcode f has.
func CountOps(f *kir.Func) map[kir.Opcode]int {
	counts := make(map[kir.Opcode]int)
	for _, in := range f.AllInstrs() {
		counts[in.Op]++
	}
	return counts
}

// InstrCount returns the number of attached instructions in f.
func InstrCount(f *kir.Func) int {
	return len(f.AllInstrs())
}

// CountMeta returns how many attachments of the given kinds remain in f.
func CountMeta(f *kir.Func, kinds ...string) int {
	n := 0
	for _, in := range f.AllInstrs() {
		for _, a := range in.Attachments {
			for _, k := range kinds {
				if a.Kind == k {
					n++
				}
			}
		}
	}
	return n
}

package kir_test

import (
	"errors"
	"testing"

	"kernlower/internal/kir"
)

// loop builds a counting loop with a phi and a back edge.
func loop() *kir.Func {
	n := kir.NewParam("n", kir.I32)
	f := kir.NewFunc("count", kir.I32, n)
	entry := f.NewBlock("entry")
	body := f.NewBlock("body")
	exit := f.NewBlock("exit")

	entry.Append(kir.NewBr(body))
	phi := body.Append(kir.NewPhi(kir.I32))
	phi.Name = "i"
	next := body.Append(kir.NewBinary(kir.OpAdd, phi, kir.ConstInt(kir.I32, 1)))
	next.Name = "next"
	cmp := body.Append(kir.NewICmp("slt", next, n))
	body.Append(kir.NewCondBr(cmp, body, exit))
	phi.AddIncoming(kir.ConstInt(kir.I32, 0), entry)
	phi.AddIncoming(next, body)
	exit.Append(kir.NewRet(next))
	return f
}

func TestCloneIntoMapsForwardReferences(t *testing.T) {
	src := loop()
	dst := kir.NewFunc("count2", kir.I32, kir.NewParam("n", kir.I32))
	vm := kir.NewValueMap()
	if err := vm.MapParams(src, dst); err != nil {
		t.Fatalf("MapParams: %v", err)
	}
	if err := kir.CloneInto(dst, src, vm); err != nil {
		t.Fatalf("CloneInto: %v", err)
	}
	if len(dst.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(dst.Blocks))
	}
	phi := dst.Blocks[1].Instrs[0]
	if phi.Targets[1] != dst.Blocks[1] {
		t.Errorf("phi predecessor not remapped")
	}
	if phi.Operands[1] != dst.Blocks[1].Instrs[1] {
		t.Errorf("phi back-edge value not remapped")
	}
	cmp := dst.Blocks[1].Instrs[2]
	if cmp.Operands[1] != dst.Params[0] {
		t.Errorf("parameter not remapped")
	}
	for _, in := range dst.AllInstrs() {
		for _, op := range in.Operands {
			if p, ok := op.(*kir.Param); ok && p.Parent != dst {
				t.Errorf("%s still refers to a source parameter", in.Op)
			}
			if i, ok := op.(*kir.Instr); ok && i.Parent.Parent != dst {
				t.Errorf("%s still refers to a source instruction", in.Op)
			}
		}
	}
}

func TestCloneIntoSharesConstants(t *testing.T) {
	src := loop()
	dst := kir.NewFunc("count2", kir.I32, kir.NewParam("n", kir.I32))
	vm := kir.NewValueMap()
	_ = vm.MapParams(src, dst)
	if err := kir.CloneInto(dst, src, vm); err != nil {
		t.Fatalf("CloneInto: %v", err)
	}
	if src.Blocks[1].Instrs[1].Operands[1] != dst.Blocks[1].Instrs[1].Operands[1] {
		t.Errorf("constant was copied instead of shared")
	}
}

func TestCloneIntoUnmappedParam(t *testing.T) {
	src := loop()
	dst := kir.NewFunc("count2", kir.I32)
	err := kir.CloneInto(dst, src, kir.NewValueMap())
	if !errors.Is(err, kir.ErrUnmappedOperand) {
		t.Fatalf("expected ErrUnmappedOperand, got %v", err)
	}
}

func TestMapParamsCountMismatch(t *testing.T) {
	src := loop()
	dst := kir.NewFunc("bad", kir.I32)
	if err := kir.NewValueMap().MapParams(src, dst); err == nil {
		t.Fatalf("expected error for mismatched parameter counts")
	}
}

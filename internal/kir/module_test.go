package kir_test

import (
	"errors"
	"testing"

	"kernlower/internal/kir"
)

func callerCallee(t *testing.T) (*kir.Module, *kir.Func, *kir.Func) {
	t.Helper()
	m := kir.NewModule("m.ll")
	callee := kir.NewFunc("callee", kir.I32, kir.NewParam("x", kir.I32))
	cb := callee.NewBlock("entry")
	cb.Append(kir.NewRet(callee.Params[0]))

	caller := kir.NewFunc("caller", kir.Void)
	b := caller.NewBlock("entry")
	b.Append(kir.NewCall(callee, kir.ConstInt(kir.I32, 7)))
	b.Append(kir.NewRet(nil))

	for _, f := range []*kir.Func{caller, callee} {
		if err := m.AddFunc(f); err != nil {
			t.Fatalf("AddFunc(%s): %v", f.Name, err)
		}
	}
	return m, caller, callee
}

func TestAddFuncRejectsDuplicate(t *testing.T) {
	m, _, _ := callerCallee(t)
	err := m.AddFunc(kir.NewFunc("callee", kir.Void))
	if !errors.Is(err, kir.ErrDuplicateSymbol) {
		t.Fatalf("expected ErrDuplicateSymbol, got %v", err)
	}
}

func TestRemoveFuncRefusesLiveCallee(t *testing.T) {
	m, caller, callee := callerCallee(t)
	if err := m.RemoveFunc(callee); !errors.Is(err, kir.ErrFuncInUse) {
		t.Fatalf("expected ErrFuncInUse, got %v", err)
	}
	if err := m.RemoveFunc(caller); err != nil {
		t.Fatalf("RemoveFunc(caller): %v", err)
	}
	if err := m.RemoveFunc(callee); err != nil {
		t.Fatalf("RemoveFunc(callee) after caller is gone: %v", err)
	}
	if len(m.Funcs) != 0 {
		t.Fatalf("expected empty module, got %d funcs", len(m.Funcs))
	}
}

func TestRemoveFuncRefusesTableReference(t *testing.T) {
	m, caller, _ := callerCallee(t)
	m.AppendRecord("kernels", kir.Record{Operands: []kir.MetaOperand{kir.FuncRef(caller)}})
	if err := m.RemoveFunc(caller); !errors.Is(err, kir.ErrFuncInUse) {
		t.Fatalf("expected ErrFuncInUse, got %v", err)
	}
}

func TestReplaceFuncRedirectsEverything(t *testing.T) {
	m, caller, callee := callerCallee(t)
	m.AppendRecord("kernels", kir.Record{Operands: []kir.MetaOperand{kir.FuncRef(callee)}})

	repl := kir.NewFunc("callee", kir.I32, kir.NewParam("x", kir.I32))
	rb := repl.NewBlock("entry")
	// self reference through the old function must follow the swap
	rb.Append(kir.NewCall(callee, repl.Params[0]))
	rb.Append(kir.NewRet(repl.Params[0]))

	if err := m.ReplaceFunc(callee, repl); err != nil {
		t.Fatalf("ReplaceFunc: %v", err)
	}
	if got := m.Func("callee"); got != repl {
		t.Fatalf("lookup returned %p, want replacement %p", got, repl)
	}
	if m.Funcs[1] != repl {
		t.Errorf("replacement not at the original position")
	}
	if got := caller.Entry().Instrs[0].Callee(); got != repl {
		t.Errorf("caller still calls the old function")
	}
	if got := rb.Instrs[0].Callee(); got != repl {
		t.Errorf("self call not redirected")
	}
	if rec := m.Table("kernels").Records[0]; rec.Operands[0].Func != repl {
		t.Errorf("table record not redirected")
	}
	if callee.Parent != nil {
		t.Errorf("old function still has a parent")
	}
	if err := kir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRenameCollision(t *testing.T) {
	m, caller, _ := callerCallee(t)
	if err := m.Rename(caller, "callee"); !errors.Is(err, kir.ErrDuplicateSymbol) {
		t.Fatalf("expected ErrDuplicateSymbol, got %v", err)
	}
	if err := m.Rename(caller, "main"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if m.Func("main") != caller {
		t.Fatalf("renamed function not found")
	}
}

func TestDetachedInstructionHasNoUses(t *testing.T) {
	_, caller, callee := callerCallee(t)
	call := caller.Entry().Instrs[0]
	if len(caller.Uses(callee)) != 1 {
		t.Fatalf("expected one use of callee")
	}
	if !caller.Entry().Detach(call) {
		t.Fatalf("Detach failed")
	}
	if len(caller.Uses(callee)) != 0 {
		t.Errorf("detached call still counted as a use")
	}
	if call.Callee() != callee {
		t.Errorf("detach dropped operands")
	}
}

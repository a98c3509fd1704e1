package lower_test

import (
	"testing"

	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/testkit"
)

func TestLowerSignatureArrayPreset(t *testing.T) {
	f, _ := testkit.KernelFunc("foo", testkit.DecodeHelper())
	f.Linkage = kir.LinkageInternal

	low, err := lower.LowerSignature(f, lower.ArrayLoweringOptions)
	if err != nil {
		t.Fatalf("LowerSignature: %v", err)
	}
	nf := low.Func
	if nf == f || low.Original != f {
		t.Fatalf("expected a fresh clone with Original set")
	}
	if nf.Name != "foo" || nf.Linkage != kir.LinkageInternal || nf.Variadic != f.Variadic {
		t.Errorf("name/linkage/variadic not preserved: %s %s %v", nf.Name, nf.Linkage, nf.Variadic)
	}
	if !nf.RetType.IsVoid() {
		t.Errorf("expected void result, got %s", nf.RetType)
	}
	if len(nf.Params) != len(f.Params) {
		t.Fatalf("param count %d, want %d", len(nf.Params), len(f.Params))
	}
	if want := kir.PointerTo(kir.I64, 1); !nf.Params[0].Typ.Equal(want) {
		t.Errorf("handle param lowered to %s, want %s", nf.Params[0].Typ, want)
	}
	if !nf.Params[1].Typ.Equal(kir.I32) {
		t.Errorf("scalar param changed to %s", nf.Params[1].Typ)
	}
	if len(low.Handles) != 1 || low.Handles[0] != nf.Params[0] {
		t.Errorf("handles not reported")
	}
	if nf.Parent != nil {
		t.Errorf("clone must not be inserted by LowerSignature")
	}
	if err := testkit.CheckIsomorphic(f, nf); err != nil {
		t.Fatalf("clone not isomorphic: %v", err)
	}
	if !lower.IsArrayHandle(f.Params[0].Typ) {
		t.Errorf("original signature modified")
	}
}

func TestLowerSignatureRetypePreset(t *testing.T) {
	f, _ := testkit.KernelFunc("foo", testkit.DecodeHelper())
	low, err := lower.LowerSignature(f, lower.RetypeOptions)
	if err != nil {
		t.Fatalf("LowerSignature: %v", err)
	}
	if !low.Func.RetType.Equal(kir.I32) {
		t.Errorf("retype preset must keep the result, got %s", low.Func.RetType)
	}
	if got := low.Func.Params[0].Typ.AddrSpace; got != 0 {
		t.Errorf("retype preset uses address space %d, want 0", got)
	}
}

func TestLowerSignatureBranchyBody(t *testing.T) {
	a := kir.NewParam("A", testkit.HandlePtr())
	n := kir.NewParam("n", kir.I64)
	f := kir.NewFunc("loop", kir.Void, a, n)
	entry := f.NewBlock("entry")
	body := f.NewBlock("body")
	exit := f.NewBlock("exit")
	entry.Append(kir.NewBr(body))
	phi := body.Append(kir.NewPhi(kir.I64))
	next := body.Append(kir.NewBinary(kir.OpAdd, phi, kir.ConstInt(kir.I64, 1)))
	cmp := body.Append(kir.NewICmp("slt", next, n))
	body.Append(kir.NewCondBr(cmp, body, exit))
	phi.AddIncoming(kir.ConstInt(kir.I64, 0), entry)
	phi.AddIncoming(next, body)
	exit.Append(kir.NewRet(nil))

	low, err := lower.LowerSignature(f, lower.ArrayLoweringOptions)
	if err != nil {
		t.Fatalf("LowerSignature: %v", err)
	}
	if err := testkit.CheckIsomorphic(f, low.Func); err != nil {
		t.Fatalf("clone not isomorphic: %v", err)
	}
}

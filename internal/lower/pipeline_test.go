package lower_test

import (
	"context"
	"errors"
	"testing"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/observ"
	"kernlower/internal/testkit"
)

func runDefault(t *testing.T, m *kir.Module, tweak func(*lower.Options)) (*lower.Result, *diag.Bag, error) {
	t.Helper()
	bag := diag.NewBag(32)
	opts := lower.DefaultOptions()
	opts.Reporter = diag.BagReporter{Bag: bag}
	opts.File = m.Source
	if tweak != nil {
		tweak(&opts)
	}
	res, err := lower.Run(context.Background(), m, opts)
	return res, bag, err
}

func TestRunSingleKernel(t *testing.T) {
	m := testkit.ScenarioA()
	timer := observ.NewTimer()
	res, bag, err := runDefault(t, m, func(o *lower.Options) { o.Timer = timer })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", diag.FormatShort(bag.Items(), true))
	}
	if res.State != lower.StateDone || res.Module != m {
		t.Fatalf("result state %s", res.State)
	}
	if m.Func("julia_f64_foo") != nil {
		t.Errorf("mangled function survived")
	}
	foo := m.Func("foo")
	if foo == nil {
		t.Fatalf("@foo missing; module has %d functions", len(m.Funcs))
	}
	if len(foo.Params) != 2 ||
		!foo.Params[0].Typ.Equal(kir.PointerTo(kir.I64, 1)) ||
		!foo.Params[1].Typ.Equal(kir.I32) ||
		!foo.RetType.IsVoid() {
		t.Fatalf("@foo signature = %s", foo.Sig())
	}
	if n := testkit.CountMeta(foo, kir.MetaDebugLoc, kir.MetaTBAA); n != 0 {
		t.Errorf("%d dbg/tbaa attachments left", n)
	}
	ops := testkit.CountOps(foo)
	if ops[kir.OpCall] != 0 || ops[kir.OpBitCast] != 0 || ops[kir.OpGEP] != 1 || ops[kir.OpLoad] != 1 {
		t.Errorf("opcode counts after lowering: %v", ops)
	}
	if term := foo.Entry().Terminator(); term.Op != kir.OpRet || len(term.Operands) != 0 {
		t.Errorf("@foo must end in ret void")
	}

	for _, name := range []string{lower.GenericKernelTable, lower.DeviceKernelTable} {
		tab := m.Table(name)
		if tab == nil || len(tab.Records) != 1 || tab.Records[0].Operands[0].Func != foo {
			t.Errorf("table %s does not list @foo exactly once", name)
		}
	}

	if len(res.Lowered) != 1 || res.Lowered[0] != foo {
		t.Errorf("Lowered = %v", res.Lowered)
	}
	rep := res.Reports[0]
	if rep.Name != "foo" || rep.Original != "julia_f64_foo" || rep.Chains != 1 || rep.Handles != 1 || rep.Stripped != 5 || rep.Returns != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(res.Declarations) != 1 || res.Declarations[0] != "jl_array_data" {
		t.Errorf("Declarations = %v", res.Declarations)
	}
	if len(res.Linked) != 1 || res.Linked[0] != lower.DeviceIDIntrinsic || m.Func(lower.DeviceIDIntrinsic) == nil {
		t.Errorf("builtin library not linked: %v", res.Linked)
	}

	seen := map[string]bool{}
	for _, p := range timer.Report().Phases {
		seen[p.Name] = true
	}
	for _, name := range []string{"rename", "link", "lower", "lower-func", "validate"} {
		if !seen[name] {
			t.Errorf("timer phase %q missing", name)
		}
	}
	if err := kir.Validate(m); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRunRetargetsCallToLoweredCallee(t *testing.T) {
	m := testkit.ScenarioB()
	originalBar := m.Func("julia_bar_1")
	res, bag, err := runDefault(t, m, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	caller, bar := m.Func("caller"), m.Func("bar")
	if caller == nil || bar == nil {
		t.Fatalf("canonical functions missing")
	}
	if bar == originalBar || originalBar.Parent != nil {
		t.Errorf("@bar was not replaced")
	}
	call := caller.Entry().Instrs[0]
	if call.Callee() != bar {
		t.Fatalf("caller still calls %v", call.Operands[0])
	}
	if !call.Type().IsVoid() {
		t.Errorf("call to void @bar typed %s", call.Type())
	}
	if bag.HasWarnings() {
		t.Errorf("unused result must not warn: %s", diag.FormatShort(bag.Items(), false))
	}
	if len(res.Lowered) != 2 || len(lower.Kernels(m)) != 2 {
		t.Errorf("expected both functions lowered and listed")
	}
}

func TestRunUnresolvedCall(t *testing.T) {
	res, bag, err := runDefault(t, testkit.ScenarioC(), nil)
	if res != nil {
		t.Errorf("failed run returned a result")
	}
	if !errors.Is(err, lower.ErrUnresolvedSymbol) {
		t.Fatalf("expected ErrUnresolvedSymbol, got %v", err)
	}
	var se *lower.StageError
	if !errors.As(err, &se) || se.Stage != lower.StageResolve || se.Func != "user" {
		t.Errorf("stage error = %+v", se)
	}
	var ue *lower.UnresolvedError
	if !errors.As(err, &ue) || len(ue.Calls) != 1 || ue.Calls[0].Canonical != "missing" {
		t.Errorf("unresolved error = %+v", ue)
	}
	if !bag.HasErrors() || bag.Items()[0].Code != diag.LowUnresolvedCall {
		t.Errorf("diagnostics = %s", diag.FormatShort(bag.Items(), true))
	}
}

func TestRunLibraryResolvesDeclaration(t *testing.T) {
	m := testkit.ScenarioC()
	lib := lower.LibraryFunc(func(context.Context) (*kir.Module, error) {
		l := kir.NewModule("support.ll")
		if err := l.AddFunc(definedFunc("missing", kir.I32)); err != nil {
			return nil, err
		}
		return l, nil
	})
	res, _, err := runDefault(t, m, func(o *lower.Options) { o.Library = lib })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	missing := m.Func("missing")
	if missing == nil || missing.IsDeclaration() {
		t.Fatalf("library definition not linked")
	}
	if lower.IsKernel(m, missing) {
		t.Errorf("linked library functions must not be lowered")
	}
	if call := m.Func("user").Entry().Instrs[0]; call.Callee() != missing {
		t.Errorf("call not resolved to the library definition")
	}
	if len(res.Linked) != 2 {
		t.Errorf("Linked = %v", res.Linked)
	}
}

func TestRunTwoKernels(t *testing.T) {
	var progress []string
	res, _, err := runDefault(t, testkit.ScenarioD(), func(o *lower.Options) {
		o.OnLowered = func(done, total int, name string) {
			if total != 2 {
				t.Errorf("total = %d", total)
			}
			progress = append(progress, name)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ks := lower.Kernels(res.Module)
	if len(ks) != 2 || ks[0].Name != "first" || ks[1].Name != "second" {
		t.Fatalf("kernels = %v", ks)
	}
	for _, k := range ks {
		if !k.Params[0].Typ.Equal(kir.PointerTo(kir.I64, 1)) {
			t.Errorf("@%s param 0 = %s", k.Name, k.Params[0].Typ)
		}
	}
	if len(progress) != 2 || progress[0] != "first" || progress[1] != "second" {
		t.Errorf("progress = %v", progress)
	}
}

func TestRunLinkFailureLeavesBodies(t *testing.T) {
	m := testkit.ScenarioA()
	boom := errors.New("boom")
	res, _, err := runDefault(t, m, func(o *lower.Options) {
		o.Library = lower.LibraryFunc(func(context.Context) (*kir.Module, error) { return nil, boom })
	})
	if res != nil || !errors.Is(err, lower.ErrLinkFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected link failure wrapping boom, got %v", err)
	}
	var se *lower.StageError
	if !errors.As(err, &se) || se.Stage != lower.StageLink {
		t.Errorf("stage error = %+v", se)
	}
	foo := m.Func("foo")
	if foo == nil || !lower.IsArrayHandle(foo.Params[0].Typ) {
		t.Fatalf("@foo body should be untouched after a link failure")
	}
	if testkit.CountOps(foo)[kir.OpCall] != 1 || m.Table(lower.GenericKernelTable) != nil {
		t.Errorf("@foo was partially lowered")
	}
}

func TestRunLibraryDuplicateDefinition(t *testing.T) {
	lib := lower.LibraryFunc(func(context.Context) (*kir.Module, error) {
		l := kir.NewModule("support.ll")
		return l, l.AddFunc(definedFunc("foo", kir.I32))
	})
	_, _, err := runDefault(t, testkit.ScenarioA(), func(o *lower.Options) { o.Library = lib })
	if !errors.Is(err, lower.ErrLinkFailed) || !errors.Is(err, kir.ErrDuplicateSymbol) {
		t.Fatalf("expected duplicate symbol link failure, got %v", err)
	}
}

func TestRunNameCollision(t *testing.T) {
	m := kir.NewModule("collide.ll")
	addAll(t, m, definedFunc("julia_foo_1", kir.I32), definedFunc("julia_foo_2", kir.I32))

	_, bag, err := runDefault(t, m, nil)
	if !errors.Is(err, lower.ErrNameCollision) {
		t.Fatalf("expected ErrNameCollision, got %v", err)
	}
	var se *lower.StageError
	if !errors.As(err, &se) || se.Stage != lower.StageRename || se.Func != "julia_foo_2" {
		t.Errorf("stage error = %+v", se)
	}
	if m.Func("julia_foo_1") == nil || m.Func("foo") != nil {
		t.Errorf("no function may be renamed when names collide")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.LowNameCollision {
		t.Errorf("diagnostics = %s", diag.FormatShort(bag.Items(), false))
	}
}

func TestRunMalformedChain(t *testing.T) {
	m := testkit.ScenarioA()
	foo := m.Func("julia_f64_foo")
	load := foo.Entry().Instrs[1]
	if err := foo.Entry().InsertBefore(kir.NewLoad(kir.I64, load), foo.Entry().Terminator()); err != nil {
		t.Fatal(err)
	}

	_, bag, err := runDefault(t, m, nil)
	if !errors.Is(err, lower.ErrUnexpectedChain) {
		t.Fatalf("expected ErrUnexpectedChain, got %v", err)
	}
	var se *lower.StageError
	if !errors.As(err, &se) || se.Stage != lower.StageRewrite || se.Func != "foo" {
		t.Errorf("stage error = %+v", se)
	}
	if bag.Len() == 0 || bag.Items()[0].Code != diag.LowUnexpectedChain {
		t.Errorf("diagnostics = %s", diag.FormatShort(bag.Items(), false))
	}
}

func TestRunDetachMode(t *testing.T) {
	res, _, err := runDefault(t, testkit.ScenarioD(), func(o *lower.Options) { o.DeadDecode = lower.DeadDecodeDetach })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, f := range res.Lowered {
		if testkit.CountOps(f)[kir.OpCall] != 0 {
			t.Errorf("@%s still has an attached decode call", f.Name)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := testkit.ScenarioA()
	res, err := lower.Run(ctx, m, lower.DefaultOptions())
	if res != nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	var se *lower.StageError
	if !errors.As(err, &se) || se.Stage != lower.StageRename {
		t.Errorf("stage error = %+v", se)
	}
	if m.Func("julia_f64_foo") == nil {
		t.Errorf("cancelled run renamed functions")
	}
}

func TestRunNilModule(t *testing.T) {
	if _, err := lower.Run(context.Background(), nil, lower.DefaultOptions()); err == nil {
		t.Fatal("expected error for nil module")
	}
}

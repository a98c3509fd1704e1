package lower_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/testkit"
)

func TestPassesSortedAndUnique(t *testing.T) {
	ps := lower.Passes()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
		if p.Summary == "" || p.Run == nil {
			t.Errorf("pass %s is incomplete", p.Name)
		}
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("passes not sorted: %v", names)
	}
	for _, want := range []string{"retype-arguments", "array-to-pointer", "strip-metadata", "normalize-calls", "emit-kernels", "lower-arrays"} {
		if _, ok := lower.Lookup(want); !ok {
			t.Errorf("pass %s not registered", want)
		}
	}
}

func TestParsePipeline(t *testing.T) {
	pl, err := lower.ParsePipeline(" strip-metadata, ,emit-kernels ")
	if err != nil {
		t.Fatalf("ParsePipeline: %v", err)
	}
	if len(pl) != 2 || pl[0].Name != "strip-metadata" || pl[1].Name != "emit-kernels" {
		t.Errorf("pipeline = %v", pl)
	}
	if _, err := lower.ParsePipeline("strip-metadata,inline,dce"); err == nil || !strings.Contains(err.Error(), "inline, dce") {
		t.Errorf("unknown passes not reported: %v", err)
	}
	if _, err := lower.ParsePipeline(" , "); err == nil {
		t.Errorf("empty pipeline accepted")
	}
}

func TestRunPassesStepwise(t *testing.T) {
	m := testkit.ScenarioA()
	pl, err := lower.ParsePipeline("retype-arguments,array-to-pointer,strip-metadata,normalize-calls,emit-kernels")
	if err != nil {
		t.Fatal(err)
	}
	if err := lower.RunPasses(context.Background(), m, pl, lower.DefaultOptions()); err != nil {
		t.Fatalf("RunPasses: %v", err)
	}
	foo := m.Func("julia_f64_foo")
	if foo == nil {
		t.Fatalf("standalone passes must not rename")
	}
	if !foo.Params[0].Typ.Equal(kir.PointerTo(kir.I64, 0)) || !foo.RetType.Equal(kir.I32) {
		t.Errorf("signature = %s", foo.Sig())
	}
	if testkit.CountOps(foo)[kir.OpCall] != 0 {
		t.Errorf("decode chain not collapsed")
	}
	if testkit.CountMeta(foo, lower.StrippedKinds...) != 0 {
		t.Errorf("attachments left")
	}
	if ks := lower.Kernels(m); len(ks) != 1 || ks[0] != foo {
		t.Errorf("kernels = %v", ks)
	}
}

func TestRunPassesStopsAtFirstError(t *testing.T) {
	pl, _ := lower.ParsePipeline("normalize-calls,emit-kernels")
	m := testkit.ScenarioC()
	err := lower.RunPasses(context.Background(), m, pl, lower.DefaultOptions())
	if !errors.Is(err, lower.ErrUnresolvedSymbol) || !strings.HasPrefix(err.Error(), "pass normalize-calls:") {
		t.Fatalf("expected wrapped unresolved error, got %v", err)
	}
	if m.Table(lower.GenericKernelTable) != nil {
		t.Errorf("passes after the failure ran")
	}
}

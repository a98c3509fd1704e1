package lower_test

import (
	"testing"

	"kernlower/internal/kir"
	"kernlower/internal/lower"
)

func TestEmitKernelDescriptors(t *testing.T) {
	m := kir.NewModule("k.ll")
	f := definedFunc("k", kir.Void)
	g := definedFunc("g", kir.Void)
	addAll(t, m, f, g)

	if !lower.EmitKernelDescriptors(m, f) {
		t.Fatalf("first emission reported no change")
	}
	if lower.EmitKernelDescriptors(m, f) {
		t.Errorf("second emission for the same function should be a no-op")
	}
	lower.EmitKernelDescriptors(m, g)

	gen := m.Table(lower.GenericKernelTable)
	dev := m.Table(lower.DeviceKernelTable)
	if gen == nil || dev == nil || len(gen.Records) != 2 || len(dev.Records) != 2 {
		t.Fatalf("tables = %+v", m.Tables)
	}
	rec := dev.Records[0].Operands
	if len(rec) != 3 || rec[0].Func != f || rec[1].Str != lower.KernelTag || rec[2].Int != lower.KernelFlag {
		t.Errorf("device annotation = %+v", rec)
	}
	ks := lower.Kernels(m)
	if len(ks) != 2 || ks[0] != f || ks[1] != g {
		t.Errorf("Kernels = %v", ks)
	}
	if !lower.IsKernel(m, g) || lower.IsKernel(kir.NewModule("empty"), g) {
		t.Errorf("IsKernel mismatch")
	}
}

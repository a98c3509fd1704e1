package lower

import "kernlower/internal/kir"

// Logical descriptor table names. The LLVM emitter maps them to the named
// metadata each device back end expects.
const (
	GenericKernelTable = "generic-kernel-list"
	DeviceKernelTable  = "device-kernel-annotations"
)

// KernelTag and KernelFlag form the device annotation {fn, "kernel", i32 1}.
const (
	KernelTag  = "kernel"
	KernelFlag = 1
)

// EmitKernelDescriptors advertises f in both descriptor tables. It reports
// false and does nothing when f is already listed.
func EmitKernelDescriptors(m *kir.Module, f *kir.Func) bool {
	if IsKernel(m, f) {
		return false
	}
	m.AppendRecord(GenericKernelTable, kir.Record{
		Operands: []kir.MetaOperand{kir.FuncRef(f)},
	})
	m.AppendRecord(DeviceKernelTable, kir.Record{
		Operands: []kir.MetaOperand{kir.FuncRef(f), kir.MetaStr(KernelTag), kir.MetaI32(KernelFlag)},
	})
	return true
}

// IsKernel reports whether f is listed in the generic kernel table.
func IsKernel(m *kir.Module, f *kir.Func) bool {
	t := m.Table(GenericKernelTable)
	if t == nil {
		return false
	}
	for _, r := range t.Records {
		if len(r.Operands) > 0 && r.Operands[0].Kind == kir.MetaFunc && r.Operands[0].Func == f {
			return true
		}
	}
	return false
}

// Kernels returns the functions of the generic kernel table in order.
func Kernels(m *kir.Module) []*kir.Func {
	t := m.Table(GenericKernelTable)
	if t == nil {
		return nil
	}
	out := make([]*kir.Func, 0, len(t.Records))
	for _, r := range t.Records {
		if len(r.Operands) > 0 && r.Operands[0].Kind == kir.MetaFunc {
			out = append(out, r.Operands[0].Func)
		}
	}
	return out
}

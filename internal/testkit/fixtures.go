package testkit

import "kernlower/internal/kir"

// HandleStruct is the managed-array handle aggregate.
var HandleStruct = kir.OpaqueStruct("jl_value_t")

// HandlePtr is the parameter type front ends use for arrays.
func HandlePtr() *kir.Type {
	return kir.PointerTo(HandleStruct, 0)
}

// DecodeHelper declares the runtime call that yields an array's data slot.
func DecodeHelper() *kir.Func {
	return kir.NewFunc("jl_array_data",
		kir.PointerTo(kir.PointerTo(kir.I64, 0), 0),
		kir.NewParam("a", HandlePtr()))
}

// Chain is one decode chain built by AppendDecodeChain.
type Chain struct {
	Decode, Load, Index, Cast, Consumer *kir.Instr
}

// AppendDecodeChain appends
//
//	%d = call i64** @jl_array_data(%jl_value_t* handle), !dbg
//	%p = load i64*, i64** %d, !tbaa
//	%e = getelementptr inbounds i64, i64* %p, i64 idx
//	%c = bitcast i64* %e to i64*
//	%v = load i64, i64* %c, !tbaa
//
// to b. The final load is the consumer.
func AppendDecodeChain(b *kir.Block, decode *kir.Func, handle, idx kir.Value, tag string) Chain {
	var c Chain
	c.Decode = b.Append(kir.NewCall(decode, handle))
	c.Decode.Name = tag + ".data"
	c.Decode.SetMeta(kir.MetaDebugLoc, "!1")

	c.Load = b.Append(kir.NewLoad(kir.PointerTo(kir.I64, 0), c.Decode))
	c.Load.Name = tag + ".ptr"
	c.Load.SetMeta(kir.MetaTBAA, "!2")

	c.Index = b.Append(kir.NewGEP(kir.I64, c.Load, idx))
	c.Index.Name = tag + ".elt"
	c.Index.InBounds = true

	c.Cast = b.Append(kir.NewBitCast(c.Index, kir.PointerTo(kir.I64, 0)))
	c.Cast.Name = tag + ".cast"

	c.Consumer = b.Append(kir.NewLoad(kir.I64, c.Cast))
	c.Consumer.Name = tag + ".val"
	c.Consumer.SetMeta(kir.MetaTBAA, "!2")
	c.Consumer.SetMeta(kir.MetaDebugLoc, "!3")
	return c
}

// KernelFunc builds
//
//	define i32 @name(%jl_value_t* %A, i32 %i) {
//	top:
//	  <decode chain on %A indexed by 0>
//	  ret i32 %i
//	}
func KernelFunc(name string, decode *kir.Func) (*kir.Func, Chain) {
	a := kir.NewParam("A", HandlePtr())
	i := kir.NewParam("i", kir.I32)
	f := kir.NewFunc(name, kir.I32, a, i)
	top := f.NewBlock("top")
	c := AppendDecodeChain(top, decode, a, kir.ConstInt(kir.I64, 0), "A")
	ret := top.Append(kir.NewRet(i))
	ret.SetMeta(kir.MetaDebugLoc, "!4")
	return f, c
}

// ScenarioA is one kernel julia_f64_foo(handle, i32) -> i32 with a single
// decode chain.
func ScenarioA() *kir.Module {
	m := kir.NewModule("scenario-a.ll")
	decode := DecodeHelper()
	mustAdd(m, decode)
	f, _ := KernelFunc("julia_f64_foo", decode)
	mustAdd(m, f)
	return m
}

// ScenarioB has julia_caller_2 calling julia_bar_1 by its mangled name.
func ScenarioB() *kir.Module {
	m := kir.NewModule("scenario-b.ll")

	x := kir.NewParam("x", kir.I32)
	bar := kir.NewFunc("julia_bar_1", kir.I32, x)
	bb := bar.NewBlock("top")
	sum := bb.Append(kir.NewBinary(kir.OpAdd, x, kir.ConstInt(kir.I32, 1)))
	sum.Name = "sum"
	bb.Append(kir.NewRet(sum))

	i := kir.NewParam("i", kir.I32)
	caller := kir.NewFunc("julia_caller_2", kir.I32, i)
	cb := caller.NewBlock("top")
	call := cb.Append(kir.NewCall(bar, i))
	call.Name = "r"
	call.SetMeta(kir.MetaDebugLoc, "!5")
	cb.Append(kir.NewRet(i))

	mustAdd(m, caller)
	mustAdd(m, bar)
	return m
}

// ScenarioC calls a function that only exists as a declaration.
func ScenarioC() *kir.Module {
	m := kir.NewModule("scenario-c.ll")
	missing := kir.NewFunc("julia_missing_7", kir.I32, kir.NewParam("", kir.I32))
	i := kir.NewParam("i", kir.I32)
	f := kir.NewFunc("julia_user_3", kir.I32, i)
	top := f.NewBlock("top")
	r := top.Append(kir.NewCall(missing, i))
	r.Name = "r"
	top.Append(kir.NewRet(r))
	mustAdd(m, missing)
	mustAdd(m, f)
	return m
}

// ScenarioD has two independent kernels.
func ScenarioD() *kir.Module {
	m := kir.NewModule("scenario-d.ll")
	decode := DecodeHelper()
	mustAdd(m, decode)
	f1, _ := KernelFunc("julia_first_10", decode)
	f2, _ := KernelFunc("julia_f32_second_11", decode)
	mustAdd(m, f1)
	mustAdd(m, f2)
	return m
}

func mustAdd(m *kir.Module, f *kir.Func) {
	if err := m.AddFunc(f); err != nil {
		panic(err)
	}
}

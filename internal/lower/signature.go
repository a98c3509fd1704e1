package lower

import (
	"fmt"

	"kernlower/internal/kir"
)

// SignatureOptions selects how handle parameters and the result are lowered.
type SignatureOptions struct {
	// AddrSpace tags the raw pointers that replace handle parameters.
	AddrSpace kir.AddrSpace
	// VoidReturn forces a void result; kernels report through pointer writes.
	VoidReturn bool
}

var (
	// RetypeOptions is the plain argument retyping: generic address space,
	// result kept.
	RetypeOptions = SignatureOptions{AddrSpace: 0}
	// ArrayLoweringOptions is used by Run: global device memory, void result.
	ArrayLoweringOptions = SignatureOptions{AddrSpace: 1, VoidReturn: true}
)

// Lowered is the result of signature lowering. Func is not yet a module
// member; the caller inserts it and removes Original exactly once.
type Lowered struct {
	Func     *kir.Func
	Original *kir.Func
	// Handles are the parameters of Func that replaced handle parameters.
	Handles []*kir.Param
}

// RawPointer is the parameter type that replaces a handle.
func RawPointer(space kir.AddrSpace) *kir.Type {
	return kir.PointerTo(kir.I64, space)
}

// LowerSignature clones f under a signature whose handle parameters are raw
// i64 pointers. Names, linkage, the variadic flag and the whole body carry
// over unchanged; the control-flow graph of the clone is isomorphic to f's.
func LowerSignature(f *kir.Func, opts SignatureOptions) (*Lowered, error) {
	params := make([]*kir.Param, len(f.Params))
	var handles []*kir.Param
	for i, p := range f.Params {
		typ := p.Typ
		if IsArrayHandle(typ) {
			typ = RawPointer(opts.AddrSpace)
		}
		params[i] = kir.NewParam(p.Name, typ)
		if IsArrayHandle(p.Typ) {
			handles = append(handles, params[i])
		}
	}
	ret := f.RetType
	if opts.VoidReturn {
		ret = kir.Void
	}
	nf := kir.NewFunc(f.Name, ret, params...)
	nf.Variadic = f.Variadic
	nf.Linkage = f.Linkage

	vm := kir.NewValueMap()
	if err := vm.MapParams(f, nf); err != nil {
		return nil, err
	}
	if err := kir.CloneInto(nf, f, vm); err != nil {
		return nil, fmt.Errorf("clone @%s: %w", f.Name, err)
	}
	return &Lowered{Func: nf, Original: f, Handles: handles}, nil
}

// RawPointerParams returns the parameters of f that are pointers to i64,
// the shape handle parameters have after lowering.
func RawPointerParams(f *kir.Func) []*kir.Param {
	var out []*kir.Param
	for _, p := range f.Params {
		if p.Typ.IsPointer() && p.Typ.Elem.Equal(kir.I64) {
			out = append(out, p)
		}
	}
	return out
}

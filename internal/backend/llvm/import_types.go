package llvm

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"kernlower/internal/kir"
)

func (im *importer) typ(t types.Type) (*kir.Type, error) {
	switch t := t.(type) {
	case nil:
		return kir.Void, nil
	case *types.VoidType:
		return kir.Void, nil
	case *types.LabelType:
		return kir.Label, nil
	case *types.IntType:
		w, err := safecast.Conv[uint32](t.BitSize)
		if err != nil {
			return nil, fmt.Errorf("integer width %d: %w", t.BitSize, err)
		}
		return kir.Int(w), nil
	case *types.FloatType:
		switch t.Kind {
		case types.FloatKindFloat:
			return kir.F32, nil
		case types.FloatKindDouble:
			return kir.F64, nil
		}
		return nil, fmt.Errorf("floating-point type %s", t)
	case *types.PointerType:
		space, err := safecast.Conv[kir.AddrSpace](uint64(t.AddrSpace))
		if err != nil {
			return nil, fmt.Errorf("address space %d: %w", t.AddrSpace, err)
		}
		if t.ElemType == nil {
			// Opaque "ptr" carries no element type; model it as i8*.
			return kir.PointerTo(kir.I8, space), nil
		}
		elem, err := im.typ(t.ElemType)
		if err != nil {
			return nil, err
		}
		return kir.PointerTo(elem, space), nil
	case *types.StructType:
		return im.structType(t)
	case *types.FuncType:
		ret, err := im.typ(t.RetType)
		if err != nil {
			return nil, err
		}
		params := make([]*kir.Type, 0, len(t.Params))
		for _, p := range t.Params {
			pt, err := im.typ(p)
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
		}
		return kir.FuncOf(ret, params, t.Variadic), nil
	}
	return nil, fmt.Errorf("type %s", t)
}

// structType interns named structs by tag before converting the fields so
// self-referential aggregates terminate.
func (im *importer) structType(t *types.StructType) (*kir.Type, error) {
	if t.TypeName != "" {
		if st, ok := im.structs[t.TypeName]; ok {
			return st, nil
		}
	}
	st := &kir.Type{Kind: kir.KindStruct, Tag: t.TypeName, Opaque: t.Opaque}
	if t.TypeName != "" {
		im.structs[t.TypeName] = st
	}
	for _, f := range t.Fields {
		ft, err := im.typ(f)
		if err != nil {
			return nil, fmt.Errorf("struct %s: %w", t.TypeName, err)
		}
		st.Fields = append(st.Fields, ft)
	}
	return st, nil
}

func linkage(l enum.Linkage) kir.Linkage {
	switch l {
	case enum.LinkageInternal:
		return kir.LinkageInternal
	case enum.LinkagePrivate:
		return kir.LinkagePrivate
	case enum.LinkageWeak:
		return kir.LinkageWeak
	case enum.LinkageLinkOnceODR:
		return kir.LinkageLinkOnceODR
	case enum.LinkageAvailableExternally:
		return kir.LinkageAvailableExternally
	}
	return kir.LinkageExternal
}

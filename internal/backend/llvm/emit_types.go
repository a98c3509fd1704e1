package llvm

import "kernlower/internal/kir"

// collectStructs records every named struct reachable from the module in
// first-use order so type definitions precede their uses.
func (e *Emitter) collectStructs() {
	for _, f := range e.mod.Funcs {
		e.visitType(f.RetType)
		for _, p := range f.Params {
			e.visitType(p.Typ)
		}
		for _, in := range f.AllInstrs() {
			e.visitType(in.Typ)
			e.visitType(in.ElemType)
			for _, op := range in.Operands {
				if op != nil {
					e.visitType(op.Type())
				}
			}
		}
	}
}

func (e *Emitter) visitType(t *kir.Type) {
	if t == nil {
		return
	}
	switch t.Kind {
	case kir.KindPointer:
		e.visitType(t.Elem)
	case kir.KindFunc:
		e.visitType(t.Elem)
		for _, p := range t.Fields {
			e.visitType(p)
		}
	case kir.KindStruct:
		if t.Tag != "" {
			if e.seen[t.Tag] {
				return
			}
			e.seen[t.Tag] = true
			e.structs = append(e.structs, t)
		}
		for _, f := range t.Fields {
			e.visitType(f)
		}
	}
}

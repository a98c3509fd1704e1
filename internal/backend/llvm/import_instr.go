package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
)

type funcImporter struct {
	im     *importer
	src    *ir.Func
	dst    *kir.Func
	locals map[value.Value]kir.Value
	blocks map[value.Value]*kir.Block
}

// pending is an instruction whose operands are resolved once every local of
// the function has a kir counterpart.
type pending struct {
	in      *kir.Instr
	ops     []value.Value
	targets []value.Value
	loc     diag.Location
}

func newFuncImporter(im *importer, src *ir.Func, dst *kir.Func) *funcImporter {
	fi := &funcImporter{
		im:     im,
		src:    src,
		dst:    dst,
		locals: make(map[value.Value]kir.Value),
		blocks: make(map[value.Value]*kir.Block, len(src.Blocks)),
	}
	for i, p := range src.Params {
		if i < len(dst.Params) {
			fi.locals[p] = dst.Params[i]
		}
	}
	return fi
}

func (fi *funcImporter) body() {
	for _, b := range fi.src.Blocks {
		fi.blocks[b] = fi.dst.NewBlock(b.LocalName)
	}

	var work []pending
	for _, b := range fi.src.Blocks {
		kb := fi.blocks[b]
		for _, inst := range b.Insts {
			loc := diag.InstrLoc(fi.im.src, fi.dst.Name, kb.Name, len(kb.Instrs))
			p, ok := fi.shell(inst, loc)
			if !ok {
				continue
			}
			kb.Append(p.in)
			if v, isValue := inst.(value.Value); isValue {
				fi.locals[v] = p.in
			}
			work = append(work, p)
		}
		if b.Term == nil {
			continue
		}
		loc := diag.InstrLoc(fi.im.src, fi.dst.Name, kb.Name, len(kb.Instrs))
		if p, ok := fi.terminator(b.Term, loc); ok {
			kb.Append(p.in)
			work = append(work, p)
		}
	}

	for _, p := range work {
		fi.resolve(p)
	}
}

// shell creates the kir instruction for inst with everything but operands.
func (fi *funcImporter) shell(inst ir.Instruction, loc diag.Location) (pending, bool) {
	var p pending
	switch inst := inst.(type) {
	case *ir.InstCall:
		p.in = &kir.Instr{Op: kir.OpCall, Name: inst.LocalName}
		p.ops = append([]value.Value{inst.Callee}, inst.Args...)
		p.in.Typ = fi.typeOf(inst.Type(), loc)
	case *ir.InstLoad:
		elem := fi.typeOf(inst.ElemType, loc)
		p.in = &kir.Instr{Op: kir.OpLoad, Name: inst.LocalName, Typ: elem, ElemType: elem}
		p.ops = []value.Value{inst.Src}
	case *ir.InstStore:
		p.in = &kir.Instr{Op: kir.OpStore, Typ: kir.Void}
		p.ops = []value.Value{inst.Src, inst.Dst}
	case *ir.InstGetElementPtr:
		p.in = &kir.Instr{
			Op:       kir.OpGEP,
			Name:     inst.LocalName,
			Typ:      fi.typeOf(inst.Type(), loc),
			ElemType: fi.typeOf(inst.ElemType, loc),
			InBounds: inst.InBounds,
		}
		p.ops = append([]value.Value{inst.Src}, inst.Indices...)
	case *ir.InstBitCast:
		p.in = &kir.Instr{Op: kir.OpBitCast, Name: inst.LocalName, Typ: fi.typeOf(inst.To, loc)}
		p.ops = []value.Value{inst.From}
	case *ir.InstAdd:
		p.in = &kir.Instr{Op: kir.OpAdd, Name: inst.LocalName, Typ: fi.typeOf(inst.Type(), loc)}
		p.ops = []value.Value{inst.X, inst.Y}
	case *ir.InstSub:
		p.in = &kir.Instr{Op: kir.OpSub, Name: inst.LocalName, Typ: fi.typeOf(inst.Type(), loc)}
		p.ops = []value.Value{inst.X, inst.Y}
	case *ir.InstMul:
		p.in = &kir.Instr{Op: kir.OpMul, Name: inst.LocalName, Typ: fi.typeOf(inst.Type(), loc)}
		p.ops = []value.Value{inst.X, inst.Y}
	case *ir.InstICmp:
		p.in = &kir.Instr{Op: kir.OpICmp, Name: inst.LocalName, Typ: kir.I1, Pred: inst.Pred.String()}
		p.ops = []value.Value{inst.X, inst.Y}
	case *ir.InstAlloca:
		elem := fi.typeOf(inst.ElemType, loc)
		p.in = &kir.Instr{Op: kir.OpAlloca, Name: inst.LocalName, Typ: kir.PointerTo(elem, 0), ElemType: elem}
	case *ir.InstPhi:
		p.in = &kir.Instr{Op: kir.OpPhi, Name: inst.LocalName, Typ: fi.typeOf(inst.Type(), loc)}
		for _, inc := range inst.Incs {
			p.ops = append(p.ops, inc.X)
			p.targets = append(p.targets, inc.Pred)
		}
	default:
		fi.im.fail(diag.ImpUnsupportedInstr, loc, fmt.Sprintf("instruction %T is not supported", inst))
		return p, false
	}
	p.in.Attachments = attachments(inst)
	p.loc = loc
	return p, true
}

func (fi *funcImporter) terminator(term ir.Terminator, loc diag.Location) (pending, bool) {
	var p pending
	switch term := term.(type) {
	case *ir.TermRet:
		p.in = kir.NewRet(nil)
		if term.X != nil {
			p.ops = []value.Value{term.X}
		}
	case *ir.TermBr:
		p.in = &kir.Instr{Op: kir.OpBr, Typ: kir.Void}
		p.targets = []value.Value{term.Target}
	case *ir.TermCondBr:
		p.in = &kir.Instr{Op: kir.OpCondBr, Typ: kir.Void}
		p.ops = []value.Value{term.Cond}
		p.targets = []value.Value{term.TargetTrue, term.TargetFalse}
	case *ir.TermUnreachable:
		p.in = kir.NewUnreachable()
	default:
		fi.im.fail(diag.ImpUnsupportedInstr, loc, fmt.Sprintf("terminator %T is not supported", term))
		return p, false
	}
	p.in.Attachments = attachments(term)
	p.loc = loc
	return p, true
}

func (fi *funcImporter) resolve(p pending) {
	for _, op := range p.ops {
		v, err := fi.value(op)
		if err != nil {
			fi.im.fail(diag.ImpUnsupportedValue, p.loc, err.Error())
			return
		}
		p.in.Operands = append(p.in.Operands, v)
	}
	for _, t := range p.targets {
		b, ok := fi.blocks[t]
		if !ok {
			fi.im.fail(diag.ImpUnsupportedValue, p.loc, fmt.Sprintf("branch target %s is not a block of @%s", t.Ident(), fi.dst.Name))
			return
		}
		p.in.Targets = append(p.in.Targets, b)
	}
}

func (fi *funcImporter) value(v value.Value) (kir.Value, error) {
	if kv, ok := fi.locals[v]; ok {
		return kv, nil
	}
	switch v := v.(type) {
	case *ir.Func:
		if kf, ok := fi.im.funcs[v]; ok {
			return kf, nil
		}
		return nil, fmt.Errorf("function @%s is not part of the module", v.Name())
	case *constant.Int:
		typ, err := fi.im.typ(v.Typ)
		if err != nil {
			return nil, err
		}
		if !v.X.IsInt64() {
			return nil, fmt.Errorf("integer constant %s does not fit in 64 bits", v.X)
		}
		return kir.ConstInt(typ, v.X.Int64()), nil
	case *constant.Null:
		typ, err := fi.im.typ(v.Typ)
		if err != nil {
			return nil, err
		}
		return kir.NullOf(typ), nil
	case *constant.Undef:
		typ, err := fi.im.typ(v.Typ)
		if err != nil {
			return nil, err
		}
		return kir.UndefOf(typ), nil
	}
	return nil, fmt.Errorf("operand %s (%T) is not supported", v.Ident(), v)
}

func (fi *funcImporter) typeOf(t types.Type, loc diag.Location) *kir.Type {
	kt, err := fi.im.typ(t)
	if err != nil {
		fi.im.fail(diag.ImpUnsupportedType, loc, err.Error())
		return kir.Void
	}
	return kt
}

// attachments copies metadata attachment references. Node bodies stay
// behind; the payload is the node reference such as "!7".
func attachments(v any) []kir.Attachment {
	md, ok := v.(interface {
		MDAttachments() []*metadata.Attachment
	})
	if !ok {
		return nil
	}
	var out []kir.Attachment
	for _, a := range md.MDAttachments() {
		if a == nil || a.Node == nil {
			continue
		}
		out = append(out, kir.Attachment{Kind: a.Name, Payload: a.Node.Ident()})
	}
	return out
}

package lower

import (
	"fmt"
	"slices"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
)

// DeviceIDIntrinsic is the work-item query every lowered module can call.
const DeviceIDIntrinsic = "get_global_id"

// DefaultIntrinsics are declarations that count as resolved call targets.
var DefaultIntrinsics = []string{DeviceIDIntrinsic}

// CallOptions configures NormalizeCalls.
type CallOptions struct {
	Normalizer Normalizer
	// Intrinsics name declarations that resolve a call without a body.
	Intrinsics []string
	Reporter   diag.Reporter
	// File is used in diagnostic locations.
	File string
}

// CallStats counts what NormalizeCalls changed.
type CallStats struct {
	Calls      int
	Retargeted int
	Returns    int
	Indirect   int
	Unresolved []UnresolvedCall
}

// NormalizeCalls retargets every direct call in f to the module function
// named by the callee's canonical name and, when f returns void, turns every
// return into a bare "ret void". A call resolves only when that function
// has a body or is one of opts.Intrinsics: after the module-wide rename
// every callee is found by name, so a declaration-only match is treated as
// missing. Calls that do not resolve are reported and left in place; the
// caller decides whether that is fatal.
func NormalizeCalls(f *kir.Func, m *kir.Module, opts CallOptions) CallStats {
	var stats CallStats
	for _, b := range f.Blocks {
		for i := 0; i < len(b.Instrs); i++ {
			in := b.Instrs[i]
			switch in.Op {
			case kir.OpCall:
				normalizeCall(f, m, b, i, in, opts, &stats)
			case kir.OpRet:
				if f.RetType.IsVoid() && len(in.Operands) > 0 {
					repl := kir.NewRet(nil)
					repl.Attachments = in.Attachments
					if err := b.Replace(in, repl); err == nil {
						stats.Returns++
					}
				}
			}
		}
	}
	return stats
}

func normalizeCall(f *kir.Func, m *kir.Module, b *kir.Block, idx int, call *kir.Instr, opts CallOptions, stats *CallStats) {
	stats.Calls++
	loc := diag.InstrLoc(opts.File, f.Name, b.Name, idx)
	callee := call.Callee()
	if callee == nil {
		stats.Indirect++
		if opts.Reporter != nil {
			diag.ReportInfo(opts.Reporter, diag.LowIndirectCall, loc,
				fmt.Sprintf("indirect call through %s is left untouched", call.Operands[0].Ident())).Emit()
		}
		return
	}

	name := opts.Normalizer.Canonical(callee.Name)
	target := m.Func(name)
	if target == nil && callee.Parent == nil {
		// The callee was dropped from the module; its own name is the last
		// chance to find the replacement.
		target = m.Func(callee.Name)
	}
	if !resolves(target, opts.Intrinsics) {
		stats.Unresolved = append(stats.Unresolved, UnresolvedCall{Caller: f.Name, Callee: callee.Name, Canonical: name})
		if opts.Reporter != nil {
			msg := fmt.Sprintf("did not find function @%s", name)
			if target != nil {
				msg = fmt.Sprintf("@%s is only declared", name)
			}
			diag.ReportError(opts.Reporter, diag.LowUnresolvedCall, loc, msg).
				WithNote(diag.FuncLoc(opts.File, f.Name), "called as @"+callee.Name).
				Emit()
		}
		return
	}

	repl := kir.NewCall(target, call.Args()...)
	repl.Name = call.Name
	repl.Attachments = call.Attachments
	if err := b.Replace(call, repl); err != nil {
		return
	}
	if target != callee {
		stats.Retargeted++
	}
	redirectResult(f, call, repl, loc, opts.Reporter)
}

// redirectResult points every use of old at repl. When repl no longer
// produces a value of the same type the uses get undef instead.
func redirectResult(f *kir.Func, old, repl *kir.Instr, loc diag.Location, r diag.Reporter) {
	if !old.HasValue() {
		return
	}
	if repl.HasValue() && repl.Type().Equal(old.Type()) {
		f.ReplaceAllUses(old, repl)
		return
	}
	undefUses(f, old, old.Type(), repl.Callee(), loc, r)
}

func undefUses(f *kir.Func, v kir.Value, typ *kir.Type, callee *kir.Func, loc diag.Location, r diag.Reporter) {
	n := f.ReplaceAllUses(v, kir.UndefOf(typ))
	if n == 0 || r == nil {
		return
	}
	diag.ReportWarning(r, diag.LowVoidResultUsed, loc,
		fmt.Sprintf("call to @%s no longer returns %s; %d use(s) now see undef", callee.Name, typ, n)).Emit()
}

// resolves reports whether target may be called from a lowered kernel.
func resolves(target *kir.Func, intrinsics []string) bool {
	if target == nil {
		return false
	}
	if !target.IsDeclaration() {
		return true
	}
	return slices.Contains(intrinsics, target.Name)
}

// retypeCallSites fixes calls built against fn's original before fn was
// lowered to a void result. Uses of their old result get undef.
func retypeCallSites(m *kir.Module, fn *kir.Func, file string, r diag.Reporter) int {
	n := 0
	for _, g := range m.Funcs {
		for _, b := range g.Blocks {
			for i, in := range b.Instrs {
				if in.Callee() != fn || in.Type().Equal(fn.RetType) {
					continue
				}
				oldTyp := in.Type()
				in.Typ = fn.RetType
				if !in.HasValue() {
					undefUses(g, in, oldTyp, fn, diag.InstrLoc(file, g.Name, b.Name, i), r)
				}
				n++
			}
		}
	}
	return n
}

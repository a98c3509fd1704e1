package llvm

import (
	"fmt"
	"sort"
	"strings"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
	"kernlower/internal/lower"
)

// TableNames maps the logical kernel tables to the named metadata each
// device back end reads.
type TableNames struct {
	Generic string
	Device  string
}

// DefaultTableNames targets OpenCL-style and NVVM-style consumers.
var DefaultTableNames = TableNames{Generic: "opencl.kernels", Device: "nvvm.annotations"}

// EmitOptions configures Emit. The zero value uses DefaultTableNames.
type EmitOptions struct {
	Tables TableNames
	// Triple is written as the target triple when set.
	Triple   string
	Reporter diag.Reporter
}

// EmitStats counts what the emitter wrote and what it had to leave out.
type EmitStats struct {
	Funcs   int
	Structs int
	Records int
	// DroppedAttachments counts instruction attachments whose metadata
	// nodes were not carried through import.
	DroppedAttachments int
}

type Emitter struct {
	mod     *kir.Module
	opts    EmitOptions
	buf     strings.Builder
	structs []*kir.Type
	seen    map[string]bool
	dropped map[string]int
	stats   EmitStats
}

// Emit renders m as textual LLVM IR in typed-pointer syntax.
func Emit(m *kir.Module, opts EmitOptions) (string, EmitStats, error) {
	if m == nil {
		return "", EmitStats{}, nil
	}
	if opts.Tables.Generic == "" {
		opts.Tables.Generic = DefaultTableNames.Generic
	}
	if opts.Tables.Device == "" {
		opts.Tables.Device = DefaultTableNames.Device
	}
	e := &Emitter{
		mod:     m,
		opts:    opts,
		seen:    make(map[string]bool),
		dropped: make(map[string]int),
	}
	e.collectStructs()
	e.emitPreamble()
	e.emitStructs()
	e.emitFunctions()
	if err := e.emitTables(); err != nil {
		return "", e.stats, err
	}
	e.reportDropped()
	return e.buf.String(), e.stats, nil
}

func (e *Emitter) emitPreamble() {
	fmt.Fprintf(&e.buf, "; ModuleID = %s\n", quoteString(e.mod.Source, '\''))
	fmt.Fprintf(&e.buf, "source_filename = %s\n", quoteString(e.mod.Source, '"'))
	if e.opts.Triple != "" {
		fmt.Fprintf(&e.buf, "target triple = %s\n", quoteString(e.opts.Triple, '"'))
	}
	e.buf.WriteString("\n")
}

func (e *Emitter) emitStructs() {
	if len(e.structs) == 0 {
		return
	}
	for _, st := range e.structs {
		fmt.Fprintf(&e.buf, "%s = type %s\n", st, st.Body())
	}
	e.buf.WriteString("\n")
	e.stats.Structs = len(e.structs)
}

func (e *Emitter) emitFunctions() {
	for i, f := range e.mod.Funcs {
		if i > 0 {
			e.buf.WriteString("\n")
		}
		e.emitFunc(f)
		e.stats.Funcs++
	}
}

func (e *Emitter) emitFunc(f *kir.Func) {
	n := kir.NewNamer(f)
	params := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		params = append(params, fmt.Sprintf("%s %s", p.Typ, n.Ref(p)))
	}
	if f.Variadic {
		params = append(params, "...")
	}
	kw := "define"
	if f.IsDeclaration() {
		kw = "declare"
	}
	link := ""
	if l := f.Linkage.String(); l != "" {
		link = l + " "
	}
	fmt.Fprintf(&e.buf, "%s %s%s %s(%s)", kw, link, f.RetType, n.Ref(f), strings.Join(params, ", "))
	if f.IsDeclaration() {
		e.buf.WriteString("\n")
		return
	}
	e.buf.WriteString(" {\n")
	for i, b := range f.Blocks {
		if i > 0 {
			e.buf.WriteString("\n")
		}
		fmt.Fprintf(&e.buf, "%s:\n", strings.TrimPrefix(n.BlockRef(b), "%"))
		for _, in := range b.Instrs {
			e.buf.WriteString("  ")
			e.buf.WriteString(e.formatInstr(n, in))
			e.buf.WriteString("\n")
		}
	}
	e.buf.WriteString("}\n")
}

// formatInstr defers to kir.FormatInstr except for variadic calls, which
// LLVM requires to spell out the callee signature.
func (e *Emitter) formatInstr(n *kir.Namer, in *kir.Instr) string {
	for _, a := range in.Attachments {
		e.dropped[a.Kind]++
		e.stats.DroppedAttachments++
	}
	callee := in.Callee()
	if callee == nil || !callee.Variadic {
		return kir.FormatInstr(n, in)
	}
	args := make([]string, 0, len(in.Args()))
	for _, a := range in.Args() {
		args = append(args, a.Type().String()+" "+n.Ref(a))
	}
	prefix := ""
	if in.HasValue() {
		prefix = n.Ref(in) + " = "
	}
	return fmt.Sprintf("%scall %s %s(%s)", prefix, callee.Sig(), n.Ref(callee), strings.Join(args, ", "))
}

func (e *Emitter) tableName(logical string) string {
	switch logical {
	case lower.GenericKernelTable:
		return e.opts.Tables.Generic
	case lower.DeviceKernelTable:
		return e.opts.Tables.Device
	}
	return logical
}

// emitTables writes one named metadata list per table followed by the
// numbered record nodes.
func (e *Emitter) emitTables() error {
	if len(e.mod.Tables) == 0 {
		return nil
	}
	var named, nodes strings.Builder
	next := 0
	for _, t := range e.mod.Tables {
		refs := make([]string, 0, len(t.Records))
		for i, r := range t.Records {
			id, err := safeNodeID(next)
			if err != nil {
				return err
			}
			next++
			body, err := e.formatRecord(r)
			if err != nil {
				return fmt.Errorf("table %s record %d: %w", t.Name, i, err)
			}
			refs = append(refs, fmt.Sprintf("!%d", id))
			fmt.Fprintf(&nodes, "!%d = !{%s}\n", id, body)
			e.stats.Records++
		}
		fmt.Fprintf(&named, "!%s = !{%s}\n", e.tableName(t.Name), strings.Join(refs, ", "))
	}
	e.buf.WriteString("\n")
	e.buf.WriteString(named.String())
	e.buf.WriteString("\n")
	e.buf.WriteString(nodes.String())
	return nil
}

func (e *Emitter) formatRecord(r kir.Record) (string, error) {
	parts := make([]string, 0, len(r.Operands))
	for _, op := range r.Operands {
		switch op.Kind {
		case kir.MetaFunc:
			if op.Func == nil || op.Func.Parent != e.mod {
				return "", fmt.Errorf("dangling function reference")
			}
			parts = append(parts, fmt.Sprintf("%s @%s", op.Func.Type(), quoteName(op.Func.Name)))
		case kir.MetaString:
			parts = append(parts, "!"+quoteString(op.Str, '"'))
		case kir.MetaInt:
			parts = append(parts, fmt.Sprintf("i32 %d", op.Int))
		default:
			return "", fmt.Errorf("unknown record operand kind %d", op.Kind)
		}
	}
	return strings.Join(parts, ", "), nil
}

func (e *Emitter) reportDropped() {
	if e.opts.Reporter == nil || len(e.dropped) == 0 {
		return
	}
	kinds := make([]string, 0, len(e.dropped))
	for k := range e.dropped {
		kinds = append(kinds, "!"+k)
	}
	sort.Strings(kinds)
	diag.ReportInfo(e.opts.Reporter, diag.LowDroppedAttachment, diag.FileLoc(e.mod.Source),
		fmt.Sprintf("%d attachment(s) not written: %s", e.stats.DroppedAttachments, strings.Join(kinds, ", "))).Emit()
}

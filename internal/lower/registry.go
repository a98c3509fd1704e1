package lower

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"kernlower/internal/kir"
	"kernlower/internal/trace"
)

// Pass is a standalone module transformation selectable by name.
type Pass struct {
	Name    string
	Summary string
	Run     func(ctx context.Context, m *kir.Module, opts Options) error
}

var passes = []Pass{
	{
		Name:    "retype-arguments",
		Summary: "retype array-handle parameters as i64* (address space 0), keeping results",
		Run:     retypeArguments,
	},
	{
		Name:    "array-to-pointer",
		Summary: "collapse handle decode chains on i64* parameters into one getelementptr",
		Run:     arrayToPointer,
	},
	{
		Name:    "strip-metadata",
		Summary: "remove !dbg and !tbaa attachments",
		Run:     stripModule,
	},
	{
		Name:    "normalize-calls",
		Summary: "retarget calls to canonical names and bare returns in void functions",
		Run:     normalizeModule,
	},
	{
		Name:    "emit-kernels",
		Summary: "list every definition in both kernel descriptor tables",
		Run:     emitKernels,
	},
	{
		Name:    "lower-arrays",
		Summary: "full lowering: rename, link, lower every function, emit descriptors",
		Run: func(ctx context.Context, m *kir.Module, opts Options) error {
			_, err := Run(ctx, m, opts)
			return err
		},
	},
}

// Passes returns the registered passes sorted by name.
func Passes() []Pass {
	out := append([]Pass(nil), passes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a pass by name.
func Lookup(name string) (Pass, bool) {
	for _, p := range passes {
		if p.Name == name {
			return p, true
		}
	}
	return Pass{}, false
}

// ParsePipeline splits a comma separated pass list and resolves each name.
func ParsePipeline(spec string) ([]Pass, error) {
	var out []Pass
	var unknown []string
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, ok := Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, p)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown pass(es): %s", strings.Join(unknown, ", "))
	}
	if len(out) == 0 {
		return nil, errors.New("empty pass pipeline")
	}
	return out, nil
}

// RunPasses applies passes in order and stops at the first error.
func RunPasses(ctx context.Context, m *kir.Module, pl []Pass, opts Options) error {
	for _, p := range pl {
		if err := ctx.Err(); err != nil {
			return err
		}
		span, pctx := trace.StartSpan(ctx, trace.ScopePass, "pass:"+p.Name)
		err := p.Run(pctx, m, opts)
		span.End("")
		if err != nil {
			return fmt.Errorf("pass %s: %w", p.Name, err)
		}
	}
	return nil
}

func retypeArguments(_ context.Context, m *kir.Module, _ Options) error {
	for _, f := range m.Definitions() {
		if !hasHandleParam(f) {
			continue
		}
		low, err := LowerSignature(f, RetypeOptions)
		if err != nil {
			return &StageError{Stage: StageSignature, Func: f.Name, Err: err}
		}
		if err := m.ReplaceFunc(f, low.Func); err != nil {
			return &StageError{Stage: StageReplace, Func: f.Name, Err: err}
		}
	}
	return nil
}

func hasHandleParam(f *kir.Func) bool {
	for _, p := range f.Params {
		if IsArrayHandle(p.Typ) {
			return true
		}
	}
	return false
}

func arrayToPointer(_ context.Context, m *kir.Module, opts Options) error {
	for _, f := range m.Definitions() {
		if _, err := RewriteArrayAccesses(f, RawPointerParams(f), opts.DeadDecode); err != nil {
			return &StageError{Stage: StageRewrite, Func: f.Name, Err: err}
		}
	}
	return nil
}

func stripModule(_ context.Context, m *kir.Module, _ Options) error {
	for _, f := range m.Funcs {
		StripMetadata(f)
	}
	return nil
}

func normalizeModule(_ context.Context, m *kir.Module, opts Options) error {
	var unresolved []UnresolvedCall
	for _, f := range m.Definitions() {
		cs := NormalizeCalls(f, m, CallOptions{
			Normalizer: opts.Normalizer,
			Intrinsics: opts.Intrinsics,
			Reporter:   opts.Reporter,
			File:       opts.File,
		})
		unresolved = append(unresolved, cs.Unresolved...)
	}
	if len(unresolved) > 0 {
		return &StageError{Stage: StageResolve, Func: unresolved[0].Caller, Err: &UnresolvedError{Calls: unresolved}}
	}
	return nil
}

func emitKernels(_ context.Context, m *kir.Module, _ Options) error {
	for _, f := range m.Definitions() {
		EmitKernelDescriptors(m, f)
	}
	return nil
}

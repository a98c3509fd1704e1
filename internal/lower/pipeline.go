package lower

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
	"kernlower/internal/observ"
	"kernlower/internal/trace"
)

// State is a step of the module lowering state machine.
type State uint8

const (
	StateStart State = iota
	StateRenamed
	StateLinked
	StateLowering
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateRenamed:
		return "renamed"
	case StateLinked:
		return "linked"
	case StateLowering:
		return "lowering"
	case StateDone:
		return "done"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// LibraryLoader provides the support library linked into every module.
type LibraryLoader interface {
	Load(ctx context.Context) (*kir.Module, error)
}

// LibraryFunc adapts a function to LibraryLoader.
type LibraryFunc func(ctx context.Context) (*kir.Module, error)

func (f LibraryFunc) Load(ctx context.Context) (*kir.Module, error) { return f(ctx) }

// Options configures Run. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// Library is loaded once per Run. Nil links an empty library that only
	// declares the device-id intrinsic.
	Library    LibraryLoader
	Signature  SignatureOptions
	DeadDecode DeadDecodeMode
	Normalizer Normalizer
	Intrinsics []string

	Reporter diag.Reporter
	Timer    *observ.Timer
	// File names the input in diagnostics.
	File string
	// OnLowered is called after each function is lowered.
	OnLowered func(done, total int, name string)
}

// DefaultOptions lowers for global device memory with void kernels.
func DefaultOptions() Options {
	return Options{
		Signature:  ArrayLoweringOptions,
		DeadDecode: DeadDecodeErase,
		Intrinsics: DefaultIntrinsics,
	}
}

// FuncReport summarises the lowering of one function.
type FuncReport struct {
	Name string
	// Original is the mangled name the function had on input.
	Original   string
	Handles    int
	Chains     int
	Forwarded  int
	Stripped   int
	Retargeted int
	Returns    int
}

// Result is returned by a successful Run.
type Result struct {
	Module *kir.Module
	// Lowered lists the new functions in lowering order.
	Lowered []*kir.Func
	Reports []FuncReport
	// Declarations were renamed but have no body to lower.
	Declarations []string
	// Linked names the functions contributed by the support library.
	Linked []string
	State  State
}

// Run lowers m in place: every function is renamed to its canonical name,
// the support library is linked, and every definition present before
// linking is replaced by its lowered form and advertised as a kernel.
//
// On error Run returns a nil Result together with a *StageError; m has been
// partially rewritten and must be discarded.
func Run(ctx context.Context, m *kir.Module, opts Options) (*Result, error) {
	if m == nil {
		return nil, errors.New("lower: nil module")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	span, ctx := trace.StartSpan(ctx, trace.ScopePass, "lower-module")
	defer span.End(m.Source)

	p := &pipeline{m: m, opts: opts, res: &Result{Module: m, State: StateStart}}
	steps := []func(context.Context) error{p.rename, p.link, p.lowerAll, p.finish}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: p.stage(), Err: err}
		}
		if err := step(ctx); err != nil {
			span.Fail(err)
			return nil, err
		}
	}
	p.res.State = StateDone
	span.Count("lowered", len(p.res.Lowered))
	return p.res, nil
}

type pipeline struct {
	m          *kir.Module
	opts       Options
	res        *Result
	defs       []*kir.Func
	mangled    map[*kir.Func]string
	unresolved []UnresolvedCall
}

// stage names the step the state machine is about to take.
func (p *pipeline) stage() Stage {
	switch p.res.State {
	case StateStart:
		return StageRename
	case StateRenamed:
		return StageLink
	case StateLinked, StateLowering:
		return StageSignature
	}
	return StageValidate
}

func (p *pipeline) phase(ctx context.Context, name string) (context.Context, func(note string)) {
	idx := p.opts.Timer.Begin(name)
	span, ctx := trace.StartSpan(ctx, trace.ScopePass, name)
	return ctx, func(note string) {
		span.End(note)
		p.opts.Timer.End(idx, note)
	}
}

// rename gives every function its canonical name and snapshots the
// definitions to lower.
func (p *pipeline) rename(ctx context.Context) error {
	_, done := p.phase(ctx, "rename")
	defer func() { done(strconv.Itoa(len(p.m.Funcs)) + " functions") }()

	targets := make(map[string]*kir.Func, len(p.m.Funcs))
	names := make([]string, len(p.m.Funcs))
	for i, f := range p.m.Funcs {
		name := p.opts.Normalizer.Canonical(f.Name)
		if other, ok := targets[name]; ok {
			if p.opts.Reporter != nil {
				diag.ReportError(p.opts.Reporter, diag.LowNameCollision, diag.FuncLoc(p.opts.File, f.Name),
					fmt.Sprintf("@%s and @%s both normalize to @%s", other.Name, f.Name, name)).Emit()
			}
			return &StageError{Stage: StageRename, Func: f.Name,
				Err: fmt.Errorf("%w: @%s and @%s both become @%s", ErrNameCollision, other.Name, f.Name, name)}
		}
		targets[name] = f
		names[i] = name
	}
	p.mangled = make(map[*kir.Func]string, len(p.m.Funcs))
	for i, f := range p.m.Funcs {
		p.mangled[f] = f.Name
		f.Name = names[i]
		if f.IsDeclaration() {
			p.res.Declarations = append(p.res.Declarations, f.Name)
		}
	}
	p.defs = p.m.Definitions()
	p.res.State = StateRenamed
	return nil
}

// link merges the support library. Nothing has been lowered yet, so a
// failure leaves every function body untouched.
func (p *pipeline) link(ctx context.Context) error {
	ctx, done := p.phase(ctx, "link")
	lib, err := p.loadLibrary(ctx)
	if err != nil {
		done("failed")
		return &StageError{Stage: StageLink, Err: fmt.Errorf("%w: %w", ErrLinkFailed, err)}
	}
	linked := make([]string, 0, len(lib.Funcs))
	for _, f := range lib.Funcs {
		linked = append(linked, f.Name)
	}
	if err := kir.Link(p.m, lib); err != nil {
		done("failed")
		return &StageError{Stage: StageLink, Err: fmt.Errorf("%w: %w", ErrLinkFailed, err)}
	}
	p.res.Linked = linked
	p.res.State = StateLinked
	done(strconv.Itoa(len(linked)) + " functions")
	return nil
}

func (p *pipeline) loadLibrary(ctx context.Context) (*kir.Module, error) {
	var lib *kir.Module
	if p.opts.Library != nil {
		var err error
		if lib, err = p.opts.Library.Load(ctx); err != nil {
			return nil, err
		}
		if lib == nil {
			return nil, errors.New("loader returned no module")
		}
	} else {
		lib = kir.NewModule("<builtin>")
	}
	if lib.Func(DeviceIDIntrinsic) == nil {
		decl := kir.NewFunc(DeviceIDIntrinsic, kir.I64, kir.NewParam("dim", kir.I32))
		if err := lib.AddFunc(decl); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (p *pipeline) lowerAll(ctx context.Context) error {
	ctx, done := p.phase(ctx, "lower")
	defer func() { done(strconv.Itoa(len(p.res.Lowered)) + " kernels") }()

	p.res.State = StateLowering
	total := len(p.defs)
	for i, f := range p.defs {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: StageSignature, Func: f.Name, Err: err}
		}
		if err := p.lowerFunc(ctx, f); err != nil {
			return err
		}
		if p.opts.OnLowered != nil {
			p.opts.OnLowered(i+1, total, f.Name)
		}
	}
	return nil
}

// lowerFunc runs signature lowering, metadata stripping, chain rewriting and
// call normalization on a clone of f, then swaps the clone in and lists it.
func (p *pipeline) lowerFunc(ctx context.Context, f *kir.Func) error {
	span, ctx := trace.StartSpan(ctx, trace.ScopeFunc, "lower:"+f.Name)
	idx := p.opts.Timer.Begin("lower-func")
	defer p.opts.Timer.End(idx, "")

	fail := func(stage Stage, err error) error {
		span.End("failed at " + string(stage))
		return &StageError{Stage: stage, Func: f.Name, Err: err}
	}

	low, err := LowerSignature(f, p.opts.Signature)
	if err != nil {
		return fail(StageSignature, err)
	}
	nf := low.Func
	rep := FuncReport{Name: nf.Name, Original: p.mangled[f], Handles: len(low.Handles)}

	rep.Stripped = StripMetadata(nf)

	rw, err := RewriteArrayAccesses(nf, low.Handles, p.opts.DeadDecode)
	if err != nil {
		if p.opts.Reporter != nil {
			diag.ReportError(p.opts.Reporter, diag.LowUnexpectedChain, diag.FuncLoc(p.opts.File, f.Name), err.Error()).Emit()
		}
		return fail(StageRewrite, err)
	}
	rep.Chains, rep.Forwarded = rw.Chains, rw.Forwarded
	if rw.Chains > 0 {
		trace.Point(ctx, trace.ScopeInstr, "rewrite-chains",
			fmt.Sprintf("%d chains, -%d/+%d instrs", rw.Chains, rw.Removed, rw.Inserted))
	}

	cs := NormalizeCalls(nf, p.m, CallOptions{
		Normalizer: p.opts.Normalizer,
		Intrinsics: p.opts.Intrinsics,
		Reporter:   p.opts.Reporter,
		File:       p.opts.File,
	})
	rep.Retargeted, rep.Returns = cs.Retargeted, cs.Returns
	p.unresolved = append(p.unresolved, cs.Unresolved...)

	if err := p.m.ReplaceFunc(f, nf); err != nil {
		return fail(StageReplace, err)
	}
	retypeCallSites(p.m, nf, p.opts.File, p.opts.Reporter)
	EmitKernelDescriptors(p.m, nf)

	p.res.Lowered = append(p.res.Lowered, nf)
	p.res.Reports = append(p.res.Reports, rep)

	span.Count("chains", rep.Chains).
		Count("stripped", rep.Stripped).
		Count("retargeted", rep.Retargeted)
	span.End("")
	return nil
}

// finish turns leftover unresolved calls into a fatal error and validates
// the module.
func (p *pipeline) finish(ctx context.Context) error {
	_, done := p.phase(ctx, "validate")
	if len(p.unresolved) > 0 {
		done("unresolved")
		return &StageError{Stage: StageResolve, Func: p.unresolved[0].Caller,
			Err: &UnresolvedError{Calls: p.unresolved}}
	}
	if err := kir.Validate(p.m); err != nil {
		done("invalid")
		if p.opts.Reporter != nil {
			diag.ReportError(p.opts.Reporter, diag.LowInvalidModule, diag.FileLoc(p.opts.File), err.Error()).Emit()
		}
		return &StageError{Stage: StageValidate, Err: err}
	}
	done("")
	return nil
}

// Package driver lowers .ll files end to end: read, import, lower, emit and
// write, with an on-disk cache and parallel batches.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kernlower/internal/backend/llvm"
	"kernlower/internal/diag"
	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/observ"
	"kernlower/internal/project"
	"kernlower/internal/trace"
)

// OutputFormat selects what is written for a lowered module.
type OutputFormat string

const (
	// FormatLLVM writes textual LLVM IR.
	FormatLLVM OutputFormat = "llvm"
	// FormatKIR writes the internal IR dump.
	FormatKIR OutputFormat = "kir"
)

// ParseOutputFormat accepts "llvm" or "kir".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatLLVM:
		return FormatLLVM, nil
	case FormatKIR:
		return FormatKIR, nil
	}
	return "", fmt.Errorf("invalid emit format %q (expected llvm|kir)", s)
}

// Ext returns the file extension of outputs in format f.
func (f OutputFormat) Ext() string {
	if f == FormatKIR {
		return ".kir"
	}
	return ".ll"
}

// Options configures a Session.
type Options struct {
	Config project.Config
	Format OutputFormat
	// Cache is consulted before lowering; nil disables caching.
	Cache *DiskCache
	// OutDir receives <name><ext> per input. Output names the destination
	// of a single input and wins over OutDir. With neither set nothing is
	// written.
	OutDir string
	Output string

	Progress       ProgressSink
	Timer          *observ.Timer
	MaxDiagnostics int
}

// FileResult is the outcome of lowering one input.
type FileResult struct {
	Input string
	// Dest is the written file, empty when nothing was written.
	Dest    string
	Text    string
	Reports []lower.FuncReport
	Bag     *diag.Bag
	Cached  bool
	Timings Timings
	Err     error
}

// Kernels lists the lowered function names.
func (r *FileResult) Kernels() []string {
	out := make([]string, 0, len(r.Reports))
	for _, rep := range r.Reports {
		out = append(out, rep.Name)
	}
	return out
}

// Session lowers files with shared options. It is safe for concurrent use.
type Session struct {
	opts    Options
	digests *digestCache
}

// NewSession validates opts and returns a session.
func NewSession(opts Options) (*Session, error) {
	if opts.Format == "" {
		opts.Format = FormatLLVM
	}
	if _, err := ParseOutputFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	return &Session{opts: opts, digests: newDigestCache(4)}, nil
}

// Dest returns where the output for input is written, or "".
func (s *Session) Dest(input string) string {
	switch {
	case s.opts.Output != "":
		return s.opts.Output
	case s.opts.OutDir != "":
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		return filepath.Join(s.opts.OutDir, base+s.opts.Format.Ext())
	}
	return ""
}

// LowerFile runs the whole pipeline on one input. Failures are recorded in
// the result, never returned; only cancellation stops a file early.
func (s *Session) LowerFile(ctx context.Context, path string) *FileResult {
	res := &FileResult{Input: path, Bag: diag.NewBag(s.opts.MaxDiagnostics)}
	ctx = trace.WithFile(ctx, path)
	span, ctx := trace.StartSpan(ctx, trace.ScopeDriver, "lower-file")
	defer func() {
		status := StatusDone
		switch {
		case res.Err != nil:
			status = StatusError
			span.Fail(res.Err)
		case res.Cached:
			status = StatusCached
		}
		span.End(path)
		emit(s.opts.Progress, Event{File: path, Status: status, Err: res.Err,
			Elapsed: res.Timings.Sum(StageCache, StageParse, StageLower, StageEmit, StageWrite)})
	}()

	res.Err = s.lowerFile(ctx, res)
	return res
}

func (s *Session) lowerFile(ctx context.Context, res *FileResult) error {
	r := diag.BagReporter{Bag: res.Bag}
	path := res.Input
	if err := ctx.Err(); err != nil {
		return err
	}

	step := s.stepper(res)

	done := step(StageCache)
	src, err := os.ReadFile(path)
	if err != nil {
		diag.ReportError(r, diag.ImpParseError, diag.FileLoc(path), err.Error()).Emit()
		return fmt.Errorf("%s: %w", path, err)
	}
	key, keyErr := s.cacheKey(path, src)
	if keyErr == nil && s.opts.Cache != nil {
		var payload DiskPayload
		if ok, err := s.opts.Cache.Get(key, &payload); err == nil && ok && payload.Input == path {
			done()
			res.Cached = true
			res.Text = payload.Output
			res.Reports = payload.Reports
			for _, d := range payload.Diagnostics {
				res.Bag.Add(d)
			}
			return s.write(res, step)
		}
	}
	done()

	done = step(StageParse)
	m, err := llvm.ParseString(path, string(src), r)
	done()
	if err != nil {
		return err
	}

	done = step(StageLower)
	opts, err := s.opts.Config.LowerOptions(path, r)
	if err != nil {
		done()
		return err
	}
	opts.Timer = s.opts.Timer
	opts.OnLowered = func(n, total int, _ string) {
		emit(s.opts.Progress, Event{File: path, Stage: StageLower, Status: StatusWorking, Done: n, Total: total})
	}
	low, err := lower.Run(ctx, m, opts)
	done()
	if err != nil {
		return err
	}
	res.Reports = low.Reports

	done = step(StageEmit)
	res.Text, err = s.render(low.Module, r)
	done()
	if err != nil {
		diag.ReportError(r, diag.ImpWriteError, diag.FileLoc(path), err.Error()).Emit()
		return err
	}

	if keyErr == nil && s.opts.Cache != nil {
		payload := &DiskPayload{
			Input:       path,
			Format:      s.opts.Format,
			Output:      res.Text,
			Reports:     res.Reports,
			Diagnostics: res.Bag.Items(),
			InputHash:   project.HashBytes(src),
		}
		payload.LibraryHash, _ = s.digests.Get(s.opts.Config.LibraryPath(path))
		if err := s.opts.Cache.Put(key, payload); err != nil {
			diag.ReportWarning(r, diag.ImpWriteError, diag.FileLoc(path), "cache: "+err.Error()).Emit()
		}
	}
	return s.write(res, step)
}

// stepper reports a stage as working and returns the function that records
// its duration.
func (s *Session) stepper(res *FileResult) func(Stage) func() {
	return func(stage Stage) func() {
		emit(s.opts.Progress, Event{File: res.Input, Stage: stage, Status: StatusWorking})
		start := time.Now()
		return func() { res.Timings.Set(stage, time.Since(start)) }
	}
}

func (s *Session) cacheKey(path string, src []byte) (project.Digest, error) {
	lib, err := s.digests.Get(s.opts.Config.LibraryPath(path))
	if err != nil {
		return project.Digest{}, err
	}
	return CacheKey(project.HashBytes(src), lib, s.opts.Config.Fingerprint(), s.opts.Format), nil
}

func (s *Session) render(m *kir.Module, r diag.Reporter) (string, error) {
	if s.opts.Format == FormatKIR {
		var buf bytes.Buffer
		if err := kir.Dump(&buf, m); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	text, _, err := llvm.Emit(m, s.opts.Config.EmitOptions(r))
	return text, err
}

func (s *Session) write(res *FileResult, step func(Stage) func()) error {
	dest := s.Dest(res.Input)
	if dest == "" {
		return nil
	}
	done := step(StageWrite)
	defer done()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return s.writeErr(res, err)
	}
	if err := os.WriteFile(dest, []byte(res.Text), 0o644); err != nil {
		return s.writeErr(res, err)
	}
	res.Dest = dest
	return nil
}

func (s *Session) writeErr(res *FileResult, err error) error {
	diag.ReportError(diag.BagReporter{Bag: res.Bag}, diag.ImpWriteError, diag.FileLoc(res.Input), err.Error()).Emit()
	return fmt.Errorf("write output for %s: %w", res.Input, err)
}

// IsCancelled reports whether err came from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

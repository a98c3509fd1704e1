package llvm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"kernlower/internal/diag"
	"kernlower/internal/kir"
	"kernlower/internal/lower"
	"kernlower/internal/trace"
)

// DefaultLibraryPath is the support library looked up next to the input
// when no path is configured.
const DefaultLibraryPath = "lowered-julia-array.ll"

// LibraryFile loads the support library from a .ll file. It implements
// lower.LibraryLoader.
type LibraryFile struct {
	Path string
	// Optional reports a missing file as an empty library instead of an
	// error.
	Optional bool
	Reporter diag.Reporter
}

var _ lower.LibraryLoader = LibraryFile{}

func (l LibraryFile) Load(ctx context.Context) (*kir.Module, error) {
	span, _ := trace.StartSpan(ctx, trace.ScopePass, "load-library")
	defer span.End(l.Path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(l.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && l.Optional {
			return kir.NewModule(l.Path), nil
		}
		if l.Reporter != nil {
			diag.ReportError(l.Reporter, diag.ImpLibraryNotFound, diag.FileLoc(l.Path),
				fmt.Sprintf("support library %s: %v", l.Path, err)).Emit()
		}
		return nil, fmt.Errorf("support library: %w", err)
	}
	m, err := ReadFile(l.Path, l.Reporter)
	if err != nil {
		if l.Reporter != nil {
			diag.ReportError(l.Reporter, diag.ImpLibraryMalformed, diag.FileLoc(l.Path),
				"support library could not be imported").Emit()
		}
		return nil, fmt.Errorf("support library %s: %w", l.Path, err)
	}
	return m, nil
}

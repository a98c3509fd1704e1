package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"kernlower/internal/trace"
)

// LowerFiles lowers every input with at most jobs workers (GOMAXPROCS when
// jobs <= 0). Results keep input order. A failed file does not stop the
// others; the returned error is non-nil only when ctx was cancelled.
func (s *Session) LowerFiles(ctx context.Context, files []string, jobs int) ([]*FileResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 && s.opts.Output != "" {
		return nil, fmt.Errorf("an output file can only be used with a single input (got %d)", len(files))
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	span, ctx := trace.StartSpan(ctx, trace.ScopeDriver, "lower-batch")
	defer span.End(fmt.Sprintf("%d files", len(files)))

	for _, f := range files {
		emit(s.opts.Progress, Event{File: f, Status: StatusQueued})
	}

	// indices are unique per goroutine
	results := make([]*FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = &FileResult{Input: path, Err: gctx.Err()}
				return gctx.Err()
			default:
			}
			results[i] = s.LowerFile(gctx, path)
			if IsCancelled(results[i].Err) {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Failed counts results that carry an error.
func Failed(results []*FileResult) int {
	n := 0
	for _, r := range results {
		if r != nil && r.Err != nil {
			n++
		}
	}
	return n
}

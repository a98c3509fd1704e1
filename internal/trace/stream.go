package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// StreamTracer writes every event as it arrives. A trace file is buffered
// and flushed on heartbeats and on Close; other writers are written
// through.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	buf    *bufio.Writer // nil when w is written through
	closer io.Closer     // nil when the output is not owned
	level  Level
	format Format
}

// NewStreamTracer writes to w, which the tracer does not close.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

// openStream creates the trace file at path; "" and "-" mean stderr.
func openStream(path string, level Level, format Format) (*StreamTracer, error) {
	if path == "" || path == "-" {
		return NewStreamTracer(os.Stderr, level, format), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &StreamTracer{w: buf, buf: buf, closer: f, level: level, format: format}, nil
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.Allows(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(data) //nolint:errcheck
	// a run that hangs still leaves everything up to the last beat on disk
	if ev.Kind == KindHeartbeat && t.buf != nil {
		_ = t.buf.Flush() //nolint:errcheck
	}
}

func (t *StreamTracer) Level() Level { return t.level }

// Close flushes the buffer and closes a trace file the tracer opened.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	if t.buf != nil {
		errs = append(errs, t.buf.Flush())
	}
	if t.closer != nil {
		errs = append(errs, t.closer.Close())
		t.closer = nil
	}
	return errors.Join(errs...)
}

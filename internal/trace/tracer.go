package trace

import (
	"fmt"
	"io"
	"strings"
)

// DefaultRingSize is the ring capacity when none is configured.
const DefaultRingSize = 4096

// Tracer receives events. Implementations are safe for concurrent use.
type Tracer interface {
	// Emit records ev. It must not modify it.
	Emit(ev *Event)
	// Level is the verbosity the tracer was created with.
	Level() Level
	// Close writes out anything buffered and releases the output.
	Close() error
}

func enabled(t Tracer, scope Scope) bool {
	return t != nil && t.Level().Allows(scope)
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory for the failure dump
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode reads a --trace-mode value.
func ParseMode(s string) (StorageMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n != "" && n == name {
			return StorageMode(i), nil
		}
	}
	return ModeRing, fmt.Errorf("invalid trace mode: %q (expected: stream|ring|both)", s)
}

// Config describes the tracer built by New.
type Config struct {
	Level Level
	Mode  StorageMode
	// Format of streamed events; FormatAuto picks NDJSON for .ndjson and
	// .jsonl paths and text otherwise.
	Format     Format
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "" or "-" is stderr
	RingSize   int
}

// New builds the tracer cfg describes. LevelOff yields Nop, and LevelError
// always yields a ring.
func New(cfg Config) (Tracer, error) {
	switch cfg.Level {
	case LevelOff:
		return Nop, nil
	case LevelError:
		cfg.Mode = ModeRing
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") || strings.HasSuffix(cfg.OutputPath, ".jsonl") {
			format = FormatNDJSON
		}
	}

	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeStream, ModeBoth:
		var stream *StreamTracer
		if cfg.Output != nil {
			stream = NewStreamTracer(cfg.Output, cfg.Level, format)
		} else {
			var err error
			if stream, err = openStream(cfg.OutputPath, cfg.Level, format); err != nil {
				return nil, err
			}
		}
		if cfg.Mode == ModeStream {
			return stream, nil
		}
		return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
	}
	return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
}

// Rings returns the ring tracers reachable from t, for the failure dump.
func Rings(t Tracer) []*RingTracer {
	switch t := t.(type) {
	case *RingTracer:
		return []*RingTracer{t}
	case *MultiTracer:
		var out []*RingTracer
		for _, sub := range t.tracers {
			out = append(out, Rings(sub)...)
		}
		return out
	}
	return nil
}

// Package trace records what kernlower is doing while it lowers files:
// batch and file steps, pipeline stages, every lowered function and, at the
// finest level, each rewritten decode chain.
//
// # Usage
//
//	kernlower lower --trace=- --trace-level=detail kernels/*.ll
//	kernlower lower --trace=run.ndjson --trace-mode=both kernels/*.ll
//
// # Tracers
//
//   - Nop: the default, every call returns immediately
//   - StreamTracer: writes each event to stderr or a file as it happens
//   - RingTracer: keeps the latest events in memory; the CLI dumps them
//     when a run fails
//   - MultiTracer: fans out to a stream and a ring
//
// # Levels
//
// LevelPhase admits driver and pass events, LevelDetail adds one span per
// lowered function and LevelDebug adds instruction-level points. LevelError
// records phase events into a ring only, for the failure dump.
//
// # Context
//
// The tracer, the enclosing span and the input file travel in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx = trace.WithFile(ctx, "kernel.ll")
//	span, ctx := trace.StartSpan(ctx, trace.ScopePass, "link")
//	defer span.End("")
//
// Batches lower files in parallel, so events of different files interleave;
// the file tag tells them apart.
package trace

package trace

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
	open    atomic.Int64
)

func nextSeq() uint64 { return seq.Add(1) }

// Span is an operation with a begin and an end event. Spans of a disabled
// tracer are inert, and every method is safe on them and on nil.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	file    string
	name    string
	started time.Time
	attrs   []Attr
}

// StartSpan opens a span under the one active in ctx and returns a context
// in which the new span is the parent of nested work.
func StartSpan(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	t := FromContext(ctx)
	if !enabled(t, scope) {
		return &Span{}, ctx
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parentOf(ctx),
		scope:   scope,
		file:    fileOf(ctx),
		name:    name,
		started: time.Now(),
	}
	open.Add(1)
	t.Emit(s.event(KindBegin, s.started, ""))
	return s, context.WithValue(ctx, spanKey, s.id)
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Seq:      nextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		File:     s.file,
		Name:     s.name,
		Detail:   detail,
	}
}

// Set annotates the end event with key=value.
func (s *Span) Set(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	return s
}

// Count annotates the end event with an integer counter.
func (s *Span) Count(key string, n int) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	return s.Set(key, strconv.Itoa(n))
}

// Fail records err on the end event. A nil err is ignored.
func (s *Span) Fail(err error) *Span {
	if err == nil {
		return s
	}
	return s.Set("error", err.Error())
}

// End emits the end event and returns how long the span was open. Only
// the first call has an effect.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	now := time.Now()
	ev := s.event(KindEnd, now, detail)
	ev.Attrs = s.attrs
	s.tracer.Emit(ev)
	s.tracer = nil
	open.Add(-1)
	return now.Sub(s.started)
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under the span active in ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !enabled(t, scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      nextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parentOf(ctx),
		File:     fileOf(ctx),
		Name:     name,
		Detail:   detail,
	})
}

// OpenSpans returns the number of spans begun and not yet ended.
func OpenSpans() int64 { return open.Load() }

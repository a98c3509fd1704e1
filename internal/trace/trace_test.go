package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopeFunc, Name: name})
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d events, want 3", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Errorf("snap[%d] = %s, want %s", i, snap[i].Name, want)
		}
	}
	if got := r.Dropped(); got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
}

func TestLevelAllows(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopePass, true},
		{LevelError, ScopeFunc, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFunc, false},
		{LevelDetail, ScopeFunc, true},
		{LevelDetail, ScopeInstr, false},
		{LevelDebug, ScopeInstr, true},
		{LevelDebug, 0, false},
		{Level(42), ScopeDriver, false},
	}
	for _, tt := range tests {
		if got := tt.level.Allows(tt.scope); got != tt.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestRingFiltersScopes(t *testing.T) {
	r := NewRingTracer(16, LevelPhase)
	r.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: "keep"})
	r.Emit(&Event{Kind: KindPoint, Scope: ScopeFunc, Name: "drop"})
	r.Emit(&Event{Kind: KindHeartbeat, Scope: ScopeInstr, Name: "beat"})
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "keep" || snap[1].Name != "beat" {
		t.Fatalf("unexpected events: %+v", snap)
	}
}

func TestStartSpanNests(t *testing.T) {
	r := NewRingTracer(16, LevelDetail)
	ctx := WithFile(WithTracer(context.Background(), r), "k.ll")

	outer, ctx := StartSpan(ctx, ScopePass, "lower-module")
	inner, _ := StartSpan(ctx, ScopeFunc, "lower:foo")
	inner.Count("chains", 1).Set("callee", "bar").End("")
	skipped, _ := StartSpan(ctx, ScopeInstr, "rewrite")
	skipped.Count("ignored", 1).End("")
	outer.Fail(errors.New("boom")).End("done")
	outer.End("again")

	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(snap), snap)
	}
	for _, ev := range snap {
		if ev.File != "k.ll" {
			t.Errorf("event %s lost its file tag", ev.Name)
		}
	}
	if snap[1].ParentID != outer.ID() || snap[1].Name != "lower:foo" {
		t.Errorf("inner span not parented to outer: %+v", snap[1])
	}
	want := []Attr{{"chains", "1"}, {"callee", "bar"}}
	if len(snap[2].Attrs) != 2 || snap[2].Attrs[0] != want[0] || snap[2].Attrs[1] != want[1] {
		t.Errorf("attrs = %+v", snap[2].Attrs)
	}
	last := snap[3]
	if last.Kind != KindEnd || last.Detail != "done" || last.Attrs[0].Value != "boom" {
		t.Errorf("outer end = %+v", last)
	}
	if snap[0].Seq >= last.Seq {
		t.Errorf("sequence numbers not increasing")
	}
}

func TestStartSpanWithoutTracer(t *testing.T) {
	span, ctx := StartSpan(context.Background(), ScopeDriver, "x")
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatalf("span without a tracer should be inert")
	}
	if parentOf(ctx) != 0 {
		t.Fatalf("inert span became a parent")
	}
	Point(ctx, ScopeDriver, "p", "")
}

func TestOpenSpans(t *testing.T) {
	ctx := WithTracer(context.Background(), NewRingTracer(8, LevelPhase))
	before := OpenSpans()
	span, _ := StartSpan(ctx, ScopeDriver, "lower-file")
	if OpenSpans() != before+1 {
		t.Fatalf("open spans = %d, want %d", OpenSpans(), before+1)
	}
	span.End("")
	span.End("")
	if OpenSpans() != before {
		t.Fatalf("open spans = %d after End, want %d", OpenSpans(), before)
	}
}

func TestFormatText(t *testing.T) {
	ev := &Event{
		Time: time.Date(2024, 1, 2, 3, 4, 5, 6e6, time.UTC), Kind: KindEnd, Scope: ScopeFunc,
		File: "k.ll", Name: "lower:foo", Detail: "ok",
		Attrs: []Attr{{"b", "2"}, {"a", "1"}},
	}
	if got, want := string(FormatEvent(ev, FormatText)), "[03:04:05.006] [k.ll]     ← lower:foo (ok) {b=2, a=1}\n"; got != want {
		t.Errorf("text line = %q, want %q", got, want)
	}
	ev.File = ""
	ev.Scope = ScopeDriver
	ev.Attrs = nil
	if got := string(FormatEvent(ev, FormatText)); got != "[03:04:05.006] ← lower:foo (ok)\n" {
		t.Errorf("text line = %q", got)
	}
}

func TestFormatNDJSON(t *testing.T) {
	var js bytes.Buffer
	st := NewStreamTracer(&js, LevelDebug, FormatNDJSON)
	st.Emit(&Event{Kind: KindPoint, Scope: ScopePass, File: "k.ll", Name: "link", Attrs: []Attr{{"funcs", "3"}}})
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("ndjson line does not parse: %v", err)
	}
	if decoded["kind"] != "point" || decoded["scope"] != "pass" || decoded["name"] != "link" || decoded["file"] != "k.ll" {
		t.Errorf("decoded = %v", decoded)
	}
	if attrs, _ := decoded["attrs"].(map[string]any); attrs["funcs"] != "3" {
		t.Errorf("attrs = %v", decoded["attrs"])
	}
	if _, ok := decoded["span_id"]; ok {
		t.Errorf("point should omit span_id")
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel(" Detail "); err != nil || l != LevelDetail {
		t.Errorf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil || !strings.Contains(err.Error(), "off|error|phase|detail|debug") {
		t.Errorf("bad level error = %v", err)
	}
	if m, err := ParseMode("BOTH"); err != nil || m != ModeBoth {
		t.Errorf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Errorf("bad mode accepted")
	}
	if _, err := ParseMode(""); err == nil {
		t.Errorf("empty mode accepted")
	}
}

func TestNew(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("LevelOff should yield Nop")
	}

	tr, err = New(Config{Level: LevelError, Mode: ModeStream})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*RingTracer); !ok {
		t.Errorf("LevelError should yield a ring, got %T", tr)
	}

	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(Rings(tr)) != 1 {
		t.Errorf("ModeBoth should expose one ring")
	}
}

func TestStreamFileIsBufferedUntilClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), tr)
	span, _ := StartSpan(ctx, ScopeDriver, "lower-batch")
	span.End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "{") {
		t.Fatalf("trace file = %q", data)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("heartbeat on Nop")
	}
	var nilBeat *Heartbeat
	nilBeat.Stop()

	r := NewRingTracer(8, LevelPhase)
	h := &Heartbeat{tracer: r, stop: make(chan struct{})}
	h.beat(3)
	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].Kind != KindHeartbeat || !strings.HasPrefix(snap[0].Detail, "#3, ") {
		t.Fatalf("beat = %+v", snap)
	}
}

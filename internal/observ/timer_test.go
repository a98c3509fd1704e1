package observ

import (
	"strings"
	"testing"
)

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("link")
	tm.End(idx, "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer recorded %d phases", len(r.Phases))
	}
}

func TestSummaryFoldsRepeatedPhases(t *testing.T) {
	tm := NewTimer()
	for range 3 {
		tm.End(tm.Begin("lower-func"), "")
	}
	tm.End(tm.Begin("link"), "lib.ll")

	r := tm.Report()
	if len(r.Phases) != 4 {
		t.Fatalf("expected 4 raw phases, got %d", len(r.Phases))
	}
	folded := r.Folded()
	if len(folded.Phases) != 2 {
		t.Fatalf("expected 2 folded phases, got %d", len(folded.Phases))
	}
	if folded.Phases[0].Name != "lower-func" || folded.Phases[0].Count != 3 {
		t.Errorf("unexpected first phase: %+v", folded.Phases[0])
	}
	summary := tm.Summary()
	if !strings.Contains(summary, "x3") || !strings.Contains(summary, "// lib.ll") {
		t.Errorf("summary missing fold count or note:\n%s", summary)
	}
}

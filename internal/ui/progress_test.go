package ui

import (
	"strings"
	"testing"

	"kernlower/internal/driver"
)

func TestApplyEventTracksFiles(t *testing.T) {
	ch := make(chan driver.Event)
	m := NewProgressModel("lowering", []string{"a.ll", "b.ll"}, ch).(*progressModel)

	m.applyEvent(driver.Event{File: "a.ll", Stage: driver.StageLower, Status: driver.StatusWorking, Done: 1, Total: 2})
	if m.items[0].status != "lowering" || m.items[0].funcs != 1 || m.items[0].total != 2 {
		t.Fatalf("item a = %+v", m.items[0])
	}
	if got := m.percent(); got != (0.2+0.3)/2 {
		t.Fatalf("percent = %v", got)
	}

	m.applyEvent(driver.Event{File: "a.ll", Status: driver.StatusDone})
	m.applyEvent(driver.Event{File: "b.ll", Status: driver.StatusCached})
	if m.finished() != 2 || m.percent() != 1 {
		t.Fatalf("finished = %d, percent = %v", m.finished(), m.percent())
	}
	if m.items[0].stage != driver.StageLower {
		t.Fatalf("final event without a stage should keep the last stage")
	}

	// unknown files are ignored
	if cmd := m.applyEvent(driver.Event{File: "zzz.ll", Status: driver.StatusError}); cmd != nil {
		t.Fatalf("unknown file produced a command")
	}
}

func TestViewListsFiles(t *testing.T) {
	ch := make(chan driver.Event)
	m := NewProgressModel("lowering", []string{"kernels/a.ll"}, ch).(*progressModel)
	m.applyEvent(driver.Event{File: "kernels/a.ll", Stage: driver.StageLower, Status: driver.StatusWorking, Done: 3, Total: 4})
	view := m.View()
	for _, want := range []string{"lowering (0/1)", "kernels/a.ll", "3/4"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}

	if _, cmd := m.Update(doneMsg{}); cmd == nil || !m.done {
		t.Fatalf("doneMsg should quit")
	}
	if !strings.Contains(m.View(), "done: lowering") {
		t.Fatalf("finished view:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.ll", 20, "short.ll"},
		{"a/very/long/path.ll", 10, "a/ve..."},
		{"abcdef", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

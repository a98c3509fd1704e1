package trace

import (
	"fmt"
	"strings"
)

// Level controls how much is traced.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // phase events, kept in a ring for the failure dump
	LevelPhase        // driver and pass events
	LevelDetail       // plus one span per lowered function
	LevelDebug        // plus single rewrites
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// finest holds the finest scope each level admits; the zero Scope admits
// nothing.
var finest = [...]Scope{
	LevelError:  ScopePass,
	LevelPhase:  ScopePass,
	LevelDetail: ScopeFunc,
	LevelDebug:  ScopeInstr,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel reads a --trace-level value.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// Allows reports whether events of scope are recorded at level l.
func (l Level) Allows(scope Scope) bool {
	return int(l) < len(finest) && scope != 0 && scope <= finest[l]
}

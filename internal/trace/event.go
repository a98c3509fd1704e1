package trace

import "time"

// Kind says what an Event marks.
type Kind uint8

const (
	KindBegin     Kind = iota + 1 // span opened
	KindEnd                       // span closed
	KindPoint                     // instant
	KindHeartbeat                 // periodic liveness signal
)

var kindNames = [...]string{
	KindBegin:     "begin",
	KindEnd:       "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Coarser scopes have smaller
// values, so a level admits every scope up to a limit.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // batches and whole files
	ScopePass                    // pipeline stages and standalone passes
	ScopeFunc                    // one function being lowered
	ScopeInstr                   // single rewrites inside a function
)

var scopeNames = [...]string{
	ScopeDriver: "driver",
	ScopePass:   "pass",
	ScopeFunc:   "func",
	ScopeInstr:  "instr",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Attr is one key/value annotation of an event.
type Attr struct {
	Key, Value string
}

// Event is one trace record. Events are immutable once emitted.
type Event struct {
	Time     time.Time
	Seq      uint64 // process-wide, assigned when the event is created
	Kind     Kind
	Scope    Scope
	SpanID   uint64 // 0 for points and heartbeats
	ParentID uint64 // 0 at the root
	File     string // input file the event belongs to, if any
	Name     string // "lower-file", "link", "lower:foo", ...
	Detail   string
	Attrs    []Attr // in the order they were set
}

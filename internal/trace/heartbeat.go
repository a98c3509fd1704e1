package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a liveness event at a fixed interval while a batch runs.
// Each beat carries the number of open spans; beats with spans that never
// close point at a stuck input.
type Heartbeat struct {
	tracer Tracer
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// StartHeartbeat starts beating on tracer. It returns nil when tracing is
// off or interval is not positive; Stop is safe on nil.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || tracer.Level() == LevelOff || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, stop: make(chan struct{})}
	h.wg.Add(1)
	go h.run(interval)
	return h
}

func (h *Heartbeat) run(interval time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ticker.C:
			h.beat(n)
		case <-h.stop:
			return
		}
	}
}

func (h *Heartbeat) beat(n int) {
	h.tracer.Emit(&Event{
		Time:   time.Now(),
		Seq:    nextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeDriver,
		Name:   "heartbeat",
		Detail: fmt.Sprintf("#%d, %d open spans", n, OpenSpans()),
	})
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()
	})
}

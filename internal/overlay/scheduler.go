package overlay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultIdleFallback bounds how long bulk initialization waits for an idle
// signal before running anyway.
const DefaultIdleFallback = 200 * time.Millisecond

// IdleScheduler defers a task until the host reports it is idle, or until a
// fallback delay elapses on the clock, whichever comes first.
type IdleScheduler struct {
	clock    clockwork.Clock
	fallback time.Duration
	idle     <-chan struct{}
}

// NewIdleScheduler creates a scheduler. idle may be nil, in which case only
// the fallback delay applies.
func NewIdleScheduler(clock clockwork.Clock, fallback time.Duration, idle <-chan struct{}) *IdleScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if fallback <= 0 {
		fallback = DefaultIdleFallback
	}
	return &IdleScheduler{clock: clock, fallback: fallback, idle: idle}
}

// Schedule arranges for task to run at most once and returns a cancel
// function. The cancel function never blocks. Cancelling after the task
// started has no effect on it.
func (s *IdleScheduler) Schedule(task func()) (cancel func()) {
	var (
		runOnce   sync.Once
		stopOnce  sync.Once
		cancelled atomic.Bool
		stop      = make(chan struct{})
	)

	halt := func() {
		stopOnce.Do(func() { close(stop) })
	}
	run := func() {
		runOnce.Do(func() {
			halt()
			if cancelled.Load() {
				return
			}
			task()
		})
	}
	timer := s.clock.AfterFunc(s.fallback, run)

	if s.idle != nil {
		go func() {
			select {
			case <-s.idle:
				timer.Stop()
				run()
			case <-stop:
			}
		}()
	}

	return func() {
		cancelled.Store(true)
		timer.Stop()
		halt()
	}
}

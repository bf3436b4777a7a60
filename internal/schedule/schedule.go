// Package schedule provides cancellable timers behind an interface so the
// run engine can be driven by the wall clock in production and by a manual
// clock in tests and simulations.
package schedule

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled callback.
type Task interface {
	// Stop cancels the task. It reports whether the call prevented a
	// pending run; stopping twice is harmless.
	Stop() bool
}

type Scheduler interface {
	Now() time.Time
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Task
	// Every runs f every d until stopped. The first run happens after d.
	Every(d time.Duration, f func()) Task
}

// Real schedules on the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Task {
	return realTimer{time.AfterFunc(d, f)}
}

func (Real) Every(d time.Duration, f func()) Task {
	t := &realTicker{ticker: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				f()
			}
		}
	}()
	return t
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

type realTicker struct {
	ticker *time.Ticker
	once   sync.Once
	done   chan struct{}
}

func (r *realTicker) Stop() bool {
	stopped := false
	r.once.Do(func() {
		r.ticker.Stop()
		close(r.done)
		stopped = true
	})
	return stopped
}

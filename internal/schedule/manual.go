package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler. Time only moves when Advance is
// called, and due callbacks run synchronously on the caller's goroutine in
// due-time order (ties in scheduling order).
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTask struct {
	m        *Manual
	due      time.Time
	every    time.Duration
	seq      uint64
	f        func()
	canceled bool
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.canceled {
		return false
	}
	t.canceled = true
	return t.m.remove(t)
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Task {
	return m.add(d, 0, f)
}

func (m *Manual) Every(d time.Duration, f func()) Task {
	if d <= 0 {
		panic("schedule: non-positive interval")
	}
	return m.add(d, d, f)
}

func (m *Manual) add(d, every time.Duration, f func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, due: m.now.Add(d), every: every, seq: m.seq, f: f}
	m.tasks = append(m.tasks, t)
	return t
}

// remove drops t from the pending list. Caller holds m.mu.
func (m *Manual) remove(t *manualTask) bool {
	for i, p := range m.tasks {
		if p == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Pending reports how many tasks are scheduled and not yet stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, running every task that becomes
// due. Tasks scheduled by callbacks also run if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.every > 0 {
			next.due = next.due.Add(next.every)
		} else {
			m.remove(next)
		}
		f := next.f
		m.mu.Unlock()

		f()
	}
}

// nextDue returns the earliest task due at or before target. Caller holds m.mu.
func (m *Manual) nextDue(target time.Time) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	if m.tasks[0].due.After(target) {
		return nil
	}
	return m.tasks[0]
}

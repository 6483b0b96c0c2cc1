package stream

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Cancel stops a scheduled callback from running. Calling it more than once
// or after the callback has run is harmless.
type Cancel func()

// A Scheduler runs a callback once after a delay.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) Cancel
}

// EventLoop is a Scheduler that runs every callback on a single goroutine.
// Callbacks never overlap.
type EventLoop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewEventLoop creates an EventLoop. Nothing runs until Run is called.
func NewEventLoop() *EventLoop {
	l := new(EventLoop)
	l.queue = make(chan func(), 64)
	l.done = make(chan struct{})
	return l
}

// ScheduleOnce arms a timer that queues fn on the loop after delay.
func (l *EventLoop) ScheduleOnce(delay time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	timer := time.AfterFunc(delay, func() {
		select {
		case l.queue <- func() {
			if !cancelled.Load() {
				fn()
			}
		}:
		case <-l.done:
		}
	})

	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Run executes queued callbacks until ctx is done. A loop cannot be restarted.
func (l *EventLoop) Run(ctx context.Context) {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

type manualEntry struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// ManualScheduler is a Scheduler driven by an explicit clock. Callbacks run
// on the goroutine calling Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualEntry
}

// NewManualScheduler creates a ManualScheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return new(ManualScheduler)
}

// ScheduleOnce records fn to run once the clock reaches now+delay.
func (m *ManualScheduler) ScheduleOnce(delay time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	e := &manualEntry{at: m.now + delay, seq: m.seq, fn: fn}
	m.pending = append(m.pending, e)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		e.cancelled = true
	}
}

// Advance moves the clock forward by d and runs everything that falls due,
// including callbacks scheduled by callbacks within the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		e := m.next(target)
		if e == nil {
			break
		}
		e.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

func (m *ManualScheduler) next(target time.Duration) *manualEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.pending[:0]
	for _, e := range m.pending {
		if !e.cancelled {
			live = append(live, e)
		}
	}
	m.pending = live

	sort.Slice(m.pending, func(i, j int) bool {
		if m.pending[i].at == m.pending[j].at {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].at < m.pending[j].at
	})

	if len(m.pending) == 0 || m.pending[0].at > target {
		return nil
	}

	e := m.pending[0]
	m.pending = m.pending[1:]
	m.now = e.at
	return e
}

// Pending is the number of callbacks waiting to run.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.pending {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// Now is the current clock value.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

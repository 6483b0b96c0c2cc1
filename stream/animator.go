package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrSinkUnavailable means the target layer does not exist yet or the
	// transport behind a sink is not connected.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrAlreadyStarted is returned by Start when a schedule is already running.
	ErrAlreadyStarted = errors.New("animator already started")
)

// A Sink receives dash patterns for a named layer.
type Sink interface {
	SetDashPattern(layerID string, p Pattern) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(layerID string, p Pattern) error

// SetDashPattern calls f.
func (f SinkFunc) SetDashPattern(layerID string, p Pattern) error {
	return f(layerID, p)
}

// AnimatorState is the scheduling state of an Animator.
type AnimatorState int

const (
	// Idle means no tick is pending.
	Idle AnimatorState = iota
	// Scheduled means exactly one tick is pending.
	Scheduled
)

func (s AnimatorState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	default:
		return fmt.Sprintf("AnimatorState(%d)", int(s))
	}
}

// Animator publishes the next pattern of an Animation to a Sink on a fixed
// interval. Each tick arms exactly one successor.
type Animator struct {
	layerID   string
	animation Animation
	sink      Sink
	scheduler Scheduler
	log       logrus.FieldLogger

	mu       sync.Mutex
	state    AnimatorState
	interval time.Duration
	cancel   Cancel
	// generation invalidates callbacks armed by an earlier Start.
	generation uint64
}

// NewAnimator creates an Animator in the Idle state.
func NewAnimator(layerID string, animation Animation, sink Sink, scheduler Scheduler) *Animator {
	a := new(Animator)
	a.layerID = layerID
	a.animation = animation
	a.sink = sink
	a.scheduler = scheduler
	a.log = logrus.WithField("layer", layerID)
	a.state = Idle

	return a
}

// State reports whether a tick is pending.
func (a *Animator) State() AnimatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start schedules the first tick after interval. The returned Cancel stops
// the schedule and must be called when the owner goes away.
func (a *Animator) Start(interval time.Duration) (Cancel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Scheduled {
		return nil, ErrAlreadyStarted
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, interval)
	}

	a.state = Scheduled
	a.interval = interval
	a.generation++
	a.arm(a.generation)
	a.log.WithField("interval", interval).Info("Animation started")

	return a.Stop, nil
}

// Stop cancels the pending tick. Stopping an Idle animator does nothing.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Idle {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.generation++
	a.state = Idle
	a.log.Info("Animation stopped")
}

// Run starts the animation and blocks until ctx is done, then stops it.
func (a *Animator) Run(ctx context.Context, interval time.Duration) error {
	cancel, err := a.Start(interval)
	if err != nil {
		return err
	}
	defer cancel()

	<-ctx.Done()
	return nil
}

// Tick advances the animation and publishes the pattern. When Scheduled the
// next tick is armed; an Idle animator stays Idle.
func (a *Animator) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tick()
	if a.state == Scheduled {
		if a.cancel != nil {
			a.cancel()
		}
		a.arm(a.generation)
	}
}

func (a *Animator) fire(generation uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Scheduled || generation != a.generation {
		return
	}
	a.tick()
	a.arm(generation)
}

func (a *Animator) tick() {
	step, p := a.animation.Advance()
	err := a.sink.SetDashPattern(a.layerID, p)
	if err != nil {
		// Dropped for this cycle only.
		a.log.WithFields(logrus.Fields{"step": step, "error": err}).Debug("Pattern not applied")
		return
	}
	a.log.WithFields(logrus.Fields{"step": step, "dasharray": p}).Trace("Pattern applied")
}

func (a *Animator) arm(generation uint64) {
	a.cancel = a.scheduler.ScheduleOnce(a.interval, func() { a.fire(generation) })
}

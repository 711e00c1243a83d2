package game

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Trigger is a cancellable one-shot timer whose callback runs on the session
// goroutine. Arming replaces any armed timer. A callback whose timer already
// fired but has not run yet is discarded once the trigger is cancelled or
// re-armed, because the generation it captured is no longer current.
type Trigger struct {
	clock clockwork.Clock
	post  func(func())

	generation uint64
	timer      clockwork.Timer
	stop       chan struct{}
}

func newTrigger(clock clockwork.Clock, post func(func())) *Trigger {
	return &Trigger{clock: clock, post: post}
}

// Arm schedules fn after d, cancelling whatever was armed before.
func (t *Trigger) Arm(d time.Duration, fn func()) {
	t.Cancel()

	generation := t.generation
	timer := t.clock.NewTimer(d)
	stop := make(chan struct{})
	t.timer = timer
	t.stop = stop

	go func() {
		select {
		case <-timer.Chan():
			t.post(func() {
				if t.generation != generation {
					return
				}
				t.timer = nil
				t.stop = nil
				fn()
			})
		case <-stop:
			stopAndDrainTimer(timer)
		}
	}()
}

// Cancel disarms the trigger. It is safe to call when nothing is armed.
func (t *Trigger) Cancel() {
	t.generation++
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.timer = nil
}

// Armed reports whether a callback is pending.
func (t *Trigger) Armed() bool {
	return t.timer != nil
}

// stopAndDrainTimer stops a timer and drains its channel so nothing is left
// buffered behind.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

package typewriter

import (
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when starting a Runner that has already been stopped.
var ErrStopped = errors.New("typewriter: runner stopped")

// Runner drives an Animator on a Clock. At most one step is pending at any
// time; each step schedules exactly one successor until Stop is called.
type Runner struct {
	anim     *Animator
	clock    Clock
	onChange func(State)

	mu      sync.Mutex
	state   State
	pending Timer
	gen     uint64
	started bool
	stopped bool
	steps   int
}

// NewRunner creates a Runner. onChange, if non-nil, is called after every
// step with the new state; it runs while no other step can fire, so it must
// not call back into the Runner.
func NewRunner(anim *Animator, clock Clock, onChange func(State)) *Runner {
	if clock == nil {
		clock = SystemClock
	}
	return &Runner{
		anim:     anim,
		clock:    clock,
		onChange: onChange,
		state:    anim.Initial(),
	}
}

// Start schedules the first step. Calling Start twice is a no-op.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}
	if r.started {
		return nil
	}
	r.started = true
	r.schedule(r.anim.FirstDelay())
	return nil
}

// schedule must be called with r.mu held.
func (r *Runner) schedule(d time.Duration) {
	r.gen++
	gen := r.gen
	r.pending = r.clock.AfterFunc(d, func() { r.fire(gen) })
}

func (r *Runner) fire(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A timer that lost the race with Stop, or a superseded one.
	if r.stopped || gen != r.gen {
		return
	}
	next, delay := r.anim.Step(r.state)
	r.state = next
	r.steps++
	if r.onChange != nil {
		r.onChange(next)
	}
	r.schedule(delay)
}

// Stop cancels the pending step. No state change or callback happens after
// Stop returns.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	r.gen++
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

// State returns the current snapshot.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Steps returns how many steps have fired.
func (r *Runner) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

// Stopped reports whether Stop has been called.
func (r *Runner) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Package typewriter implements the rotating hero text: each phrase is typed
// out one character at a time, held for a moment, erased, and followed by the
// next phrase, forever.
//
// The state machine is pure. Animator.Step takes a State and returns the next
// State together with the delay before the following step; a Runner owns the
// actual scheduling.
package typewriter

import (
	"fmt"
	"time"
)

// Cursor is appended to the displayed text on every frame.
const Cursor = "|"

const (
	DefaultTypeDelay   = 100 * time.Millisecond
	DefaultDeleteDelay = 50 * time.Millisecond
	DefaultDwell       = 1500 * time.Millisecond
)

// Mode is the phase the animator is in.
type Mode int

const (
	Typing Mode = iota
	Paused
	Deleting
)

func (m Mode) String() string {
	switch m {
	case Typing:
		return "typing"
	case Paused:
		return "paused"
	case Deleting:
		return "deleting"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is a snapshot of the animator. Text is always a prefix of the phrase
// at Index.
type State struct {
	Index int
	Text  string
	Mode  Mode
}

// Display is what gets rendered: the text followed by the cursor.
func (s State) Display() string {
	return s.Text + Cursor
}

// Timing holds the three intervals that pace the animation.
type Timing struct {
	TypeDelay   time.Duration
	DeleteDelay time.Duration
	Dwell       time.Duration
}

// DefaultTiming returns 100ms per typed character, 50ms per deleted
// character and a 1.5s hold on the full phrase.
func DefaultTiming() Timing {
	return Timing{
		TypeDelay:   DefaultTypeDelay,
		DeleteDelay: DefaultDeleteDelay,
		Dwell:       DefaultDwell,
	}
}

// Option configures an Animator.
type Option func(*Animator)

// WithTiming overrides the default intervals. Zero fields keep the default.
func WithTiming(t Timing) Option {
	return func(a *Animator) {
		if t.TypeDelay > 0 {
			a.timing.TypeDelay = t.TypeDelay
		}
		if t.DeleteDelay > 0 {
			a.timing.DeleteDelay = t.DeleteDelay
		}
		if t.Dwell > 0 {
			a.timing.Dwell = t.Dwell
		}
	}
}

// Animator cycles through a fixed list of phrases. It holds no mutable state
// and is safe to share.
type Animator struct {
	phrases [][]rune
	timing  Timing
}

// New builds an Animator. An empty phrase list is a programming error and
// panics.
func New(phrases []string, opts ...Option) *Animator {
	if len(phrases) == 0 {
		panic("typewriter: phrase list must not be empty")
	}
	a := &Animator{
		phrases: make([][]rune, len(phrases)),
		timing:  DefaultTiming(),
	}
	for i, p := range phrases {
		a.phrases[i] = []rune(p)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Len returns the number of phrases.
func (a *Animator) Len() int { return len(a.phrases) }

// Phrase returns the phrase at index i.
func (a *Animator) Phrase(i int) string { return string(a.phrases[i]) }

// Timing returns the intervals in use.
func (a *Animator) Timing() Timing { return a.timing }

// Initial is the state on mount: first phrase, nothing typed, typing.
func (a *Animator) Initial() State {
	return State{Index: 0, Text: "", Mode: Typing}
}

// FirstDelay is how long the host waits before the first step.
func (a *Animator) FirstDelay() time.Duration {
	return a.timing.TypeDelay
}

// Step advances the machine by one scheduled step and returns the new state
// plus the delay until the next step should fire.
func (a *Animator) Step(s State) (State, time.Duration) {
	phrase := a.phrases[s.Index]
	n := len([]rune(s.Text))

	switch s.Mode {
	case Typing:
		if n < len(phrase) {
			n++
		}
		next := State{Index: s.Index, Text: string(phrase[:n]), Mode: Typing}
		if n == len(phrase) {
			next.Mode = Paused
			return next, a.timing.Dwell
		}
		return next, a.timing.TypeDelay

	case Paused:
		return State{Index: s.Index, Text: s.Text, Mode: Deleting}, a.timing.DeleteDelay

	case Deleting:
		if n > 0 {
			n--
		}
		if n == 0 {
			return State{Index: (s.Index + 1) % len(a.phrases), Mode: Typing}, a.timing.TypeDelay
		}
		return State{Index: s.Index, Text: string(phrase[:n]), Mode: Deleting}, a.timing.DeleteDelay
	}

	panic(fmt.Sprintf("typewriter: unknown mode %v", s.Mode))
}

// CycleSteps returns how many steps it takes to go through every phrase once
// and land back on the initial state.
func (a *Animator) CycleSteps() int {
	total := 0
	for _, p := range a.phrases {
		l := max(len(p), 1)
		// type, hold, delete
		total += l + 1 + l
	}
	return total
}

// CycleDuration is the wall time of one full loop.
func (a *Animator) CycleDuration() time.Duration {
	var d time.Duration
	s := a.Initial()
	delay := a.FirstDelay()
	for i := 0; i < a.CycleSteps(); i++ {
		d += delay
		s, delay = a.Step(s)
	}
	return d
}

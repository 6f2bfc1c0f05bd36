// Package session mounts the hero animator and the section tracker for one
// connected browser and turns their state changes into events the HTTP layer
// streams back.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkhatri/portfolio/internal/sections"
	"github.com/dkhatri/portfolio/internal/typewriter"
)

var ErrNotFound = errors.New("session not found")

// Event kinds sent to the browser.
const (
	KindTypewriter = "typewriter"
	KindSection    = "section"
	KindScroll     = "scroll"
)

type TypewriterFrame struct {
	Text    string `json:"text"`
	Display string `json:"display"`
	Index   int    `json:"index"`
	Mode    string `json:"mode"`
}

type SectionChange struct {
	Active string `json:"active"`
}

type ScrollCommand struct {
	Top      float64 `json:"top"`
	Behavior string  `json:"behavior"`
}

type Event struct {
	Kind string
	Data any
}

// Session is one mounted page. Close unmounts it.
type Session struct {
	ID string

	runner     *typewriter.Runner
	tracker    *sections.Tracker
	dispatcher *sections.Dispatcher
	events     chan Event
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newSession(id string, anim *typewriter.Animator, clock typewriter.Clock, layout sections.Layout, buffer int, logger *zap.Logger) *Session {
	s := &Session{
		ID:         id,
		dispatcher: sections.NewDispatcher(),
		events:     make(chan Event, buffer),
		logger:     logger.With(zap.String("session", id)),
		done:       make(chan struct{}),
	}
	s.runner = typewriter.NewRunner(anim, clock, func(st typewriter.State) {
		s.emit(Event{Kind: KindTypewriter, Data: frame(st)})
	})
	s.tracker = sections.NewTracker(layout, func(active string) {
		s.emit(Event{Kind: KindSection, Data: SectionChange{Active: active}})
	})
	return s
}

func frame(st typewriter.State) TypewriterFrame {
	return TypewriterFrame{
		Text:    st.Text,
		Display: st.Display(),
		Index:   st.Index,
		Mode:    st.Mode.String(),
	}
}

func (s *Session) mount() error {
	s.tracker.Mount(s.dispatcher)
	return s.runner.Start()
}

// emit never blocks a step: when the buffer is full the oldest event is
// dropped.
func (s *Session) emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.events <- e:
			return
		default:
		}
		select {
		case old := <-s.events:
			s.logger.Debug("dropping slow event", zap.String("kind", old.Kind))
		default:
		}
	}
}

// Events is closed when the session is.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the session is.
func (s *Session) Done() <-chan struct{} { return s.done }

// Frame is the current typewriter frame.
func (s *Session) Frame() TypewriterFrame { return frame(s.runner.State()) }

// Scroll records the measured layout and dispatches a scroll sample. It
// returns the active section after the sample.
func (s *Session) Scroll(scrollY float64, layout sections.Layout) string {
	if layout != nil {
		s.tracker.SetLayout(layout)
	}
	s.dispatcher.Dispatch(scrollY)
	active, _ := s.tracker.Active()
	return active
}

// Active is the highlighted section, "" when none has matched yet.
func (s *Session) Active() string {
	active, _ := s.tracker.Active()
	return active
}

// ScrollTo asks the browser to scroll to section id. Unknown ids do nothing
// and return false.
func (s *Session) ScrollTo(id string) (float64, bool) {
	var target float64
	ok := s.tracker.ScrollTo(id, sections.ScrollerFunc(func(top float64) {
		target = top
		s.emit(Event{Kind: KindScroll, Data: ScrollCommand{Top: top, Behavior: "smooth"}})
	}))
	return target, ok
}

// Listeners is the number of scroll listeners still attached.
func (s *Session) Listeners() int { return s.dispatcher.Listeners() }

// Steps is the number of animator steps taken.
func (s *Session) Steps() int { return s.runner.Steps() }

// Close stops the animator, detaches the tracker and closes the event
// stream. It is safe to call more than once.
func (s *Session) Close() {
	s.runner.Stop()
	s.tracker.Unmount()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
	close(s.done)
}

// Manager keeps the open sessions.
type Manager struct {
	anim   *typewriter.Animator
	clock  typewriter.Clock
	layout sections.Layout
	buffer int
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Manager)

// WithClock replaces the system clock, mainly for tests.
func WithClock(c typewriter.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLayout sets the layout sessions start with before the browser reports
// its own measurements.
func WithLayout(l sections.Layout) Option {
	return func(m *Manager) { m.layout = l }
}

// WithBuffer sets the per-session event buffer.
func WithBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.buffer = n
		}
	}
}

func NewManager(anim *typewriter.Animator, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		anim:     anim,
		clock:    typewriter.SystemClock,
		buffer:   32,
		logger:   logger,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates and mounts a session.
func (m *Manager) Open() (*Session, error) {
	s := newSession(uuid.NewString(), m.anim, m.clock, m.layout, m.buffer, m.logger)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if err := s.mount(); err != nil {
		m.Close(s.ID)
		return nil, err
	}
	m.logger.Debug("session opened", zap.String("session", s.ID))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close unmounts and forgets session id. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Close()
	m.logger.Debug("session closed", zap.String("session", id), zap.Int("steps", s.Steps()))
}

// CloseAll unmounts every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Close(id)
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Keepalive is how often the stream handler writes a comment to keep idle
// proxies from cutting the connection.
const Keepalive = 15 * time.Second

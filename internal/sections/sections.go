// Package sections works out which page section the reader is looking at,
// so the navigation bar can highlight it, and where to scroll to reach a
// section from a nav link.
package sections

import "sync"

const (
	// ProbeOffset is added to the scroll position so the probe sits just
	// below the fixed header.
	ProbeOffset = 200.0
	// HeaderOffset is subtracted from a section's top when scrolling to it.
	HeaderOffset = 80.0
)

// Section is the id and vertical extent of a page region, in document
// pixels.
type Section struct {
	ID     string  `json:"id" yaml:"id"`
	Top    float64 `json:"top" yaml:"top"`
	Height float64 `json:"height" yaml:"height"`
}

// Contains reports whether y falls inside [Top, Top+Height).
func (s Section) Contains(y float64) bool {
	return y >= s.Top && y < s.Top+s.Height
}

// Layout lists sections in document order.
type Layout []Section

// Find returns the section with the given id.
func (l Layout) Find(id string) (Section, bool) {
	for _, s := range l {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Probe is the document position tested against section extents.
func Probe(scrollY float64) float64 {
	return scrollY + ProbeOffset
}

// Resolve returns the active section id after a scroll to scrollY. The last
// section containing the probe wins; when none does, active is returned
// unchanged.
func Resolve(active string, scrollY float64, layout Layout) string {
	probe := Probe(scrollY)
	for _, s := range layout {
		if s.Contains(probe) {
			active = s.ID
		}
	}
	return active
}

// ScrollTarget returns the scroll position that brings section id under the
// header.
func ScrollTarget(id string, layout Layout) (float64, bool) {
	s, ok := layout.Find(id)
	if !ok {
		return 0, false
	}
	return s.Top - HeaderOffset, true
}

// Scroller is implemented by the host to perform a smooth scroll.
type Scroller interface {
	ScrollTo(top float64)
}

// ScrollerFunc adapts a function to Scroller.
type ScrollerFunc func(top float64)

func (f ScrollerFunc) ScrollTo(top float64) { f(top) }

// ScrollSource delivers scroll positions to registered listeners.
type ScrollSource interface {
	AddScrollListener(fn func(scrollY float64)) (remove func())
}

// Tracker keeps the active section for one mounted page.
type Tracker struct {
	mu       sync.Mutex
	layout   Layout
	active   string
	onChange func(active string)
	remove   func()
	detached bool
}

// NewTracker returns a tracker with no active section. onChange, if set, is
// called whenever the active id changes.
func NewTracker(layout Layout, onChange func(active string)) *Tracker {
	return &Tracker{
		layout:   append(Layout(nil), layout...),
		onChange: onChange,
	}
}

// SetLayout replaces the measured sections.
func (t *Tracker) SetLayout(layout Layout) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.layout = append(Layout(nil), layout...)
}

// Layout returns a copy of the current sections.
func (t *Tracker) Layout() Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append(Layout(nil), t.layout...)
}

// Active returns the active id, or "" with ok false when none has matched
// yet.
func (t *Tracker) Active() (id string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.active != ""
}

// Observe handles one scroll sample and returns the active id.
func (t *Tracker) Observe(scrollY float64) string {
	t.mu.Lock()
	if t.detached {
		active := t.active
		t.mu.Unlock()
		return active
	}
	prev := t.active
	t.active = Resolve(prev, scrollY, t.layout)
	active := t.active
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil && active != prev {
		onChange(active)
	}
	return active
}

// ScrollTo asks s to scroll to section id. Unknown ids are ignored and
// reported as false.
func (t *Tracker) ScrollTo(id string, s Scroller) bool {
	t.mu.Lock()
	top, ok := ScrollTarget(id, t.layout)
	t.mu.Unlock()
	if !ok {
		return false
	}
	s.ScrollTo(top)
	return true
}

// Mount subscribes the tracker to src. A tracker mounts once.
func (t *Tracker) Mount(src ScrollSource) {
	t.mu.Lock()
	if t.remove != nil || t.detached {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	remove := src.AddScrollListener(func(y float64) { t.Observe(y) })

	t.mu.Lock()
	if t.detached {
		// unmounted while subscribing
		t.mu.Unlock()
		remove()
		return
	}
	t.remove = remove
	t.mu.Unlock()
}

// Unmount removes the scroll listener. Later samples are ignored.
func (t *Tracker) Unmount() {
	t.mu.Lock()
	remove := t.remove
	t.remove = nil
	t.detached = true
	t.mu.Unlock()

	if remove != nil {
		remove()
	}
}

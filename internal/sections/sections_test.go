package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var page = Layout{
	{ID: "home", Top: 0, Height: 800},
	{ID: "about", Top: 800, Height: 600},
	{ID: "experience", Top: 1400, Height: 1000},
	{ID: "projects", Top: 2400, Height: 900},
	{ID: "contact", Top: 3300, Height: 700},
}

func TestResolveScenario(t *testing.T) {
	layout := Layout{
		{ID: "home", Top: 0, Height: 800},
		{ID: "about", Top: 800, Height: 600},
	}
	assert.Equal(t, "about", Resolve("", 700, layout))
	assert.Equal(t, "home", Resolve("about", 0, layout))
}

func TestResolveBoundaries(t *testing.T) {
	// probe 800 is the first pixel of about
	assert.Equal(t, "about", Resolve("home", 600, page))
	// probe 799 is the last pixel of home
	assert.Equal(t, "home", Resolve("about", 599, page))
}

func TestResolveKeepsActiveOutsideSections(t *testing.T) {
	gapped := Layout{
		{ID: "home", Top: 300, Height: 200},
		{ID: "about", Top: 700, Height: 200},
	}
	// above every section
	assert.Equal(t, "", Resolve("", 0, gapped))
	assert.Equal(t, "about", Resolve("about", 0, gapped))
	// in the gap between home and about
	assert.Equal(t, "home", Resolve("home", 350, gapped))
	// past the end
	assert.Equal(t, "about", Resolve("about", 5000, gapped))
}

func TestResolveLastMatchWins(t *testing.T) {
	overlapping := Layout{
		{ID: "a", Top: 0, Height: 1000},
		{ID: "b", Top: 100, Height: 1000},
		{ID: "c", Top: 5000, Height: 10},
	}
	assert.Equal(t, "b", Resolve("", 200, overlapping))
}

func TestScrollTarget(t *testing.T) {
	top, ok := ScrollTarget("projects", page)
	require.True(t, ok)
	assert.Equal(t, 2320.0, top)

	_, ok = ScrollTarget("blog", page)
	assert.False(t, ok)
}

func TestTrackerObserve(t *testing.T) {
	var changes []string
	tr := NewTracker(page, func(id string) { changes = append(changes, id) })

	_, ok := tr.Active()
	assert.False(t, ok)

	assert.Equal(t, "home", tr.Observe(0))
	assert.Equal(t, "home", tr.Observe(100))
	assert.Equal(t, "about", tr.Observe(700))
	assert.Equal(t, "contact", tr.Observe(3500))
	assert.Equal(t, []string{"home", "about", "contact"}, changes)

	id, ok := tr.Active()
	assert.True(t, ok)
	assert.Equal(t, "contact", id)
}

func TestTrackerSetLayout(t *testing.T) {
	tr := NewTracker(nil, nil)
	assert.Equal(t, "", tr.Observe(0))

	tr.SetLayout(page)
	assert.Equal(t, "home", tr.Observe(0))
	assert.Len(t, tr.Layout(), len(page))
}

func TestTrackerScrollTo(t *testing.T) {
	tr := NewTracker(page, nil)
	var got []float64
	s := ScrollerFunc(func(top float64) { got = append(got, top) })

	assert.True(t, tr.ScrollTo("about", s))
	assert.False(t, tr.ScrollTo("missing", s))
	assert.Equal(t, []float64{720}, got)
}

func TestTrackerMountUnmount(t *testing.T) {
	d := NewDispatcher()
	tr := NewTracker(page, nil)
	tr.Mount(d)
	tr.Mount(d)
	assert.Equal(t, 1, d.Listeners())

	d.Dispatch(700)
	id, _ := tr.Active()
	assert.Equal(t, "about", id)

	tr.Unmount()
	assert.Equal(t, 0, d.Listeners())

	d.Dispatch(3500)
	id, _ = tr.Active()
	assert.Equal(t, "about", id)
	// direct calls after unmount don't mutate either
	assert.Equal(t, "about", tr.Observe(0))

	tr.Mount(d)
	assert.Equal(t, 0, d.Listeners())
}

// unmountingSource unmounts the tracker while it is still subscribing.
type unmountingSource struct {
	d  *Dispatcher
	tr *Tracker
}

func (s *unmountingSource) AddScrollListener(fn func(scrollY float64)) func() {
	remove := s.d.AddScrollListener(fn)
	s.tr.Unmount()
	return remove
}

func TestTrackerUnmountDuringMount(t *testing.T) {
	d := NewDispatcher()
	tr := NewTracker(page, nil)
	tr.Mount(&unmountingSource{d: d, tr: tr})
	assert.Equal(t, 0, d.Listeners())

	d.Dispatch(700)
	_, ok := tr.Active()
	assert.False(t, ok)
}

func TestDispatcherOrderAndRemoval(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	removeA := d.AddScrollListener(func(float64) { calls = append(calls, "a") })
	d.AddScrollListener(func(float64) { calls = append(calls, "b") })

	d.Dispatch(1)
	removeA()
	removeA()
	d.Dispatch(2)

	assert.Equal(t, []string{"a", "b", "b"}, calls)
	assert.Equal(t, 1, d.Listeners())
}

package sections

import "sync"

// Dispatcher is a ScrollSource fed by the host. Dispatch calls every listener
// in registration order, on the caller's goroutine; concurrent Dispatch calls
// are serialized.
type Dispatcher struct {
	dispatch sync.Mutex

	mu        sync.Mutex
	next      int
	listeners map[int]func(float64)
	order     []int
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[int]func(float64))}
}

func (d *Dispatcher) AddScrollListener(fn func(scrollY float64)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	d.listeners[id] = fn
	d.order = append(d.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.listeners, id)
			for i, x := range d.order {
				if x == id {
					d.order = append(d.order[:i], d.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Dispatch delivers one scroll sample.
func (d *Dispatcher) Dispatch(scrollY float64) {
	d.dispatch.Lock()
	defer d.dispatch.Unlock()

	d.mu.Lock()
	fns := make([]func(float64), 0, len(d.order))
	for _, id := range d.order {
		fns = append(fns, d.listeners[id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(scrollY)
	}
}

// Listeners returns the number of registered listeners.
func (d *Dispatcher) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

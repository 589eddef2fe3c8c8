package watch

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Debouncer coalesces bursts of changed paths into one callback.
type Debouncer struct {
	mu       sync.Mutex
	pending  mapset.Set[string]
	timer    *time.Timer
	inflight sync.WaitGroup
	window   time.Duration
	callback func(paths []string)
}

func NewDebouncer(window time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		pending:  mapset.NewThreadUnsafeSet[string](),
		window:   window,
		callback: callback,
	}
}

// Add queues path and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending.Add(path)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) drain() []string {
	paths := d.pending.ToSlice()
	d.pending.Clear()
	return paths
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	// Flush may have emptied the set already
	if d.pending.Cardinality() == 0 || d.callback == nil {
		d.mu.Unlock()
		return
	}
	paths := d.drain()
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	d.callback(paths)
}

// Flush runs the callback for everything pending and blocks until it and any
// callback started by an expired window have returned.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	paths := d.drain()
	d.mu.Unlock()

	if len(paths) > 0 && d.callback != nil {
		d.callback(paths)
	}
	d.inflight.Wait()
}

package reactive

type effect struct {
	rs   *ReactiveSystem
	fn   ErrFn
	deps []dependency
	seen map[dependency]struct{}

	queued  bool
	running bool
	stopped bool
}

func (e *effect) isSignalAware() {}

func (e *effect) link(dep dependency) {
	if _, ok := e.seen[dep]; ok {
		return
	}
	e.seen[dep] = struct{}{}
	e.deps = append(e.deps, dep)
	dep.addSub(e)
}

func (e *effect) clearTracking() {
	for _, dep := range e.deps {
		dep.removeSub(e)
	}
	e.deps = e.deps[:0]
	clear(e.seen)
}

// Effect runs fn immediately and again whenever a signal it read changes.
// Dependencies are re-tracked on every run. The returned stop func unlinks
// the effect from everything it reads; calling it more than once is fine.
func Effect(rs *ReactiveSystem, fn ErrFn) (stop func()) {
	e := &effect{
		rs:   rs,
		fn:   fn,
		seen: map[dependency]struct{}{},
	}
	rs.runEffect(e)

	return func() {
		if e.stopped {
			return
		}
		e.stopped = true
		e.clearTracking()
	}
}

func (rs *ReactiveSystem) runEffect(e *effect) {
	if e.stopped || e.running {
		return
	}
	prevSub := rs.activeSub
	rs.activeSub = e
	e.running = true
	e.clearTracking()
	defer func() {
		e.running = false
		rs.activeSub = prevSub
	}()

	if err := e.fn(); err != nil {
		if rs.onError != nil {
			rs.onError(e, err)
		}
	}
}

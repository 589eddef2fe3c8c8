package reactive

// ReactiveSystem owns the tracking context shared by a set of signals and effects.
// It is not safe for concurrent use; callers serialize access.
type ReactiveSystem struct {
	batchDepth    int
	activeSub     *effect
	pauseStack    []*effect
	queuedEffects []*effect

	onError OnErrorFunc
}

func CreateReactiveSystem(onError OnErrorFunc) *ReactiveSystem {
	rs := &ReactiveSystem{onError: onError}

	return rs
}

func (rs *ReactiveSystem) StartBatch() {
	rs.batchDepth++
}

func (rs *ReactiveSystem) EndBatch() {
	rs.batchDepth--
	if rs.batchDepth == 0 {
		rs.processEffectNotifications()
	}
}

// Batch defers effect execution until cb returns. Effects queued several
// times during the batch run once.
func (rs *ReactiveSystem) Batch(cb func()) {
	rs.StartBatch()
	defer rs.EndBatch()
	cb()
}

func (rs *ReactiveSystem) PauseTracking() {
	rs.pauseStack = append(rs.pauseStack, rs.activeSub)
	rs.activeSub = nil
}

func (rs *ReactiveSystem) ResumeTracking() {
	lastIdx := len(rs.pauseStack) - 1
	rs.activeSub = rs.pauseStack[lastIdx]
	rs.pauseStack = rs.pauseStack[:lastIdx]
}

// Untracked runs fn with no active subscriber. The previous subscriber is
// restored even if fn panics.
func (rs *ReactiveSystem) Untracked(fn func()) {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	fn()
}

func Untrack[T any](rs *ReactiveSystem, fn func() T) T {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	return fn()
}

// Tracking reports whether a read right now would register a subscription.
func (rs *ReactiveSystem) Tracking() bool {
	return rs.activeSub != nil
}

func (rs *ReactiveSystem) propagate(subs subscribers) {
	if subs.Cardinality() == 0 {
		return
	}
	// effects relink while running, so iterate over a snapshot
	for _, e := range subs.ToSlice() {
		rs.enqueue(e)
	}
	if rs.batchDepth == 0 {
		rs.processEffectNotifications()
	}
}

func (rs *ReactiveSystem) enqueue(e *effect) {
	if e.queued || e.stopped || e.running {
		return
	}
	e.queued = true
	rs.queuedEffects = append(rs.queuedEffects, e)
}

// Drains the effect queue. Effects queued while draining (an effect writing
// another signal) are picked up by the same loop.
func (rs *ReactiveSystem) processEffectNotifications() {
	for len(rs.queuedEffects) > 0 {
		e := rs.queuedEffects[0]
		rs.queuedEffects[0] = nil
		rs.queuedEffects = rs.queuedEffects[1:]
		e.queued = false
		rs.runEffect(e)
	}
	rs.queuedEffects = nil
}

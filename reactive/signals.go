package reactive

type WriteableSignal[T comparable] struct {
	rs    *ReactiveSystem
	value T
	subs  subscribers
}

func (s *WriteableSignal[T]) isSignalAware() {}

// Value reads the signal and subscribes the running effect, if any.
func (s *WriteableSignal[T]) Value() T {
	if s.rs.activeSub != nil {
		s.rs.activeSub.link(s)
	}
	return s.value
}

// Peek reads the signal without subscribing.
func (s *WriteableSignal[T]) Peek() T {
	return s.value
}

// SetValue stores v and notifies subscribers. Writing the current value is a
// no-op and reports false.
func (s *WriteableSignal[T]) SetValue(v T) bool {
	if s.value == v {
		return false
	}
	s.value = v
	s.rs.propagate(s.subs)
	return true
}

// Notify re-runs subscribers without changing the value.
func (s *WriteableSignal[T]) Notify() {
	s.rs.propagate(s.subs)
}

func (s *WriteableSignal[T]) Subscribers() int {
	return s.subs.Cardinality()
}

func (s *WriteableSignal[T]) addSub(e *effect) {
	s.subs.Add(e)
}

func (s *WriteableSignal[T]) removeSub(e *effect) {
	s.subs.Remove(e)
}

func Signal[T comparable](rs *ReactiveSystem, initialValue T) *WriteableSignal[T] {
	s := &WriteableSignal[T]{
		rs:    rs,
		value: initialValue,
		subs:  newSubscribers(),
	}
	return s
}

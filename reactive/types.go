package reactive

import mapset "github.com/deckarep/golang-set/v2"

type ErrFn func() error

type OnErrorFunc func(from SignalAware, err error)

type SignalAware interface {
	isSignalAware()
}

// dependency is anything an effect can subscribe to.
type dependency interface {
	SignalAware
	addSub(e *effect)
	removeSub(e *effect)
}

type subscribers = mapset.Set[*effect]

func newSubscribers() subscribers {
	return mapset.NewThreadUnsafeSet[*effect]()
}

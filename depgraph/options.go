package depgraph

import (
	"io"
	"log/slog"
)

// DefaultSweepThreshold is the number of unreferenced keys that triggers an
// automatic sweep of their signals.
const DefaultSweepThreshold = 1024

type Option func(*Graph)

// WithSweepThreshold sets the automatic sweep threshold. n <= 0 disables
// automatic sweeps; SweepUnreferencedDependencySignals still works.
func WithSweepThreshold(n int) Option {
	return func(g *Graph) {
		g.sweepThreshold = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Graph) {
		if o != nil {
			g.observer = o
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Observer receives counts from graph operations. Implementations must not
// call back into the graph.
type Observer interface {
	NodeRegistered(nodeKey string, dependencies int)
	NodeUnregistered(nodeKey string)
	DependenciesTouched(n int)
	NodesAffected(n int)
	SignalsSwept(n int)
}

type NopObserver struct{}

func (NopObserver) NodeRegistered(string, int) {}
func (NopObserver) NodeUnregistered(string)    {}
func (NopObserver) DependenciesTouched(int)    {}
func (NopObserver) NodesAffected(int)          {}
func (NopObserver) SignalsSwept(int)           {}

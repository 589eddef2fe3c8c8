package depgraph

import "log/slog"

func (g *Graph) maybeSweep() {
	if g.sweepThreshold <= 0 || g.pendingCleanup.Cardinality() < g.sweepThreshold {
		return
	}
	g.SweepUnreferencedDependencySignals()
}

// SweepUnreferencedDependencySignals deletes the signals of keys that are
// still unreferenced since they were queued for cleanup and returns how many
// were removed.
func (g *Graph) SweepUnreferencedDependencySignals() int {
	removed := 0
	g.pendingCleanup.Each(func(key string) bool {
		if g.refCounts[key] > 0 {
			return false
		}
		if _, ok := g.signals[key]; ok {
			delete(g.signals, key)
			removed++
		}
		return false
	})
	g.pendingCleanup.Clear()

	if removed > 0 {
		g.logger.Debug("swept dependency signals", slog.Int("removed", removed), slog.Int("remaining", len(g.signals)))
	}
	g.observer.SignalsSwept(removed)
	return removed
}

package script

import (
	"github.com/souporserious/renoun-depgraph/depgraph"
	"go.trai.ch/zerr"
)

// Run executes every step against g in order. It stops at the first failed
// expectation and returns the results up to and including that step.
func (s *Script) Run(g *depgraph.Graph) ([]Result, error) {
	results := make([]Result, 0, len(s.Steps))
	for i, step := range s.Steps {
		res, err := apply(g, i, step)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if err := checkExpectations(i, step, res); err != nil {
			return results, err
		}
	}
	return results, nil
}

func apply(g *depgraph.Graph, i int, step Step) (Result, error) {
	res := Result{Index: i, Op: step.Op, Target: step.Target()}

	switch step.Op {
	case OpRegister:
		g.RegisterNode(step.Node, step.Deps)
	case OpUnregister:
		g.UnregisterNode(step.Node)
	case OpSetVersion:
		g.SetDependencyVersion(step.Key, step.Version)
	case OpTouch:
		g.TouchDependency(step.Key)
		res.Keys = g.GetAffectedNodeKeys(step.Key)
	case OpTouchPath:
		res.Keys = g.TouchPathDependencies(step.Path)
	case OpAffected:
		res.Keys = g.GetAffectedNodeKeysForPathDependency(step.Path)
	case OpKeys:
		res.Keys = g.GetPathDependencyKeys(step.Path)
	case OpMarkDirty:
		g.MarkNodeDirty(step.Node)
	case OpMarkVersion:
		g.MarkNodeVersion(step.Node, step.Version)
	case OpDirty:
		res.Keys = g.GetDirtyNodeKeys(step.Prefix)
	case OpSweep:
		res.Count = g.SweepUnreferencedDependencySignals()
	case OpSignals:
		res.Count = g.GetDependencySignalCount()
	case OpClear:
		g.Clear()
	default:
		return res, zerr.With(zerr.With(zerr.Wrap(ErrUnknownOp, "run step"), "step", i), "op", string(step.Op))
	}
	if len(res.Keys) > 0 {
		res.Count = len(res.Keys)
	}
	return res, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/souporserious/renoun-depgraph/depgraph"
	"github.com/urfave/cli/v3"
	"go.trai.ch/zerr"
)

const (
	widthKey = "width"
	depthKey = "depth"
	itersKey = "iters"
)

var ErrInvalidBenchSize = zerr.New("width, depth and iters must be positive")

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure invalidation latency over chains of nodes",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  widthKey,
				Usage: "Number of independent chains",
				Value: 100,
			},
			&cli.UintFlag{
				Name:  depthKey,
				Usage: "Nodes per chain, each depending on the previous one",
				Value: 10,
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Samples per scenario",
				Value: 100,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runBench(cmd.Root().Writer, int(cmd.Uint(widthKey)), int(cmd.Uint(depthKey)), int(cmd.Uint(itersKey)))
		},
	}
}

func chainNodeKey(chain, level int) string {
	return fmt.Sprintf("chain%d/%d", chain, level)
}

func chainFile(chain, level int) string {
	return fmt.Sprintf("src/chain%d/%d.ts", chain, level)
}

// buildChains registers width chains of depth nodes. Level 0 depends on its
// file; every later level also depends on node:<previous level>.
//
//	file:src/chain0/0.ts   file:src/chain0/1.ts
//	        |                      |
//	    chain0/0 --node:--> chain0/1 --node:--> ...
func buildChains(g *depgraph.Graph, width, depth int) {
	for i := range width {
		for j := range depth {
			deps := []string{depgraph.FileKey(chainFile(i, j))}
			if j > 0 {
				deps = append(deps, depgraph.NodeKey(chainNodeKey(i, j-1)))
			}
			g.RegisterNode(chainNodeKey(i, j), deps)
		}
	}
}

func clearAllDirty(g *depgraph.Graph) {
	for _, key := range g.GetDirtyNodeKeys("") {
		g.ClearDirty(key)
	}
}

type benchScenario struct {
	name string
	run  func(g *depgraph.Graph) int
}

func runBench(w io.Writer, width, depth, iters int) error {
	if width <= 0 || depth <= 0 || iters <= 0 {
		err := zerr.With(zerr.Wrap(ErrInvalidBenchSize, "configure bench"), "width", width)
		return zerr.With(zerr.With(err, "depth", depth), "iters", iters)
	}

	scenarios := []benchScenario{
		{"touch chain head", func(g *depgraph.Graph) int {
			return len(g.TouchPathDependencies(chainFile(0, 0)))
		}},
		{"touch chain tail", func(g *depgraph.Graph) int {
			return len(g.TouchPathDependencies(chainFile(width-1, depth-1)))
		}},
		{"touch src dir", func(g *depgraph.Graph) int {
			return len(g.TouchPathDependencies("src"))
		}},
		{"affected src dir (dry)", func(g *depgraph.Graph) int {
			return len(g.GetAffectedNodeKeysForPathDependency("src"))
		}},
		{"set version chain head", func(g *depgraph.Graph) int {
			g.SetDependencyVersion(depgraph.FileKey(chainFile(0, 0)), time.Now().String())
			return len(g.GetDirtyNodeKeys("chain0/"))
		}},
	}

	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("Dependency graph: %s chains x %s levels (%s nodes)",
		humanize.Comma(int64(width)),
		humanize.Comma(int64(depth)),
		humanize.Comma(int64(width*depth)),
	))
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"benchmark", "affected", "avg", "min", "p75", "p99", "max"})

	registerTach := tachymeter.New(&tachymeter.Config{Size: iters})
	g := depgraph.New()
	for range iters {
		g.Clear()
		start := time.Now()
		buildChains(g, width, depth)
		registerTach.AddTime(time.Since(start))
	}
	appendCalc(tbl, "register all", width*depth, registerTach.Calc())

	for _, sc := range scenarios {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})
		affected := 0
		for range iters {
			clearAllDirty(g)
			start := time.Now()
			affected = sc.run(g)
			tach.AddTime(time.Since(start))
		}
		appendCalc(tbl, sc.name, affected, tach.Calc())
	}

	tbl.Render()
	return nil
}

func appendCalc(tbl table.Writer, name string, affected int, calc *tachymeter.Metrics) {
	tbl.AppendRows([]table.Row{
		{
			name,
			humanize.Comma(int64(affected)),
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
		},
	})
}

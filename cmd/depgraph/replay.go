package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/souporserious/renoun-depgraph/depgraph"
	"github.com/souporserious/renoun-depgraph/script"
	"github.com/urfave/cli/v3"
	"go.trai.ch/zerr"
)

var ErrMissingScript = zerr.New("missing script path")

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Run a YAML script of graph operations against a fresh graph",
		ArgsUsage: "<script.yaml>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return ErrMissingScript
			}
			s, err := script.Load(path)
			if err != nil {
				return err
			}
			return replay(cmd.Root().Writer, s, slog.Default())
		},
	}
}

// replay runs s and renders every executed step, including a failing one.
func replay(w io.Writer, s *script.Script, logger *slog.Logger) error {
	g := depgraph.New(depgraph.WithLogger(logger))
	results, runErr := s.Run(g)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"step", "op", "target", "result"})
	table.SetAutoWrapText(false)
	for _, res := range results {
		table.Append([]string{
			strconv.Itoa(res.Index),
			string(res.Op),
			res.Target,
			res.String(),
		})
	}
	table.Render()

	stats := g.Stats()
	fmt.Fprintf(w, "%s of %s steps ran, %s nodes (%s dirty), %s signals, %s pending cleanup\n",
		humanize.Comma(int64(len(results))),
		humanize.Comma(int64(len(s.Steps))),
		humanize.Comma(int64(stats.Nodes)),
		humanize.Comma(int64(stats.DirtyNodes)),
		humanize.Comma(int64(stats.Signals)),
		humanize.Comma(int64(stats.PendingCleanup)),
	)
	return runErr
}

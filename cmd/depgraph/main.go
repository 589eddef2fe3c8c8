package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.trai.ch/zerr"
)

const logLevelKey = "log-level"

var ErrInvalidLogLevel = zerr.New("invalid log level")

func main() {
	cmd := newApp()
	ctx := context.Background()
	if err := cmd.Run(ctx, os.Args); err != nil {
		zerr.Log(ctx, slog.Default(), err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "depgraph",
		Usage: "Inspect and exercise a path-aware dependency graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "debug, info, warn or error",
				Value: "info",
			},
		},
		Before: configureLogging,
		Commands: []*cli.Command{
			replayCommand(),
			watchCommand(),
			benchCommand(),
		},
	}
}

func configureLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := parseLevel(cmd.String(logLevelKey))
	if err != nil {
		return ctx, err
	}
	handler := slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return ctx, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return 0, zerr.With(zerr.Wrap(ErrInvalidLogLevel, "parse log level"), "level", s)
	}
	return level, nil
}

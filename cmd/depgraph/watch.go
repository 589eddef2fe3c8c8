package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/souporserious/renoun-depgraph/depgraph"
	"github.com/souporserious/renoun-depgraph/graphmetrics"
	"github.com/souporserious/renoun-depgraph/watch"
	"github.com/urfave/cli/v3"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	rootKey        = "root"
	manifestKey    = "manifest"
	debounceKey    = "debounce"
	metricsAddrKey = "metrics-addr"
)

// manifest maps node keys to the dependency keys they are registered with.
type manifest struct {
	Nodes map[string][]string `yaml:"nodes"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "read manifest"), "path", path)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "decode manifest"), "path", path)
	}
	return &m, nil
}

// register adds every manifest node to g in key order.
func (m *manifest) register(g *depgraph.Graph) {
	keys := make([]string, 0, len(m.Nodes))
	for key := range m.Nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		g.RegisterNode(key, m.Nodes[key])
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Register nodes from a manifest and report the nodes each file change affects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  rootKey,
				Usage: "Directory to watch",
				Value: ".",
			},
			&cli.StringFlag{
				Name:     manifestKey,
				Usage:    "YAML manifest of nodes and their dependency keys",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  debounceKey,
				Usage: "Quiet period before a burst of changes is applied",
				Value: watch.DefaultDebounce,
			},
			&cli.StringFlag{
				Name:  metricsAddrKey,
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	logger := slog.Default()

	m, err := loadManifest(cmd.String(manifestKey))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := graphmetrics.New(reg)
	g := depgraph.New(
		depgraph.WithLogger(logger.With(slog.String("component", "depgraph"))),
		depgraph.WithObserver(metrics),
	)

	w, err := watch.New(g, cmd.String(rootKey),
		watch.WithDebounce(cmd.Duration(debounceKey)),
		watch.WithLogger(logger.With(slog.String("component", "watch"))),
		watch.WithOnAffected(func(nodeKeys []string) {
			logger.Info("nodes affected", slog.Int("count", len(nodeKeys)), slog.Any("nodes", nodeKeys))
		}),
	)
	if err != nil {
		return err
	}
	w.Do(m.register)
	graphmetrics.RegisterGauges(reg, func() (stats depgraph.Stats) {
		w.Do(func(g *depgraph.Graph) {
			stats = g.Stats()
		})
		return stats
	})
	logger.Info("manifest registered", slog.Int("nodes", len(m.Nodes)))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := cmd.String(metricsAddrKey); addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", slog.String("addr", addr))
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	logger.Info("shutting down")
	return w.Stop()
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

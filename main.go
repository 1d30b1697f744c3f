// Command roblox-rap-updater runs one sync: it discovers the limited
// collectibles of a creator, prices them from resale data and publishes the
// snapshot to an Open Cloud datastore entry.
//
// Scheduling is external; the process does one run and exits. Every setting
// comes from the environment (see the config package).
//
// Exit status is 0 after a successful publish and 1 on any fatal error.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/InfiniteXqz/roblox-rap-updater/config"
	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger := logging.New(stderr, cfg.LogLevel, cfg.JSONLogs).With("run_id", uuid.NewString())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewPrometheus(reg, "")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	shutdown := metrics.Serve(cfg.MetricsAddr, reg, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	p, cleanup, err := build(ctx, cfg, logger, collector)
	if err != nil {
		logger.Error("setup failed", "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer cleanup()

	logger.Info("sync starting",
		"adapter", cfg.Adapter,
		"store", cfg.DatastoreName,
		"key", cfg.EntryKey,
		"workers", cfg.EnrichWorkers,
		"dry_run", cfg.DryRun)

	sum, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("sync done",
		"discovered", sum.Discovered,
		"verified", sum.Verified,
		"enriched", sum.Enriched,
		"published", sum.Published,
		"bytes", sum.Bytes,
		"digest", sum.Digest,
		"duration", sum.Duration)
	fmt.Fprintf(stdout, "OK: %d items updated\n", sum.Published)
	return 0
}

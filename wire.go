package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
	"github.com/InfiniteXqz/roblox-rap-updater/config"
	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
	"github.com/InfiniteXqz/roblox-rap-updater/pipeline"
	"github.com/InfiniteXqz/roblox-rap-updater/sinks"
)

// build wires the pipeline for cfg. The returned cleanup releases mirror
// connections and is safe to call when build failed halfway.
func build(ctx context.Context, cfg config.Config, logger logging.Logger, m metrics.Collector) (*pipeline.Pipeline, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	fetcher := adapters.NewFetcher(adapters.FetcherOptions{
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.HTTPTimeout,
		MaxConnsPerHost: cfg.EnrichWorkers,
		Backoff: adapters.BackoffPolicy{
			Delay:             cfg.RetryDelay,
			MaxAttempts:       cfg.RetryMaxAttempts,
			RespectRetryAfter: cfg.RespectRetryAfter,
		},
		Metrics: m,
		Logger:  logger,
	})

	catalog, economy, err := buildUpstreams(cfg, fetcher)
	if err != nil {
		return nil, cleanup, err
	}

	var writer adapters.DatastoreAdapter
	if !cfg.DryRun {
		writer, err = adapters.NewHTTPDatastore(cfg.OpenCloudBaseURL, cfg.UniverseID, cfg.OpenCloudKey, fetcher)
		if err != nil {
			return nil, cleanup, err
		}
	}

	mirrors, mirrorClosers := buildMirrors(ctx, cfg, logger)
	closers = append(closers, mirrorClosers...)

	predicate := pipeline.CreatorPredicate(cfg.CreatorName, cfg.CreatorTargetID)
	listing := predicate
	if cfg.VerifyDetails {
		listing = pipeline.ListingPredicate(cfg.CreatorName, cfg.CreatorTargetID)
	}
	params := pipeline.DefaultSearchParams(cfg.CreatorName)
	params.Limit = cfg.PageSize

	discoverer := pipeline.NewDiscoverer(catalog, pipeline.DiscovererOptions{
		Params:    params,
		Predicate: listing,
		PageDelay: cfg.PageDelay,
		Logger:    logger,
		Metrics:   m,
	})
	enricher := pipeline.NewEnricher(economy, pipeline.EnricherOptions{
		Workers: cfg.EnrichWorkers,
		Pause:   cfg.EnrichDelay,
		Logger:  logger,
		Metrics: m,
	})
	publisher, err := pipeline.NewPublisher(writer, pipeline.PublisherOptions{
		Store:   cfg.DatastoreName,
		Key:     cfg.EntryKey,
		DryRun:  cfg.DryRun,
		Mirrors: mirrors,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, cleanup, err
	}

	opts := pipeline.Options{Logger: logger, Metrics: m}
	if cfg.VerifyDetails {
		opts.Verifier = pipeline.NewVerifier(catalog, pipeline.VerifierOptions{
			Predicate: predicate,
			Workers:   cfg.EnrichWorkers,
			Pause:     cfg.EnrichDelay,
			Logger:    logger,
			Metrics:   m,
		})
	}

	p, err := pipeline.New(discoverer, enricher, publisher, opts)
	if err != nil {
		return nil, cleanup, err
	}
	return p, cleanup, nil
}

func buildUpstreams(cfg config.Config, f *adapters.Fetcher) (adapters.CatalogAdapter, adapters.EconomyAdapter, error) {
	if cfg.Adapter == config.AdapterMock {
		mock := adapters.NewMockAdapter(adapters.MockAdapterOptions{})
		return mock, mock, nil
	}

	catalog, err := adapters.NewHTTPCatalog(cfg.CatalogBaseURL, f)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog adapter: %w", err)
	}
	economy, err := adapters.NewHTTPEconomy(cfg.EconomyBaseURL, f)
	if err != nil {
		return nil, nil, fmt.Errorf("economy adapter: %w", err)
	}
	return catalog, economy, nil
}

// buildMirrors connects the optional mirrors. A mirror that cannot be set up
// is skipped with a warning; it never blocks the authoritative write.
func buildMirrors(ctx context.Context, cfg config.Config, logger logging.Logger) ([]pipeline.Mirror, []func()) {
	var (
		mirrors []pipeline.Mirror
		closers []func()
	)

	if cfg.PGDSN != "" {
		pool, err := sinks.OpenPool(ctx, cfg.PGDSN, cfg.PGMaxConns, cfg.PGViaBouncer)
		if err != nil {
			logger.Warn("postgres mirror disabled", "error", err)
		} else {
			closers = append(closers, pool.Close)
			archive, err := sinks.NewPostgresArchive(pool, cfg.PGSchema)
			if err == nil {
				err = archive.EnsureSchema(ctx)
			}
			if err != nil {
				logger.Warn("postgres mirror disabled", "error", err)
			} else {
				mirrors = append(mirrors, archive)
			}
		}
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL,
			nats.Name("roblox-rap-updater"),
			nats.Timeout(5*time.Second),
		)
		if err != nil {
			logger.Warn("nats mirror disabled", "error", err)
			return mirrors, closers
		}
		closers = append(closers, nc.Close)

		js, err := jetstream.New(nc)
		if err != nil {
			logger.Warn("nats mirror disabled", "error", err)
			return mirrors, closers
		}
		kvCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		mirror, err := sinks.NewNATSMirror(kvCtx, js, cfg.NATSBucket)
		if err != nil {
			logger.Warn("nats mirror disabled", "error", err)
			return mirrors, closers
		}
		mirrors = append(mirrors, mirror)
	}

	return mirrors, closers
}

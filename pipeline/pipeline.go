// Package pipeline implements the sync run: discover qualifying catalog IDs,
// enrich them with resale prices, assemble the snapshot and publish it.
//
// Stages run strictly in order; the only concurrency is inside the worker
// pool used for enrichment (and the optional details verification).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

// Stage names used in logs and metrics.
const (
	StageDiscover = "discover"
	StageVerify   = "verify"
	StageEnrich   = "enrich"
	StagePublish  = "publish"
)

// Pipeline wires the stages of one run.
type Pipeline struct {
	discoverer *Discoverer
	verifier   *Verifier
	enricher   *Enricher
	publisher  *Publisher
	now        func() time.Time
	logger     logging.Logger
	metrics    metrics.Collector
}

type Options struct {
	// Verifier enables the details verification stage when non-nil.
	Verifier *Verifier
	Now      func() time.Time
	Logger   logging.Logger
	Metrics  metrics.Collector
}

// Summary describes a completed run.
type Summary struct {
	Discovered int
	Verified   int
	Enriched   int
	Published  int
	Digest     string
	Bytes      int
	Duration   time.Duration
}

func New(d *Discoverer, e *Enricher, p *Publisher, opts Options) (*Pipeline, error) {
	if d == nil || e == nil || p == nil {
		return nil, errors.New("discoverer, enricher and publisher are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Pipeline{
		discoverer: d,
		verifier:   opts.Verifier,
		enricher:   e,
		publisher:  p,
		now:        opts.Now,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

// Run executes one full sync. The first fatal error aborts the run; nothing
// is written unless every earlier stage succeeded.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	var discovered IDSet
	err := p.stage(StageDiscover, func() (int, error) {
		var err error
		discovered, err = p.discoverer.Discover(ctx)
		return discovered.Len(), err
	})
	if err != nil {
		return sum, err
	}
	sum.Discovered = discovered.Len()
	sum.Verified = sum.Discovered

	if p.verifier != nil {
		err = p.stage(StageVerify, func() (int, error) {
			var err error
			discovered, err = p.verifier.Verify(ctx, discovered.Sorted())
			return discovered.Len(), err
		})
		if err != nil {
			return sum, err
		}
		sum.Verified = discovered.Len()
	}

	var prices map[EntityID]int64
	err = p.stage(StageEnrich, func() (int, error) {
		var err error
		prices, err = p.enricher.Enrich(ctx, discovered.Sorted())
		return len(prices), err
	})
	if err != nil {
		return sum, err
	}
	sum.Enriched = len(prices)

	payload := Assemble(discovered, prices, p.now())

	var rec Record
	err = p.stage(StagePublish, func() (int, error) {
		var err error
		rec, err = p.publisher.Publish(ctx, payload)
		return rec.Items, err
	})
	if err != nil {
		return sum, err
	}
	sum.Published = rec.Items
	sum.Digest = rec.Digest
	sum.Bytes = len(rec.Body)
	sum.Duration = time.Since(start)

	return sum, nil
}

func (p *Pipeline) stage(name string, fn func() (int, error)) error {
	start := time.Now()
	n, err := fn()
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed)
	if err != nil {
		p.logger.Error("stage failed", "stage", name, "duration", elapsed, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.metrics.SetStageItems(name, n)
	p.logger.Info("stage done", "stage", name, "items", n, "duration", elapsed)
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

// Record is what one run publishes. It is never read back.
type Record struct {
	Store     string
	Key       string
	Body      []byte
	Digest    string
	Items     int
	UpdatedAt time.Time
}

// Mirror receives a copy of every successfully published record.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, rec Record) error
}

// Publisher writes the payload to the datastore entry (Store, Key).
type Publisher struct {
	writer  adapters.DatastoreAdapter
	store   string
	key     string
	dryRun  bool
	mirrors []Mirror
	logger  logging.Logger
	metrics metrics.Collector
}

type PublisherOptions struct {
	Store   string
	Key     string
	DryRun  bool
	Mirrors []Mirror
	Logger  logging.Logger
	Metrics metrics.Collector
}

// NewPublisher returns a publisher. writer may be nil only in dry-run mode.
func NewPublisher(writer adapters.DatastoreAdapter, opts PublisherOptions) (*Publisher, error) {
	if opts.Store == "" || opts.Key == "" {
		return nil, errors.New("store and key are required")
	}
	if writer == nil && !opts.DryRun {
		return nil, errors.New("datastore writer is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Publisher{
		writer:  writer,
		store:   opts.Store,
		key:     opts.Key,
		dryRun:  opts.DryRun,
		mirrors: opts.Mirrors,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Publish serializes payload, digests the exact bytes and performs one write.
//
// A failed write is returned as-is and never retried: whether the store kept
// anything is unknown, and the scheduler re-runs the whole job instead.
// Mirrors run only after the write succeeded and cannot fail the publish.
func (p *Publisher) Publish(ctx context.Context, payload Payload) (Record, error) {
	body, err := payload.Canonical()
	if err != nil {
		return Record{}, fmt.Errorf("serialize payload: %w", err)
	}
	rec := Record{
		Store:     p.store,
		Key:       p.key,
		Body:      body,
		Digest:    Digest(body),
		Items:     len(payload.IDs),
		UpdatedAt: payload.UpdatedAt,
	}

	if p.dryRun {
		p.logger.Info("dry run, skipping datastore write",
			"store", rec.Store, "key", rec.Key, "items", rec.Items, "bytes", len(body), "digest", rec.Digest)
		return rec, nil
	}

	err = p.writer.SetEntry(ctx, adapters.Entry{
		Datastore:  rec.Store,
		Key:        rec.Key,
		Body:       rec.Body,
		ContentMD5: rec.Digest,
	})
	if err != nil {
		return Record{}, fmt.Errorf("set entry %s/%s: %w", rec.Store, rec.Key, err)
	}
	p.logger.Info("entry written", "store", rec.Store, "key", rec.Key, "items", rec.Items, "digest", rec.Digest)

	for _, m := range p.mirrors {
		if err := m.Mirror(ctx, rec); err != nil {
			p.metrics.RecordMirror(m.Name(), false)
			p.logger.Warn("mirror write failed", "mirror", m.Name(), "error", err)
			continue
		}
		p.metrics.RecordMirror(m.Name(), true)
	}

	return rec, nil
}

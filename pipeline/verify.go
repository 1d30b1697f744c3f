package pipeline

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

// Verifier re-checks discovered IDs against the item-details endpoint and
// keeps only those whose details satisfy the predicate. It shares the
// enrichment pool's omission semantics: a failed lookup drops the ID.
type Verifier struct {
	catalog adapters.CatalogAdapter
	include Predicate
	workers int
	pause   time.Duration
	logger  logging.Logger
	metrics metrics.Collector
}

type VerifierOptions struct {
	Predicate Predicate
	Workers   int
	Pause     time.Duration
	Logger    logging.Logger
	Metrics   metrics.Collector
}

func NewVerifier(catalog adapters.CatalogAdapter, opts VerifierOptions) *Verifier {
	if opts.Predicate == nil {
		opts.Predicate = IsLimited
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Verifier{
		catalog: catalog,
		include: opts.Predicate,
		workers: opts.Workers,
		pause:   opts.Pause,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Verify returns the subset of ids whose details pass the predicate.
func (v *Verifier) Verify(ctx context.Context, ids []EntityID) (IDSet, error) {
	kept := xsync.NewMap[EntityID, struct{}]()

	err := forEachID(ctx, ids, v.workers, v.pause, func(ctx context.Context, id EntityID) {
		item, err := v.catalog.ItemDetails(ctx, int64(id))
		if err != nil {
			if ctx.Err() == nil {
				v.metrics.RecordMiss(StageVerify, missReason(err))
				v.logger.Debug("details lookup failed", "id", id, "error", err)
			}
			return
		}
		if !v.include(item) {
			v.metrics.RecordMiss(StageVerify, missRejected)
			return
		}
		kept.Store(id, struct{}{})
	})
	if err != nil {
		return nil, err
	}

	out := make(IDSet, kept.Size())
	kept.Range(func(id EntityID, _ struct{}) bool {
		out.Add(id)
		return true
	})
	return out, nil
}

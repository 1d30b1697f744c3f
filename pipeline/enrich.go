package pipeline

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

// Enrichment defaults.
const (
	DefaultWorkers = 24
	DefaultPause   = 100 * time.Millisecond
)

// Omission reasons reported to metrics.
const (
	missStatus      = "status"
	missRateLimited = "rate_limited"
	missError       = "error"
	missNoPrice     = "no_price"
	missRejected    = "rejected"
)

// Enricher fetches the recent average price of every ID on a worker pool.
type Enricher struct {
	economy adapters.EconomyAdapter
	workers int
	pause   time.Duration
	logger  logging.Logger
	metrics metrics.Collector
}

type EnricherOptions struct {
	Workers int
	// Pause is applied by each worker after every attempt.
	Pause   time.Duration
	Logger  logging.Logger
	Metrics metrics.Collector
}

func NewEnricher(economy adapters.EconomyAdapter, opts EnricherOptions) *Enricher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Enricher{
		economy: economy,
		workers: opts.Workers,
		pause:   opts.Pause,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Enrich returns the price of every ID that has a verifiable one.
//
// A failed call or a missing/non-numeric price omits the ID; that is the
// normal "no price" outcome, not an error. Only cancellation of ctx makes
// Enrich fail. Failed calls are not retried beyond the fetcher's 429 loop.
func (e *Enricher) Enrich(ctx context.Context, ids []EntityID) (map[EntityID]int64, error) {
	results := xsync.NewMap[EntityID, int64]()

	err := forEachID(ctx, ids, e.workers, e.pause, func(ctx context.Context, id EntityID) {
		rd, err := e.economy.ResaleData(ctx, int64(id))
		if err != nil {
			if ctx.Err() == nil {
				e.miss(id, missReason(err), err)
			}
			return
		}
		if rd.RecentAveragePrice == nil {
			e.miss(id, missNoPrice, nil)
			return
		}
		results.Store(id, rapValue(*rd.RecentAveragePrice))
	})
	if err != nil {
		return nil, err
	}

	out := make(map[EntityID]int64, results.Size())
	results.Range(func(id EntityID, v int64) bool {
		out[id] = v
		return true
	})
	return out, nil
}

func (e *Enricher) miss(id EntityID, reason string, err error) {
	e.metrics.RecordMiss(StageEnrich, reason)
	if err != nil {
		e.logger.Debug("no price", "id", id, "reason", reason, "error", err)
		return
	}
	e.logger.Debug("no price", "id", id, "reason", reason)
}

func missReason(err error) string {
	switch {
	case errors.Is(err, adapters.ErrRetriesExhausted):
		return missRateLimited
	case adapters.StatusCode(err) != 0:
		return missStatus
	default:
		return missError
	}
}

// rapValue floors price and clamps it to the non-negative int64 range.
func rapValue(price float64) int64 {
	v := math.Floor(price)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(v)
	}
}

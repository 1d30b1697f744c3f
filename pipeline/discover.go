package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

// Listing defaults.
const (
	DefaultPageSize  = 120
	DefaultPageDelay = 250 * time.Millisecond
)

// DefaultSearchParams returns the listing filter for limited collectibles.
func DefaultSearchParams(creatorName string) adapters.SearchParams {
	return adapters.SearchParams{
		Category:          "Collectibles",
		CreatorName:       creatorName,
		IncludeNotForSale: true,
		SalesTypeFilter:   2,
		Limit:             DefaultPageSize,
	}
}

// Discoverer walks the cursor-paginated listing and collects qualifying IDs.
type Discoverer struct {
	catalog   adapters.CatalogAdapter
	params    adapters.SearchParams
	include   Predicate
	pageDelay time.Duration
	logger    logging.Logger
	metrics   metrics.Collector
}

type DiscovererOptions struct {
	Params    adapters.SearchParams
	Predicate Predicate
	// PageDelay is the pause between successful page fetches.
	PageDelay time.Duration
	Logger    logging.Logger
	Metrics   metrics.Collector
}

func NewDiscoverer(catalog adapters.CatalogAdapter, opts DiscovererOptions) *Discoverer {
	if opts.Params.Limit <= 0 {
		opts.Params.Limit = DefaultPageSize
	}
	if opts.Predicate == nil {
		opts.Predicate = IsLimited
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Discoverer{
		catalog:   catalog,
		params:    opts.Params,
		include:   opts.Predicate,
		pageDelay: opts.PageDelay,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Discover fetches pages until the listing returns no next cursor.
//
// There is no page cap: a listing that never ends keeps Discover running.
// Rate limiting is absorbed by the adapter's fetcher, which re-requests the
// same cursor. Any other failure aborts and no partial set is returned.
func (d *Discoverer) Discover(ctx context.Context) (IDSet, error) {
	ids := NewIDSet()
	params := d.params
	params.Cursor = ""

	for page := 1; ; page++ {
		res, err := d.catalog.SearchItems(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", page, err)
		}

		added := 0
		for _, it := range res.Items {
			if it.ID <= 0 {
				d.metrics.RecordMiss(StageDiscover, "invalid_id")
				continue
			}
			if d.include(it) && ids.Add(EntityID(it.ID)) {
				added++
			}
		}
		d.logger.Debug("listing page", "page", page, "records", len(res.Items), "added", added, "total", ids.Len())

		if res.NextPageCursor == "" {
			return ids, nil
		}
		params.Cursor = res.NextPageCursor

		if err := adapters.Pause(ctx, d.pageDelay); err != nil {
			return nil, err
		}
	}
}

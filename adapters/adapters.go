// Package adapters contains the HTTP connectors the sync job talks to:
// the catalog listing/details API, the economy resale-data API and the
// Open Cloud datastore. All outbound calls go through a Fetcher so that
// 429 handling and request telemetry are shared.
//
// An offline MockAdapter can stand in for the catalog and economy APIs.
package adapters

import "context"

// Operation labels used for metrics, logs and errors.
const (
	OpCatalogSearch  = "catalog.search"
	OpCatalogDetails = "catalog.details"
	OpEconomyResale  = "economy.resale"
	OpDatastoreSet   = "datastore.set"
)

// SearchParams describes one page request against the catalog listing.
type SearchParams struct {
	Category          string
	CreatorName       string
	IncludeNotForSale bool
	SalesTypeFilter   int
	Limit             int
	// Cursor is opaque; empty on the first page.
	Cursor string
}

// CatalogItem is a listing or details record. Listing records may leave the
// creator fields empty when the upstream omits them.
type CatalogItem struct {
	ID               int64    `json:"id"`
	ItemType         string   `json:"itemType,omitempty"`
	Name             string   `json:"name,omitempty"`
	CreatorName      string   `json:"creatorName,omitempty"`
	CreatorTargetID  int64    `json:"creatorTargetId,omitempty"`
	ItemRestrictions []string `json:"itemRestrictions,omitempty"`
}

// SearchPage is one page of listing results. NextPageCursor is empty on the
// last page.
type SearchPage struct {
	Items          []CatalogItem `json:"data"`
	NextPageCursor string        `json:"nextPageCursor"`
}

// ResaleData is the subset of the resale-data response the job uses.
// RecentAveragePrice is nil when the field is missing or not a number.
type ResaleData struct {
	RecentAveragePrice *float64
}

// Entry is a single datastore write.
type Entry struct {
	Datastore  string
	Key        string
	Body       []byte
	ContentMD5 string
}

// CatalogAdapter abstracts the listing and item-details endpoints.
type CatalogAdapter interface {
	// SearchItems fetches one listing page.
	SearchItems(ctx context.Context, params SearchParams) (SearchPage, error)

	// ItemDetails fetches the details record of a single asset.
	ItemDetails(ctx context.Context, assetID int64) (CatalogItem, error)
}

// EconomyAdapter abstracts the resale-data endpoint.
type EconomyAdapter interface {
	ResaleData(ctx context.Context, assetID int64) (ResaleData, error)
}

// DatastoreAdapter abstracts the authenticated datastore write.
type DatastoreAdapter interface {
	SetEntry(ctx context.Context, e Entry) error
}

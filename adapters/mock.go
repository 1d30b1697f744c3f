package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MockAdapter produces synthetic catalog and resale data for demos and
// tests. It is deterministic for a given Seed and makes no network calls.
//
// Every page repeats the last record of the previous page, the way the real
// listing occasionally does, and a fraction of assets report no price.
type MockAdapter struct {
	pages   int
	perPage int
	seed    uint64
	latency time.Duration
}

var (
	_ CatalogAdapter = (*MockAdapter)(nil)
	_ EconomyAdapter = (*MockAdapter)(nil)
)

type MockAdapterOptions struct {
	Pages   int           // default 3
	PerPage int           // default 12
	Seed    int64         // fixed default so runs are comparable
	Latency time.Duration // synthetic per-call latency
}

func NewMockAdapter(opts MockAdapterOptions) *MockAdapter {
	if opts.Pages <= 0 {
		opts.Pages = 3
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 12
	}
	if opts.PerPage > 999 {
		opts.PerPage = 999 // ids encode the index in three digits
	}
	return &MockAdapter{
		pages:   opts.Pages,
		perPage: opts.PerPage,
		seed:    uint64(opts.Seed),
		latency: opts.Latency,
	}
}

const mockCursorPrefix = "mock-page-"

func (m *MockAdapter) SearchItems(ctx context.Context, params SearchParams) (SearchPage, error) {
	if err := Pause(ctx, m.latency); err != nil {
		return SearchPage{}, err
	}

	page := 1
	if params.Cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(params.Cursor, mockCursorPrefix))
		if err != nil || !strings.HasPrefix(params.Cursor, mockCursorPrefix) || n < 1 || n > m.pages {
			return SearchPage{}, &UpstreamError{Op: OpCatalogSearch, StatusCode: 400, Body: "invalid cursor"}
		}
		page = n
	}

	items := make([]CatalogItem, 0, m.perPage+1)
	if page > 1 {
		items = append(items, m.item(page-1, m.perPage-1))
	}
	for i := 0; i < m.perPage; i++ {
		items = append(items, m.item(page, i))
	}

	out := SearchPage{Items: items}
	if page < m.pages {
		out.NextPageCursor = mockCursorPrefix + strconv.Itoa(page+1)
	}
	return out, nil
}

func (m *MockAdapter) ItemDetails(ctx context.Context, assetID int64) (CatalogItem, error) {
	if err := Pause(ctx, m.latency); err != nil {
		return CatalogItem{}, err
	}
	page, idx := int(assetID/1000), int(assetID%1000)-1
	if page < 1 || page > m.pages || idx < 0 || idx >= m.perPage {
		return CatalogItem{}, &UpstreamError{Op: OpCatalogDetails, StatusCode: 404, Body: "not found"}
	}
	return m.item(page, idx), nil
}

func (m *MockAdapter) ResaleData(ctx context.Context, assetID int64) (ResaleData, error) {
	if err := Pause(ctx, m.latency); err != nil {
		return ResaleData{}, err
	}
	h := fnv64(strconv.FormatInt(assetID, 10)) ^ m.seed
	if h%7 == 0 {
		return ResaleData{}, nil
	}
	price := float64(h%50000) + float64(h%100)/100
	return ResaleData{RecentAveragePrice: &price}, nil
}

// item synthesizes record idx of page. About two thirds are Roblox-created
// and most carry a limited restriction.
func (m *MockAdapter) item(page, idx int) CatalogItem {
	id := int64(page*1000 + idx + 1)
	it := CatalogItem{
		ID:       id,
		ItemType: "Asset",
		Name:     fmt.Sprintf("Synthetic collectible %d", id),
	}
	if idx%3 == 0 {
		it.CreatorName = "Builder"
		it.CreatorTargetID = 1000 + id
	} else {
		it.CreatorName = "Roblox"
		it.CreatorTargetID = 1
	}
	switch idx % 5 {
	case 4:
	case 1, 3:
		it.ItemRestrictions = []string{"LimitedUnique"}
	default:
		it.ItemRestrictions = []string{"Limited"}
	}
	return it
}

// fnv64 returns a simple 64-bit hash for deterministic mock data.
func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

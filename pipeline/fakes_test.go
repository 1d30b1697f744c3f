package pipeline

import (
	"context"
	"sync"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
)

// fakeCatalog serves pages keyed by cursor ("" is the first page).
type fakeCatalog struct {
	mu      sync.Mutex
	pages   map[string]adapters.SearchPage
	errs    map[string]error
	details map[int64]adapters.CatalogItem
	cursors []string
}

func (f *fakeCatalog) SearchItems(_ context.Context, p adapters.SearchParams) (adapters.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, p.Cursor)
	if err := f.errs[p.Cursor]; err != nil {
		return adapters.SearchPage{}, err
	}
	return f.pages[p.Cursor], nil
}

func (f *fakeCatalog) ItemDetails(_ context.Context, id int64) (adapters.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.details[id]
	if !ok {
		return adapters.CatalogItem{}, &adapters.UpstreamError{Op: adapters.OpCatalogDetails, StatusCode: 404}
	}
	return it, nil
}

type priceResult struct {
	price *float64
	err   error
}

// fakeEconomy returns canned results and counts calls per ID. IDs without a
// canned result get a price equal to the ID.
type fakeEconomy struct {
	mu      sync.Mutex
	results map[int64]priceResult
	calls   map[int64]int
}

func newFakeEconomy(results map[int64]priceResult) *fakeEconomy {
	return &fakeEconomy{results: results, calls: map[int64]int{}}
}

func (f *fakeEconomy) ResaleData(_ context.Context, id int64) (adapters.ResaleData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	r, ok := f.results[id]
	if !ok {
		v := float64(id)
		return adapters.ResaleData{RecentAveragePrice: &v}, nil
	}
	if r.err != nil {
		return adapters.ResaleData{}, r.err
	}
	return adapters.ResaleData{RecentAveragePrice: r.price}, nil
}

type fakeWriter struct {
	mu      sync.Mutex
	entries []adapters.Entry
	err     error
}

func (f *fakeWriter) SetEntry(_ context.Context, e adapters.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return f.err
}

type fakeMirror struct {
	name    string
	err     error
	records []Record
}

func (f *fakeMirror) Name() string { return f.name }

func (f *fakeMirror) Mirror(_ context.Context, rec Record) error {
	f.records = append(f.records, rec)
	return f.err
}

func price(v float64) *float64 { return &v }

func item(id int64, creator string, targetID int64, tags ...string) adapters.CatalogItem {
	return adapters.CatalogItem{ID: id, CreatorName: creator, CreatorTargetID: targetID, ItemRestrictions: tags}
}

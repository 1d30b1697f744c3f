package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
)

func newTestPipeline(t *testing.T, cat *fakeCatalog, eco *fakeEconomy, w *fakeWriter, verify bool) *Pipeline {
	t.Helper()
	pred := CreatorPredicate("Roblox", 1)
	listing := pred
	if verify {
		listing = ListingPredicate("Roblox", 1)
	}
	d := NewDiscoverer(cat, DiscovererOptions{Params: DefaultSearchParams("Roblox"), Predicate: listing})
	e := NewEnricher(eco, EnricherOptions{Workers: 3})
	pub, err := NewPublisher(w, PublisherOptions{Store: "RNG_MASTER", Key: "ROBLOX_LIMITEDS"})
	require.NoError(t, err)

	opts := Options{Now: func() time.Time { return fixedNow }}
	if verify {
		opts.Verifier = NewVerifier(cat, VerifierOptions{Predicate: pred, Workers: 2})
	}
	p, err := New(d, e, pub, opts)
	require.NoError(t, err)
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	cat := twoPageCatalog()
	eco := newFakeEconomy(map[int64]priceResult{
		5: {price: nil},
		6: {err: &adapters.UpstreamError{Op: adapters.OpEconomyResale, StatusCode: 500}},
		7: {price: price(250.9)},
	})
	w := &fakeWriter{}

	sum, err := newTestPipeline(t, cat, eco, w, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Discovered)
	assert.Equal(t, 5, sum.Verified)
	assert.Equal(t, 3, sum.Enriched)
	assert.Equal(t, 3, sum.Published)

	require.Len(t, w.entries, 1)
	e := w.entries[0]
	assert.Equal(t, "RNG_MASTER", e.Datastore)
	assert.Equal(t, "ROBLOX_LIMITEDS", e.Key)
	assert.Equal(t, `{"updatedAt":"2024-05-01T12:00:00.000Z","ids":[1,4,7],"rap":{"1":1,"4":4,"7":250}}`, string(e.Body))
	assert.Equal(t, Digest(e.Body), e.ContentMD5)
	assert.Equal(t, e.ContentMD5, sum.Digest)
	assert.Equal(t, len(e.Body), sum.Bytes)

	for id, n := range eco.calls {
		assert.Equal(t, 1, n, "id %d enriched more than once", id)
	}
}

func TestRun_WithVerification(t *testing.T) {
	cat := twoPageCatalog()
	cat.details = map[int64]adapters.CatalogItem{
		1: item(1, "Roblox", 1, "Limited"),
		4: item(4, "Roblox", 1),
		5: item(5, "Roblox", 1, "LimitedUnique"),
		// 6 and 7 are missing and fail the lookup.
	}
	w := &fakeWriter{}

	sum, err := newTestPipeline(t, cat, newFakeEconomy(nil), w, true).Run(context.Background())
	require.NoError(t, err)
	// 2 has no restriction tags in the listing, so it reaches the details stage.
	assert.Equal(t, 6, sum.Discovered)
	assert.Equal(t, 2, sum.Verified)
	assert.Equal(t, 2, sum.Published)

	require.Len(t, w.entries, 1)
	var got struct {
		IDs []int64 `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.entries[0].Body, &got))
	assert.Equal(t, []int64{1, 5}, got.IDs)
}

func TestRun_VerificationDecidesBareListingRecords(t *testing.T) {
	bare := func(id int64) adapters.CatalogItem { return adapters.CatalogItem{ID: id, ItemType: "Asset"} }
	cat := &fakeCatalog{
		pages: map[string]adapters.SearchPage{
			"": {Items: []adapters.CatalogItem{bare(10), bare(11), bare(12)}, NextPageCursor: "p2"},
			"p2": {Items: []adapters.CatalogItem{bare(13)}},
		},
		details: map[int64]adapters.CatalogItem{
			10: item(10, "Roblox", 1, "Limited"),
			11: item(11, "Builder", 77, "Limited"),
			12: item(12, "Roblox", 1, "LimitedUnique"),
			13: item(13, "Roblox", 1),
		},
	}
	w := &fakeWriter{}

	sum, err := newTestPipeline(t, cat, newFakeEconomy(nil), w, true).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Discovered)
	assert.Equal(t, 2, sum.Verified)
	assert.Equal(t, 2, sum.Published)

	require.Len(t, w.entries, 1)
	assert.Equal(t, `{"updatedAt":"2024-05-01T12:00:00.000Z","ids":[10,12],"rap":{"10":10,"12":12}}`, string(w.entries[0].Body))
}

func TestRun_PublishFailure(t *testing.T) {
	w := &fakeWriter{err: &adapters.UpstreamError{Op: adapters.OpDatastoreSet, StatusCode: 500, Body: "boom"}}

	_, err := newTestPipeline(t, twoPageCatalog(), newFakeEconomy(nil), w, false).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 500, adapters.StatusCode(err))
	assert.Len(t, w.entries, 1, "the write is attempted exactly once")
}

func TestRun_DiscoveryFailureWritesNothing(t *testing.T) {
	cat := twoPageCatalog()
	cat.errs = map[string]error{"p2": errors.New("connection reset")}
	eco := newFakeEconomy(nil)
	w := &fakeWriter{}

	_, err := newTestPipeline(t, cat, eco, w, false).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover")
	assert.Empty(t, eco.calls)
	assert.Empty(t, w.entries)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &fakeWriter{}

	_, err := newTestPipeline(t, twoPageCatalog(), newFakeEconomy(nil), w, false).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, w.entries)
}

func TestNew_RequiresStages(t *testing.T) {
	_, err := New(nil, nil, nil, Options{})
	require.Error(t, err)
}

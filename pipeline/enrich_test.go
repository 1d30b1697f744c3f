package pipeline

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
)

func TestEnrich_FloorsClampsAndOmits(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/assets/10/resale-data":
			_, _ = w.Write([]byte(`{"recentAveragePrice":12.7}`))
		case "/v1/assets/30/resale-data":
			_, _ = w.Write([]byte(`{"recentAveragePrice":-3}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	econ, err := adapters.NewHTTPEconomy(ts.URL, adapters.NewFetcher(adapters.FetcherOptions{}))
	require.NoError(t, err)

	e := NewEnricher(econ, EnricherOptions{Workers: 3, Pause: time.Millisecond})
	got, err := e.Enrich(context.Background(), []EntityID{10, 20, 30})
	require.NoError(t, err)
	assert.Equal(t, map[EntityID]int64{10: 12, 30: 0}, got)

	payload := Assemble(NewIDSet(10, 20, 30), got, time.Unix(0, 0))
	assert.Equal(t, []EntityID{10, 30}, payload.IDs)
	assert.NotContains(t, payload.RAP, EntityID(20))
}

func TestEnrich_MissesAreOmissionsNotErrors(t *testing.T) {
	econ := newFakeEconomy(map[int64]priceResult{
		1: {price: price(5.5)},
		2: {err: &adapters.UpstreamError{Op: adapters.OpEconomyResale, StatusCode: 500}},
		3: {},
		4: {err: &adapters.UpstreamError{Op: adapters.OpEconomyResale, StatusCode: 429, Err: adapters.ErrRetriesExhausted}},
	})

	got, err := NewEnricher(econ, EnricherOptions{Workers: 2}).Enrich(context.Background(), []EntityID{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, map[EntityID]int64{1: 5}, got)
}

func TestEnrich_EveryIDFetchedOnce(t *testing.T) {
	ids := make([]EntityID, 300)
	for i := range ids {
		ids[i] = EntityID(i + 1)
	}
	econ := newFakeEconomy(nil)

	got, err := NewEnricher(econ, EnricherOptions{Workers: 24}).Enrich(context.Background(), ids)
	require.NoError(t, err)

	assert.Len(t, got, len(ids))
	for _, id := range ids {
		assert.Equal(t, 1, econ.calls[int64(id)], "id %d", id)
		assert.EqualValues(t, id, got[id])
	}
}

func TestEnrich_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEnricher(newFakeEconomy(nil), EnricherOptions{Workers: 1}).Enrich(ctx, []EntityID{1, 2, 3})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRapValue(t *testing.T) {
	assert.EqualValues(t, 12, rapValue(12.7))
	assert.EqualValues(t, 12, rapValue(12))
	assert.EqualValues(t, 0, rapValue(0.4))
	assert.EqualValues(t, 0, rapValue(-3))
	assert.EqualValues(t, 0, rapValue(-0.5))
	assert.EqualValues(t, 0, rapValue(math.NaN()))
	assert.EqualValues(t, int64(math.MaxInt64), rapValue(1e30))
}

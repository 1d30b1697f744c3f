package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoblox struct {
	mu          sync.Mutex
	publishCode int
	published   []byte
	md5         string
	apiKey      string
	// bare serves listing records without creator or restriction fields.
	bare bool
}

func (f *fakeRoblox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/search/items" && f.bare:
		_, _ = io.WriteString(w, `{"nextPageCursor":null,"data":[
			{"id":10,"itemType":"Asset"},{"id":11,"itemType":"Asset"},{"id":12,"itemType":"Asset"}]}`)
	case r.URL.Path == "/v1/catalog/items/10/details":
		_, _ = io.WriteString(w, `{"id":10,"creatorName":"Roblox","creatorTargetId":1,"itemRestrictions":["Limited"]}`)
	case r.URL.Path == "/v1/catalog/items/11/details":
		_, _ = io.WriteString(w, `{"id":11,"creatorName":"Someone","creatorTargetId":9,"itemRestrictions":["Limited"]}`)
	case r.URL.Path == "/v1/catalog/items/12/details":
		_, _ = io.WriteString(w, `{"id":12,"creatorName":"Roblox","creatorTargetId":1,"itemRestrictions":["LimitedUnique"]}`)
	case r.URL.Path == "/v1/search/items":
		w.Header().Set("content-type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"nextPageCursor":"c2","data":[
				{"id":10,"creatorName":"Roblox","creatorTargetId":1,"itemRestrictions":["Limited"]},
				{"id":11,"creatorName":"Someone","creatorTargetId":9,"itemRestrictions":["Limited"]}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"nextPageCursor":null,"data":[
			{"id":10,"creatorName":"Roblox","creatorTargetId":1,"itemRestrictions":["Limited"]},
			{"id":12,"creatorName":"Roblox","creatorTargetId":1,"itemRestrictions":["LimitedUnique"]},
			{"id":13,"creatorName":"Roblox","creatorTargetId":1,"itemRestrictions":["LimitedUnique"]}]}`)
	case r.URL.Path == "/v1/assets/10/resale-data":
		_, _ = io.WriteString(w, `{"recentAveragePrice":1500.7}`)
	case r.URL.Path == "/v1/assets/12/resale-data":
		_, _ = io.WriteString(w, `{"recentAveragePrice":42}`)
	case r.URL.Path == "/v1/assets/13/resale-data":
		http.Error(w, "not found", http.StatusNotFound)
	case strings.HasPrefix(r.URL.Path, "/datastores/v1/universes/777/"):
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.published = body
		f.md5 = r.Header.Get("content-md5")
		f.apiKey = r.Header.Get("x-api-key")
		code := f.publishCode
		f.mu.Unlock()
		if code != 0 {
			http.Error(w, "datastore unavailable", code)
			return
		}
		_, _ = io.WriteString(w, `{"version":"1"}`)
	default:
		http.NotFound(w, r)
	}
}

func testEnv(baseURL string, extra map[string]string) func(string) string {
	env := map[string]string{
		"UNIVERSE_ID":           "777",
		"ROBLOX_OPEN_CLOUD_KEY": "secret",
		"CATALOG_BASE_URL":      baseURL,
		"ECONOMY_BASE_URL":      baseURL,
		"OPEN_CLOUD_BASE_URL":   baseURL,
		"PAGE_DELAY_MS":         "0",
		"ENRICH_DELAY_MS":       "0",
		"ENRICH_WORKERS":        "4",
		"RETRY_DELAY_MS":        "1",
		"LOG_LEVEL":             "error",
	}
	for k, v := range extra {
		env[k] = v
	}
	return func(k string) string { return env[k] }
}

func TestRun_Success(t *testing.T) {
	fake := &fakeRoblox{}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), testEnv(ts.URL, nil), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "OK: 2 items updated\n", stdout.String())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "secret", fake.apiKey)
	assert.NotEmpty(t, fake.md5)

	var got struct {
		UpdatedAt string           `json:"updatedAt"`
		IDs       []int64          `json:"ids"`
		RAP       map[string]int64 `json:"rap"`
	}
	require.NoError(t, json.Unmarshal(fake.published, &got))
	assert.Equal(t, []int64{10, 12}, got.IDs)
	assert.Equal(t, map[string]int64{"10": 1500, "12": 42}, got.RAP)
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestRun_VerifyDetailsWithBareListing(t *testing.T) {
	fake := &fakeRoblox{bare: true}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), testEnv(ts.URL, map[string]string{"VERIFY_DETAILS": "true"}), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "OK: 2 items updated\n", stdout.String())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, string(fake.published), `"ids":[10,12],`)
	assert.Contains(t, string(fake.published), `"rap":{"10":1500,"12":42}`)
}

func TestRun_PublishFailureExitsNonZero(t *testing.T) {
	fake := &fakeRoblox{publishCode: http.StatusInternalServerError}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), testEnv(ts.URL, nil), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "error: publish")
	assert.Contains(t, stderr.String(), "datastore unavailable")
}

func TestRun_DryRunWithMockAdapter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	env := testEnv("http://127.0.0.1:1", map[string]string{
		"CATALOG_ADAPTER": "mock",
		"DRY_RUN":         "true",
	})

	code := run(context.Background(), env, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.True(t, strings.HasPrefix(stdout.String(), "OK: "), stdout.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), func(string) string { return "" }, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "UNIVERSE_ID")
}

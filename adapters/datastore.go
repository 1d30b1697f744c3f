package adapters

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// HTTPDatastore writes entries through the Open Cloud standard-datastores API.
//
//	POST {base}/datastores/v1/universes/{universe}/standard-datastores/datastore/entries/entry?datastoreName=..&entryKey=..
//	  x-api-key, content-type: application/json, content-md5: base64(md5(body))
type HTTPDatastore struct {
	baseURL    string
	universeID string
	apiKey     string
	fetcher    *Fetcher
}

var _ DatastoreAdapter = (*HTTPDatastore)(nil)

// NewHTTPDatastore returns a datastore adapter for one universe.
func NewHTTPDatastore(baseURL, universeID, apiKey string, f *Fetcher) (*HTTPDatastore, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	universeID = strings.TrimSpace(universeID)
	if universeID == "" || apiKey == "" {
		return nil, errors.New("universe id and api key are required")
	}
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	return &HTTPDatastore{baseURL: base, universeID: universeID, apiKey: apiKey, fetcher: f}, nil
}

// SetEntry performs a single write. A non-2xx response is returned as an
// *UpstreamError carrying the response body; it is never retried.
func (d *HTTPDatastore) SetEntry(ctx context.Context, e Entry) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.entryURL(e.Datastore, e.Key), bytes.NewReader(e.Body))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", d.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("content-md5", e.ContentMD5)

	_, err = d.fetcher.Send(ctx, OpDatastoreSet, req)
	return err
}

func (d *HTTPDatastore) entryURL(datastore, key string) string {
	q := url.Values{}
	q.Set("datastoreName", datastore)
	q.Set("entryKey", key)

	return d.baseURL + "/datastores/v1/universes/" + url.PathEscape(d.universeID) +
		"/standard-datastores/datastore/entries/entry?" + q.Encode()
}

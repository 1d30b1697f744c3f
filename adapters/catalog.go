package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// HTTPCatalog talks to the catalog API.
//
//	GET {base}/v1/search/items?category=..&creatorName=..&includeNotForSale=..&salesTypeFilter=..&limit=..&cursor=..
//	  -> {"nextPageCursor": "..."|null, "data": [{"id": 1, "itemRestrictions": [...], ...}]}
//	GET {base}/v1/catalog/items/{id}/details?itemType=Asset
//	  -> {"id": 1, "creatorName": "...", "creatorTargetId": 1, "itemRestrictions": [...]}
type HTTPCatalog struct {
	baseURL string
	fetcher *Fetcher
}

var _ CatalogAdapter = (*HTTPCatalog)(nil)

// NewHTTPCatalog returns a catalog adapter rooted at baseURL.
func NewHTTPCatalog(baseURL string, f *Fetcher) (*HTTPCatalog, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	return &HTTPCatalog{baseURL: base, fetcher: f}, nil
}

func (c *HTTPCatalog) SearchItems(ctx context.Context, params SearchParams) (SearchPage, error) {
	u, err := url.Parse(c.baseURL + "/v1/search/items")
	if err != nil {
		return SearchPage{}, err
	}
	q := u.Query()
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.CreatorName != "" {
		q.Set("creatorName", params.CreatorName)
	}
	if params.IncludeNotForSale {
		q.Set("includeNotForSale", "true")
	}
	if params.SalesTypeFilter > 0 {
		q.Set("salesTypeFilter", strconv.Itoa(params.SalesTypeFilter))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	u.RawQuery = q.Encode()

	resp, err := c.fetcher.Get(ctx, OpCatalogSearch, u.String())
	if err != nil {
		return SearchPage{}, err
	}

	var page SearchPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return SearchPage{}, fmt.Errorf("%s: payload parse: %w", OpCatalogSearch, err)
	}
	return page, nil
}

func (c *HTTPCatalog) ItemDetails(ctx context.Context, assetID int64) (CatalogItem, error) {
	u := c.baseURL + "/v1/catalog/items/" + strconv.FormatInt(assetID, 10) + "/details?itemType=Asset"

	resp, err := c.fetcher.Get(ctx, OpCatalogDetails, u)
	if err != nil {
		return CatalogItem{}, err
	}

	var item CatalogItem
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return CatalogItem{}, fmt.Errorf("%s: payload parse: %w", OpCatalogDetails, err)
	}
	if item.ID == 0 {
		item.ID = assetID
	}
	return item, nil
}

func parseBaseURL(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "", errors.New("base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q", base)
	}
	return strings.TrimRight(base, "/"), nil
}

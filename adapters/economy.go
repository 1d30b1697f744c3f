package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// HTTPEconomy talks to the resale-data endpoint.
//
//	GET {base}/v1/assets/{id}/resale-data -> {"recentAveragePrice": 123.4, ...}
type HTTPEconomy struct {
	baseURL string
	fetcher *Fetcher
}

var _ EconomyAdapter = (*HTTPEconomy)(nil)

// NewHTTPEconomy returns an economy adapter rooted at baseURL.
func NewHTTPEconomy(baseURL string, f *Fetcher) (*HTTPEconomy, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	return &HTTPEconomy{baseURL: base, fetcher: f}, nil
}

func (e *HTTPEconomy) ResaleData(ctx context.Context, assetID int64) (ResaleData, error) {
	u := e.baseURL + "/v1/assets/" + strconv.FormatInt(assetID, 10) + "/resale-data"

	resp, err := e.fetcher.Get(ctx, OpEconomyResale, u)
	if err != nil {
		return ResaleData{}, err
	}
	return parseResaleData(resp.Body)
}

// parseResaleData keeps recentAveragePrice only when it is a JSON number.
func parseResaleData(raw []byte) (ResaleData, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ResaleData{}, fmt.Errorf("%s: payload parse: %w", OpEconomyResale, err)
	}
	var out ResaleData
	if v, ok := obj["recentAveragePrice"].(float64); ok {
		out.RecentAveragePrice = &v
	}
	return out, nil
}

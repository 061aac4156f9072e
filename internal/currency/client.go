package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/protoplan/costs-api/internal/obs"
)

const defaultTimeout = 5 * time.Second

// Doer abstracts *http.Client so retrying wrappers drop in unchanged.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches live rates from an exchangerate.host compatible API
// exposing GET {base}/latest?base=XXX&symbols=YYY.
type Client struct {
	BaseURL string
	HTTP    Doer
	Timeout time.Duration
}

type latestResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate implements Provider.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from = normalize(from)
	to = normalize(to)
	if from == to {
		return 1, nil
	}
	if c == nil || c.BaseURL == "" {
		return 0, fmt.Errorf("%w: rate API not configured", ErrRateUnavailable)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}

	var client Doer = c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		obs.CountRateLookup("api", "error")
		return 0, fmt.Errorf("fetch rate %s/%s: %w", from, to, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		obs.CountRateLookup("api", "error")
		return 0, fmt.Errorf("%w: rate API returned %d for %s/%s", ErrRateUnavailable, resp.StatusCode, from, to)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		obs.CountRateLookup("api", "error")
		return 0, fmt.Errorf("decode rate response: %w", err)
	}
	rate, ok := body.Rates[to]
	if !ok || rate <= 0 {
		obs.CountRateLookup("api", "error")
		return 0, fmt.Errorf("%w: no usable %s rate in response", ErrRateUnavailable, to)
	}
	obs.CountRateLookup("api", "ok")
	return rate, nil
}

// Package jobsapi queries the external job listing service.
package jobsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chilljobs-api/internal/apperr"
)

const DefaultTimeout = 10 * time.Second

// Page is one /api/jobs response. Jobs stay raw so fields the listing
// service adds pass through untouched.
type Page struct {
	Count  int               `json:"count"`
	Offset int               `json:"offset"`
	Jobs   []json.RawMessage `json:"jobs"`
}

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperr.E(apperr.Internal, "build job api request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.E(apperr.Upstream, "Job API unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperr.New(apperr.NotFound, "Job not found")
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return apperr.E(apperr.Upstream, "Job API unavailable", fmt.Errorf("%s %s: status %d", http.MethodGet, path, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.E(apperr.Upstream, "Job API returned an invalid response", err)
	}
	return nil
}

func (c *Client) Jobs(ctx context.Context, q url.Values) (*Page, error) {
	var p Page
	if err := c.get(ctx, "/api/jobs", q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Job(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/jobs/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/stats", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

package tilestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdok/gridmap/metrics"
	"github.com/pdok/gridmap/tile"
)

// HTTPRemote downloads tiles from a tile service, see tile.URL for the template.
type HTTPRemote struct {
	Template  string
	UserAgent string
	Client    *http.Client
}

func NewHTTPRemote(template, userAgent string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		Template:  template,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

// Fetch returns the body of a 200 response. A 404 is reported as ErrNotFound.
func (r *HTTPRemote) Fetch(ctx context.Context, b tile.Block) ([]byte, error) {
	url := tile.URL(r.Template, b)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	start := time.Now()
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetching %s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	metrics.FetchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return data, nil
}

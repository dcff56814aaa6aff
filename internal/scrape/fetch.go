package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// maxBodyBytes bounds how much of a response is parsed.
const maxBodyBytes = 16 << 20

// DefaultUserAgent identifies the scraper; some hosts reject Go's default.
const DefaultUserAgent = "pgingest/1.0 (+https://github.com/vvka-141/pgingest)"

// Fetcher performs the single HTTP GET of a scrape.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
// A zero timeout uses pgingest.DefaultFetchTimeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = pgingest.DefaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads url and parses it as HTML. Network failures and non-2xx
// statuses are reported as ErrTransport.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w: %v", url, pgingest.ErrTransport, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w: %w", url, pgingest.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GET %s: %w: unexpected status %s", url, pgingest.ErrTransport, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", url, pgingest.ErrTransport, err)
	}
	return doc, nil
}

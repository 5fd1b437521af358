package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	defaultProxyBase = "https://api.scraperapi.com/"
	maxBodyBytes     = 8 << 20
)

// HTTPError is returned when a page answers with a non-200 status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s returned %d", e.URL, e.StatusCode)
}

// Fetcher performs single HTTP GETs with a fixed header set and timeout.
// When a proxy key is set, every request is routed through the rendering
// proxy instead of hitting the site directly. There are no retries.
type Fetcher struct {
	client    *http.Client
	userAgent string
	proxyKey  string
	proxyBase string
}

// NewFetcher constructs a fetcher with its own HTTP client.
func NewFetcher(timeout time.Duration, userAgent, proxyKey string) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		proxyKey:  proxyKey,
		proxyBase: defaultProxyBase,
	}
}

// Fetch returns the body of target.
func (f *Fetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(target), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: target}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) requestURL(target string) string {
	if f.proxyKey == "" {
		return target
	}
	params := url.Values{}
	params.Set("api_key", f.proxyKey)
	params.Set("url", target)
	return f.proxyBase + "?" + params.Encode()
}

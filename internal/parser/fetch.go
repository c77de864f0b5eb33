package parser

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Sentinel fetch outcomes the orchestrator branches on.
var (
	// ErrNotFound is a hard 404: the listing is gone, record and back off.
	ErrNotFound = errors.New("page not found")
	// ErrMaintenance means the site is down for maintenance; the whole run
	// must abort.
	ErrMaintenance = errors.New("site under maintenance")
)

// politenessDelay is the fixed wait before every page fetch, independent of
// the configurable inter-listing delay.
const politenessDelay = 2 * time.Second

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// insecureHosts are known-broken TLS deployments where verification is
// disabled. Never disable globally.
var insecureHosts = map[string]bool{
	"smp.athome.co.jp": true,
}

var maintenanceMarkers = []string{
	"メンテナンス中",
	"ただいまメンテナンス",
	"システムメンテナンス",
	"maintenance in progress",
}

// Fetcher retrieves one page of HTML.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher is the plain http.Client fetcher used by the static sites. It
// enforces the politeness delay between consecutive requests.
type HTTPFetcher struct {
	client         *http.Client
	insecureClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		insecureClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Fetch performs a GET with a desktop UA and ja language preference,
// following redirects. 404 and maintenance pages map to sentinel errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	f.wait(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja")

	resp, err := f.clientFor(pageURL).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", ErrMaintenance
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	body := string(bodyBytes)

	if IsMaintenancePage(body) {
		return "", ErrMaintenance
	}

	return body, nil
}

func (f *HTTPFetcher) clientFor(pageURL string) *http.Client {
	u, err := url.Parse(pageURL)
	if err == nil && insecureHosts[u.Hostname()] {
		return f.insecureClient
	}
	return f.client
}

func (f *HTTPFetcher) wait(ctx context.Context) {
	f.mu.Lock()
	elapsed := time.Since(f.lastRequest)
	f.mu.Unlock()

	if elapsed < politenessDelay {
		select {
		case <-ctx.Done():
		case <-time.After(politenessDelay - elapsed):
		}
	}

	f.mu.Lock()
	f.lastRequest = time.Now()
	f.mu.Unlock()
}

// IsMaintenancePage reports whether a 200 body is actually a maintenance
// interstitial.
func IsMaintenancePage(html string) bool {
	for _, marker := range maintenanceMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// NewFetcher returns the fetcher a site needs: a headless browser for the
// JS-rendered portal, plain HTTP for the rest.
func NewFetcher(site string, timeout time.Duration) (Fetcher, error) {
	if site == "nomu" {
		return NewBrowserFetcher(true, timeout)
	}
	return NewHTTPFetcher(timeout), nil
}

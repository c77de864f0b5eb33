package parser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher drives headless Chrome for sites that render their list
// pages with JavaScript. One allocator is shared; each fetch gets a fresh
// browser context.
type BrowserFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration

	mu          chan struct{}
	lastRequest time.Time
}

// NewBrowserFetcher starts a Chrome allocator. Callers must Close it.
func NewBrowserFetcher(headless bool, timeout time.Duration) (*BrowserFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &BrowserFetcher{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  timeout,
		mu:       mu,
	}, nil
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Fetch navigates to the page, waits for the body to settle, and returns the
// rendered HTML. Applies the same politeness delay as the HTTP fetcher.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	select {
	case <-f.mu:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { f.mu <- struct{}{} }()

	if wait := politenessDelay - time.Since(f.lastRequest); wait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	f.lastRequest = time.Now()

	taskCtx, cancelTask := chromedp.NewContext(f.allocCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()

	// Stop early if the caller's context dies mid-navigation.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-taskCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "ja"}),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	if strings.Contains(html, "404 Not Found") || strings.Contains(html, "ページが見つかりません") {
		return "", ErrNotFound
	}
	if IsMaintenancePage(html) {
		return "", ErrMaintenance
	}

	return html, nil
}

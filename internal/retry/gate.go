// Package retry implements the persistent error-history store that makes
// detail fetches skip-safe across runs, plus the in-run field-error cache.
package retry

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"condo-watch/internal/models"
	"condo-watch/internal/store"
)

// fieldCacheSize bounds the in-run cache; one entry per (field, url).
const fieldCacheSize = 4096

// Backoff maps an error count to the wait before the next attempt.
func Backoff(errorCount int) time.Duration {
	switch {
	case errorCount <= 1:
		return 2 * time.Hour
	case errorCount <= 3:
		return 24 * time.Hour
	case errorCount <= 5:
		return 72 * time.Hour
	default:
		return 168 * time.Hour
	}
}

// Gate answers "may I fetch this URL / revisit this listing" from the
// persistent error history. With ignoreHistory set it always answers yes and
// suppresses writes, giving dry-run behavior.
type Gate struct {
	store          *store.Store
	ignoreHistory  bool
	mismatchWindow time.Duration
	fieldErrors    *lru.Cache[string, int]
}

// NewGate builds a gate over the store. mismatchRetryDays governs how long a
// price-mismatched listing stays skipped.
func NewGate(st *store.Store, ignoreHistory bool, mismatchRetryDays int) (*Gate, error) {
	cache, err := lru.New[string, int](fieldCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create field error cache: %w", err)
	}
	return &Gate{
		store:          st,
		ignoreHistory:  ignoreHistory,
		mismatchWindow: time.Duration(mismatchRetryDays) * 24 * time.Hour,
		fieldErrors:    cache,
	}, nil
}

// ShouldSkipURL reports whether a detail URL is inside the back-off window
// of a 404 or validation record. The returned reason is empty when the URL
// may be fetched.
func (g *Gate) ShouldSkipURL(sourceSite, url string, now time.Time) (bool, string, error) {
	if g.ignoreHistory {
		return false, "", nil
	}

	r404, err := g.store.GetURL404(sourceSite, url)
	if err != nil {
		return false, "", err
	}
	if r404 != nil && now.Before(r404.LastErrorAt.Add(Backoff(r404.ErrorCount))) {
		return true, fmt.Sprintf("404 backoff (%d errors)", r404.ErrorCount), nil
	}

	vErrs, err := g.store.GetValidationErrors(sourceSite, url)
	if err != nil {
		return false, "", err
	}
	for _, v := range vErrs {
		if now.Before(v.LastErrorAt.Add(Backoff(v.ErrorCount))) {
			return true, fmt.Sprintf("validation backoff (%s, %d errors)", v.ErrorType, v.ErrorCount), nil
		}
	}

	return false, "", nil
}

// ShouldSkipListing reports whether a listing is still inside its
// price-mismatch retry window.
func (g *Gate) ShouldSkipListing(sourceSite, sitePropertyID string, now time.Time) (bool, error) {
	if g.ignoreHistory {
		return false, nil
	}
	m, err := g.store.GetActivePriceMismatch(sourceSite, sitePropertyID, now)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// Record404 writes or bumps the 404 record for a URL.
func (g *Gate) Record404(sourceSite, url string, now time.Time) error {
	if g.ignoreHistory {
		return nil
	}
	return g.store.RecordURL404(sourceSite, url, now)
}

// RecordValidationError writes or bumps a validation record.
func (g *Gate) RecordValidationError(sourceSite, url, errorType, details string, now time.Time) error {
	if g.ignoreHistory {
		return nil
	}
	return g.store.RecordValidationError(sourceSite, url, errorType, details, now)
}

// RecordPriceMismatch persists one list/detail disagreement with the
// configured retry window.
func (g *Gate) RecordPriceMismatch(sourceSite, sitePropertyID, url string, listPrice, detailPrice int64, now time.Time) error {
	if g.ignoreHistory {
		return nil
	}
	return g.store.RecordPriceMismatch(&models.PriceMismatch{
		SourceSite:     sourceSite,
		SitePropertyID: sitePropertyID,
		PropertyURL:    url,
		ListPrice:      listPrice,
		DetailPrice:    detailPrice,
		AttemptedAt:    now,
		RetryAfter:     now.Add(g.mismatchWindow),
	})
}

// ResolvePriceMismatch closes open mismatch rows once prices agree again.
func (g *Gate) ResolvePriceMismatch(sourceSite, sitePropertyID string, now time.Time) error {
	if g.ignoreHistory {
		return nil
	}
	return g.store.ResolvePriceMismatches(sourceSite, sitePropertyID, now)
}

// RecordFieldError notes an in-run extraction miss for (field, url).
func (g *Gate) RecordFieldError(field, url string) {
	key := field + "|" + url
	n, _ := g.fieldErrors.Get(key)
	g.fieldErrors.Add(key, n+1)
}

// FieldErrorCount returns the in-run miss count for (field, url).
func (g *Gate) FieldErrorCount(field, url string) int {
	n, _ := g.fieldErrors.Get(field + "|" + url)
	return n
}

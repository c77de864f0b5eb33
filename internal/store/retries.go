package store

import (
	"fmt"
	"time"

	"condo-watch/internal/models"
)

// GetURL404 returns the 404 record for a detail URL, or nil.
func (s *Store) GetURL404(sourceSite, url string) (*models.URL404Retry, error) {
	var r models.URL404Retry
	err := s.get(&r, `SELECT * FROM url_404_retries WHERE source_site = ? AND url = ?`, sourceSite, url)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get 404 retry: %w", err)
	}
	return &r, nil
}

// RecordURL404 inserts or bumps the 404 record for a detail URL.
func (s *Store) RecordURL404(sourceSite, url string, at time.Time) error {
	_, err := s.exec(`INSERT INTO url_404_retries (source_site, url, error_count, last_error_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(source_site, url) DO UPDATE SET
			error_count = error_count + 1,
			last_error_at = excluded.last_error_at`,
		sourceSite, url, at)
	if err != nil {
		return fmt.Errorf("failed to record 404: %w", err)
	}
	return nil
}

// GetValidationErrors returns every validation record for a detail URL.
func (s *Store) GetValidationErrors(sourceSite, url string) ([]models.ValidationErrorRetry, error) {
	var rs []models.ValidationErrorRetry
	err := s.selectAll(&rs, `SELECT * FROM url_validation_error_retries WHERE source_site = ? AND url = ?`,
		sourceSite, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get validation retries: %w", err)
	}
	return rs, nil
}

// RecordValidationError inserts or bumps a validation record for a detail
// URL and error type.
func (s *Store) RecordValidationError(sourceSite, url, errorType, details string, at time.Time) error {
	_, err := s.exec(`INSERT INTO url_validation_error_retries
			(source_site, url, error_type, error_details, error_count, last_error_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(source_site, url, error_type) DO UPDATE SET
			error_details = excluded.error_details,
			error_count = error_count + 1,
			last_error_at = excluded.last_error_at`,
		sourceSite, url, errorType, details, at)
	if err != nil {
		return fmt.Errorf("failed to record validation error: %w", err)
	}
	return nil
}

// GetActivePriceMismatch returns the newest unresolved mismatch still inside
// its retry window, or nil.
func (s *Store) GetActivePriceMismatch(sourceSite, sitePropertyID string, now time.Time) (*models.PriceMismatch, error) {
	var m models.PriceMismatch
	err := s.get(&m, `SELECT * FROM price_mismatch_history
		WHERE source_site = ? AND site_property_id = ? AND is_resolved = 0 AND retry_after > ?
		ORDER BY attempted_at DESC LIMIT 1`,
		sourceSite, sitePropertyID, now)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price mismatch: %w", err)
	}
	return &m, nil
}

// RecordPriceMismatch persists one list/detail price disagreement.
func (s *Store) RecordPriceMismatch(m *models.PriceMismatch) error {
	res, err := s.exec(`INSERT INTO price_mismatch_history
			(source_site, site_property_id, property_url, list_price, detail_price,
			 attempted_at, retry_after, is_resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		m.SourceSite, m.SitePropertyID, m.PropertyURL, m.ListPrice, m.DetailPrice,
		m.AttemptedAt, m.RetryAfter)
	if err != nil {
		return fmt.Errorf("failed to record price mismatch: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

// ResolvePriceMismatches closes all open mismatches for a listing, called
// when list and detail prices agree again.
func (s *Store) ResolvePriceMismatches(sourceSite, sitePropertyID string, at time.Time) error {
	_, err := s.exec(`UPDATE price_mismatch_history SET is_resolved = 1, resolved_at = ?
		WHERE source_site = ? AND site_property_id = ? AND is_resolved = 0`,
		at, sourceSite, sitePropertyID)
	if err != nil {
		return fmt.Errorf("failed to resolve price mismatches: %w", err)
	}
	return nil
}

// PurgeRetries deletes retry rows whose last error predates the horizon.
// Returns rows removed.
func (s *Store) PurgeRetries(before time.Time) (int, error) {
	total := 0
	res, err := s.exec(`DELETE FROM url_404_retries WHERE last_error_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge 404 retries: %w", err)
	}
	n, _ := res.RowsAffected()
	total += int(n)

	res, err = s.exec(`DELETE FROM url_validation_error_retries WHERE last_error_at < ?`, before)
	if err != nil {
		return total, fmt.Errorf("failed to purge validation retries: %w", err)
	}
	n, _ = res.RowsAffected()
	total += int(n)

	res, err = s.exec(`DELETE FROM price_mismatch_history WHERE is_resolved = 1 AND attempted_at < ?`, before)
	if err != nil {
		return total, fmt.Errorf("failed to purge price mismatches: %w", err)
	}
	n, _ = res.RowsAffected()
	return total + int(n), nil
}

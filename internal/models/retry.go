package models

import (
	"database/sql"
	"time"
)

// URL404Retry records a detail URL that returned 404, so later runs can skip
// it until the back-off window elapses.
type URL404Retry struct {
	ID          int64     `db:"id" json:"id"`
	SourceSite  string    `db:"source_site" json:"source_site"`
	URL         string    `db:"url" json:"url"`
	ErrorCount  int       `db:"error_count" json:"error_count"`
	LastErrorAt time.Time `db:"last_error_at" json:"last_error_at"`
}

// ValidationErrorRetry records a detail URL whose page parsed but failed the
// required-fields contract.
type ValidationErrorRetry struct {
	ID           int64          `db:"id" json:"id"`
	SourceSite   string         `db:"source_site" json:"source_site"`
	URL          string         `db:"url" json:"url"`
	ErrorType    string         `db:"error_type" json:"error_type"`
	ErrorDetails sql.NullString `db:"error_details" json:"error_details"`
	ErrorCount   int            `db:"error_count" json:"error_count"`
	LastErrorAt  time.Time      `db:"last_error_at" json:"last_error_at"`
}

// PriceMismatch records a list-page/detail-page price disagreement for one
// listing; the listing is skipped until RetryAfter.
type PriceMismatch struct {
	ID             int64        `db:"id" json:"id"`
	SourceSite     string       `db:"source_site" json:"source_site"`
	SitePropertyID string       `db:"site_property_id" json:"site_property_id"`
	PropertyURL    string       `db:"property_url" json:"property_url"`
	ListPrice      int64        `db:"list_price" json:"list_price"`
	DetailPrice    int64        `db:"detail_price" json:"detail_price"`
	AttemptedAt    time.Time    `db:"attempted_at" json:"attempted_at"`
	RetryAfter     time.Time    `db:"retry_after" json:"retry_after"`
	IsResolved     bool         `db:"is_resolved" json:"is_resolved"`
	ResolvedAt     sql.NullTime `db:"resolved_at" json:"resolved_at"`
}

// ScraperAlert is persisted when a run aborts abnormally: circuit-breaker
// trips, maintenance pages, suspicious update streaks.
type ScraperAlert struct {
	ID         int64           `db:"id" json:"id"`
	SourceSite string          `db:"source_site" json:"source_site"`
	AlertType  string          `db:"alert_type" json:"alert_type"`
	FieldName  sql.NullString  `db:"field_name" json:"field_name"`
	ErrorCount sql.NullInt64   `db:"error_count" json:"error_count"`
	ErrorRate  sql.NullFloat64 `db:"error_rate" json:"error_rate"`
	Message    string          `db:"message" json:"message"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	IsResolved bool            `db:"is_resolved" json:"is_resolved"`
	ResolvedAt sql.NullTime    `db:"resolved_at" json:"resolved_at"`
}

// JobExecution is one row per task run, kept for the outer scheduler.
type JobExecution struct {
	ID         int64          `db:"id" json:"id"`
	TaskID     string         `db:"task_id" json:"task_id"`
	SourceSite string         `db:"source_site" json:"source_site"`
	AreaCode   string         `db:"area_code" json:"area_code"`
	Status     string         `db:"status" json:"status"`
	StatsJSON  sql.NullString `db:"stats_json" json:"stats_json"`
	ResumeJSON sql.NullString `db:"resume_json" json:"resume_json,omitempty"`
	StartedAt  time.Time      `db:"started_at" json:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at" json:"finished_at"`
}

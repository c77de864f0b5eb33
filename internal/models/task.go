package models

import "time"

// UpdateType classifies the outcome of one listing upsert.
type UpdateType string

const (
	UpdateNew                UpdateType = "new"
	UpdatePriceUpdated       UpdateType = "price_updated"
	UpdateOtherUpdates       UpdateType = "other_updates"
	UpdateRefetchedUnchanged UpdateType = "refetched_unchanged"
	UpdateSkipped            UpdateType = "skipped"
)

// TaskPhase is the coarse position of a scrape task in its pipeline.
type TaskPhase string

const (
	PhaseCollecting TaskPhase = "collecting"
	PhaseProcessing TaskPhase = "processing"
	PhaseCompleted  TaskPhase = "completed"
)

// TaskStats accumulates per-run counters. It is owned by the task goroutine;
// other goroutines only ever see copies via ProgressSnapshot.
type TaskStats struct {
	PropertiesFound      int `json:"properties_found"`
	PropertiesProcessed  int `json:"properties_processed"`
	PropertiesAttempted  int `json:"properties_attempted"`
	New                  int `json:"new"`
	PriceUpdated         int `json:"price_updated"`
	OtherUpdates         int `json:"other_updates"`
	RefetchedUnchanged   int `json:"refetched_unchanged"`
	DetailFetched        int `json:"detail_fetched"`
	DetailSkipped        int `json:"detail_skipped"`
	Errors               int `json:"errors"`
	PriceMissing         int `json:"price_missing"`
	BuildingInfoMissing  int `json:"building_info_missing"`
	PriceMismatch        int `json:"price_mismatch"`
	HTMLStructureErrors  int `json:"html_structure_errors"`
	Delisted             int `json:"delisted"`
}

// ProgressSnapshot is what the progress callback receives after each page and
// each processed listing, and once more at finalization.
type ProgressSnapshot struct {
	TaskID     string    `json:"task_id"`
	SourceSite string    `json:"source_site"`
	AreaCode   string    `json:"area_code"`
	Phase      TaskPhase `json:"phase"`
	Stats      TaskStats `json:"stats"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ResumeState captures enough of an interrupted run to continue it with a
// loss of at most one listing. CollectedRows is serialized by the caller.
type ResumeState struct {
	Phase          TaskPhase `json:"phase"`
	CurrentPage    int       `json:"current_page"`
	ProcessedCount int       `json:"processed_count"`
	Stats          TaskStats `json:"stats"`
}

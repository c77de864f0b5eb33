// Package scrape is the run orchestrator: the two-phase pipeline over one
// (site, area), its pause/resume/cancel control, the structure-drift
// breakers, and the manager that owns running tasks.
package scrape

import (
	"encoding/json"
	"log/slog"
	"time"

	"condo-watch/internal/config"
	"condo-watch/internal/models"
	"condo-watch/internal/parser"
	"condo-watch/internal/retry"
	"condo-watch/internal/store"
)

// txBatchSize is how many processed listings share one transaction before it
// commits.
const txBatchSize = 10

// Params describe one scrape run.
type Params struct {
	TaskID     string
	SourceSite string
	AreaCode   string

	// MaxPages caps Phase A; zero means the configured default.
	MaxPages int
	// MaxProperties caps the collected row count; zero means unlimited.
	MaxProperties int
	// ForceDetailFetch fetches every detail page regardless of freshness.
	ForceDetailFetch bool
	// IgnoreErrorHistory bypasses the persistent retry gate and suppresses
	// its writes.
	IgnoreErrorHistory bool

	// Resume continues an interrupted run instead of starting fresh.
	Resume *Resume
}

// Resume is the serializable state of an interrupted run. A task resumed
// from it repeats at most one listing.
type Resume struct {
	models.ResumeState
	CollectedRows []parser.ListRow `json:"collected_rows"`
}

// MarshalResume serializes resume state for the job log.
func MarshalResume(r *Resume) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalResume parses resume state back out of the job log.
func UnmarshalResume(s string) (*Resume, error) {
	var r Resume
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ProgressFunc receives a snapshot after every page, every processed listing,
// and once at finalization.
type ProgressFunc func(models.ProgressSnapshot)

// Task is one run of the pipeline over a (site, area). It is driven by a
// single goroutine; Control is the only cross-goroutine surface.
type Task struct {
	params  Params
	cfg     config.Config
	store   *store.Store
	parser  parser.SiteParser
	fetcher parser.Fetcher
	gate    *retry.Gate
	log     *slog.Logger

	control  *Control
	progress ProgressFunc

	stats models.TaskStats
	phase models.TaskPhase

	breaker    *fieldBreaker
	suspicious *suspiciousGuard
	selectors  *selectorTracker

	// resume bookkeeping, kept current so a pause can snapshot it
	currentPage    int
	processedCount int
	collectedRows  []parser.ListRow
	// sweepEligible is set when Phase A covered the whole area; a truncated
	// walk must not drive delisting.
	sweepEligible bool

	jobID int64
}

// NewTask wires a task from its dependencies. The gate must share the task's
// store.
func NewTask(params Params, cfg config.Config, st *store.Store, p parser.SiteParser,
	f parser.Fetcher, gate *retry.Gate, log *slog.Logger, control *Control, progress ProgressFunc) *Task {
	if params.MaxPages <= 0 {
		params.MaxPages = cfg.MaxPages
	}
	t := &Task{
		params:   params,
		cfg:      cfg,
		store:    st,
		parser:   p,
		fetcher:  f,
		gate:     gate,
		log:      log.With("task_id", params.TaskID, "source_site", params.SourceSite, "area_code", params.AreaCode),
		control:  control,
		progress: progress,
		breaker: newFieldBreaker(cfg.ConsecutiveErrors, cfg.CriticalErrorCount,
			cfg.CriticalErrorRate, p.PartialRequiredFields()),
		suspicious: &suspiciousGuard{threshold: cfg.SuspiciousUpdateThreshold},
		selectors:  newSelectorTracker(),
		phase:      models.PhaseCollecting,
	}
	if r := params.Resume; r != nil {
		t.phase = r.Phase
		t.currentPage = r.CurrentPage
		t.processedCount = r.ProcessedCount
		t.stats = r.Stats
		t.collectedRows = r.CollectedRows
	}
	return t
}

// Stats returns a copy of the current counters.
func (t *Task) Stats() models.TaskStats {
	return t.stats
}

func (t *Task) snapshot() models.ProgressSnapshot {
	return models.ProgressSnapshot{
		TaskID:     t.params.TaskID,
		SourceSite: t.params.SourceSite,
		AreaCode:   t.params.AreaCode,
		Phase:      t.phase,
		Stats:      t.stats,
		UpdatedAt:  time.Now(),
	}
}

func (t *Task) emitProgress() {
	if t.progress != nil {
		t.progress(t.snapshot())
	}
}

// resumeState captures where the run is right now, for pause persistence.
func (t *Task) resumeState() *Resume {
	return &Resume{
		ResumeState: models.ResumeState{
			Phase:          t.phase,
			CurrentPage:    t.currentPage,
			ProcessedCount: t.processedCount,
			Stats:          t.stats,
		},
		CollectedRows: t.collectedRows,
	}
}

// checkpoint is the per-page / per-listing suspension point. Before blocking
// on a pause it persists resume state, so even a killed process can continue
// the run.
func (t *Task) checkpoint() error {
	if t.control == nil {
		return nil
	}
	if t.control.IsPaused() {
		t.saveResume()
		t.log.Info("task paused", "phase", t.phase, "page", t.currentPage, "processed", t.processedCount)
	}
	return t.control.Checkpoint(t.cfg.PauseTimeout)
}

func (t *Task) saveResume() {
	if t.jobID == 0 {
		return
	}
	s, err := MarshalResume(t.resumeState())
	if err != nil {
		t.log.Error("failed to marshal resume state", "error", err)
		return
	}
	if err := t.store.SaveJobResume(t.jobID, s); err != nil {
		t.log.Error("failed to save resume state", "error", err)
	}
}

package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"condo-watch/internal/config"
	"condo-watch/internal/models"
	"condo-watch/internal/parser"
	"condo-watch/internal/retry"
	"condo-watch/internal/store"
)

// Task lifecycle states as seen by the API.
const (
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
	StateAborted   = "aborted"
	StateFailed    = "failed"
)

// ErrSiteBusy means the site already has a running or paused task; the sites
// do not tolerate concurrent crawls from one address.
var ErrSiteBusy = errors.New("site already has an active task")

// ErrTaskNotFound means no task with the given id is known to the manager.
var ErrTaskNotFound = errors.New("task not found")

// StartRequest describes a task to launch.
type StartRequest struct {
	SourceSite         string `json:"source_site"`
	AreaCode           string `json:"area_code"`
	MaxPages           int    `json:"max_pages,omitempty"`
	MaxProperties      int    `json:"max_properties,omitempty"`
	ForceDetailFetch   bool   `json:"force_detail_fetch,omitempty"`
	IgnoreErrorHistory bool   `json:"ignore_error_history,omitempty"`
	// ResumeLastRun continues the most recent interrupted run of this
	// (site, area) from its persisted state.
	ResumeLastRun bool `json:"resume_last_run,omitempty"`
}

// TaskStatus is the API view of one task.
type TaskStatus struct {
	ID         string                  `json:"id"`
	SourceSite string                  `json:"source_site"`
	AreaCode   string                  `json:"area_code"`
	State      string                  `json:"state"`
	Progress   models.ProgressSnapshot `json:"progress"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

type taskHandle struct {
	id      string
	site    string
	area    string
	control *Control
	ring    *errorRing

	mu        sync.Mutex
	state     string
	progress  models.ProgressSnapshot
	started   time.Time
	finished  *time.Time
	runErr    error
	cancelCtx context.CancelFunc
}

func (h *taskHandle) status() TaskStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := TaskStatus{
		ID:         h.id,
		SourceSite: h.site,
		AreaCode:   h.area,
		State:      h.state,
		Progress:   h.progress,
		StartedAt:  h.started,
		FinishedAt: h.finished,
	}
	if h.runErr != nil {
		s.Error = h.runErr.Error()
	}
	return s
}

func (h *taskHandle) active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateRunning || h.state == StatePaused
}

// Manager owns running tasks: one active task per source site, lifecycle
// control, and the per-task error rings.
type Manager struct {
	cfg   config.Config
	store *store.Store
	log   *slog.Logger

	mu    sync.Mutex
	tasks map[string]*taskHandle
}

// NewManager creates a manager over one store.
func NewManager(cfg config.Config, st *store.Store, log *slog.Logger) *Manager {
	return &Manager{cfg: cfg, store: st, log: log, tasks: make(map[string]*taskHandle)}
}

// Start launches a task for the request and returns its id. At most one task
// per source site may be running or paused at a time.
func (m *Manager) Start(ctx context.Context, req StartRequest) (string, error) {
	p, err := parser.New(req.SourceSite)
	if err != nil {
		return "", err
	}
	if req.AreaCode == "" {
		return "", fmt.Errorf("area_code is required")
	}

	var resume *Resume
	if req.ResumeLastRun {
		job, err := m.store.GetResumableJob(req.SourceSite, req.AreaCode)
		if err != nil {
			return "", err
		}
		if job != nil && job.ResumeJSON.Valid {
			resume, err = UnmarshalResume(job.ResumeJSON.String)
			if err != nil {
				return "", fmt.Errorf("bad resume state for job %d: %w", job.ID, err)
			}
		}
	}

	m.mu.Lock()
	for _, h := range m.tasks {
		if h.site == req.SourceSite && h.active() {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrSiteBusy, req.SourceSite)
		}
	}

	id := uuid.NewString()
	handle := &taskHandle{
		id:      id,
		site:    req.SourceSite,
		area:    req.AreaCode,
		control: NewControl(),
		ring:    &errorRing{},
		state:   StateRunning,
		started: time.Now(),
	}
	m.tasks[id] = handle
	m.mu.Unlock()

	go m.runTask(ctx, handle, p, req, resume)

	m.log.Info("task started", "task_id", id, "source_site", req.SourceSite, "area_code", req.AreaCode)
	return id, nil
}

func (m *Manager) runTask(ctx context.Context, handle *taskHandle, p parser.SiteParser, req StartRequest, resume *Resume) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle.mu.Lock()
	handle.cancelCtx = cancel
	handle.mu.Unlock()

	// Context cancellation and control cancellation are kept in sync so a
	// blocked fetch unblocks when the operator cancels.
	go func() {
		select {
		case <-handle.control.Cancelled():
			cancel()
		case <-runCtx.Done():
		}
	}()

	log := slog.New(newRingHandler(handle.ring, m.log.Handler()))

	fetcher, err := parser.NewFetcher(req.SourceSite, m.cfg.HTTPTimeout)
	if err != nil {
		m.finish(handle, fmt.Errorf("create fetcher: %w", err))
		return
	}
	defer closeFetcher(fetcher)

	gate, err := retry.NewGate(m.store, req.IgnoreErrorHistory, m.cfg.PriceMismatchRetryDays)
	if err != nil {
		m.finish(handle, fmt.Errorf("create retry gate: %w", err))
		return
	}

	task := NewTask(Params{
		TaskID:             handle.id,
		SourceSite:         req.SourceSite,
		AreaCode:           req.AreaCode,
		MaxPages:           req.MaxPages,
		MaxProperties:      req.MaxProperties,
		ForceDetailFetch:   req.ForceDetailFetch,
		IgnoreErrorHistory: req.IgnoreErrorHistory,
		Resume:             resume,
	}, m.cfg, m.store, p, fetcher, gate, log, handle.control, func(s models.ProgressSnapshot) {
		handle.mu.Lock()
		handle.progress = s
		handle.mu.Unlock()
	})

	m.finish(handle, task.Run(runCtx))
}

func (m *Manager) finish(handle *taskHandle, runErr error) {
	now := time.Now()
	handle.mu.Lock()
	defer handle.mu.Unlock()
	handle.finished = &now
	handle.runErr = runErr

	var tripped *TrippedError
	switch {
	case runErr == nil:
		handle.state = StateCompleted
	case errors.Is(runErr, ErrCancelled), errors.Is(runErr, ErrPauseTimeout),
		errors.Is(runErr, context.Canceled):
		handle.state = StateCancelled
	case errors.Is(runErr, parser.ErrMaintenance), errors.As(runErr, &tripped):
		handle.state = StateAborted
	default:
		handle.state = StateFailed
	}
}

func closeFetcher(f parser.Fetcher) {
	if c, ok := f.(interface{ Close() }); ok {
		c.Close()
	}
}

func (m *Manager) handle(id string) (*taskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return h, nil
}

// Pause asks a running task to block at its next checkpoint.
func (m *Manager) Pause(id string) error {
	h, err := m.handle(id)
	if err != nil {
		return err
	}
	h.control.Pause()
	h.mu.Lock()
	if h.state == StateRunning {
		h.state = StatePaused
	}
	h.mu.Unlock()
	m.log.Info("task paused", "task_id", id)
	return nil
}

// Resume releases a paused task.
func (m *Manager) Resume(id string) error {
	h, err := m.handle(id)
	if err != nil {
		return err
	}
	h.control.Resume()
	h.mu.Lock()
	if h.state == StatePaused {
		h.state = StateRunning
	}
	h.mu.Unlock()
	m.log.Info("task resumed", "task_id", id)
	return nil
}

// Cancel stops a task at its next checkpoint. Already-saved work stays
// saved.
func (m *Manager) Cancel(id string) error {
	h, err := m.handle(id)
	if err != nil {
		return err
	}
	h.control.Cancel()
	m.log.Info("task cancelled", "task_id", id)
	return nil
}

// Get returns one task's status.
func (m *Manager) Get(id string) (TaskStatus, error) {
	h, err := m.handle(id)
	if err != nil {
		return TaskStatus{}, err
	}
	return h.status(), nil
}

// List returns every known task, newest first.
func (m *Manager) List() []TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskStatus, 0, len(m.tasks))
	for _, h := range m.tasks {
		out = append(out, h.status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Errors returns a task's recent warn-and-error log entries.
func (m *Manager) Errors(id string) ([]TaskError, error) {
	h, err := m.handle(id)
	if err != nil {
		return nil, err
	}
	return h.ring.Errors(), nil
}

// CancelAll cancels every active task, used on shutdown.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.tasks {
		if h.active() {
			h.control.Cancel()
		}
	}
}

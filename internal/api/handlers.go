package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"condo-watch/internal/config"
	"condo-watch/internal/scrape"
	"condo-watch/internal/store"
)

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	manager *scrape.Manager
	store   *store.Store
	log     *slog.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(manager *scrape.Manager, st *store.Store, log *slog.Logger) *Handlers {
	return &Handlers{manager: manager, store: st, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// CreateTask handles POST /api/tasks
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req scrape.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	known := false
	for _, site := range config.Sites {
		if site == req.SourceSite {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusBadRequest, "unknown source_site")
		return
	}

	id, err := h.manager.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, scrape.ErrSiteBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

// ListTasks handles GET /api/tasks
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.manager.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// GetTask handles GET /api/tasks/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	status, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// PauseTask handles POST /api/tasks/{id}/pause
func (h *Handlers) PauseTask(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.manager.Pause)
}

// ResumeTask handles POST /api/tasks/{id}/resume
func (h *Handlers) ResumeTask(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.manager.Resume)
}

// CancelTask handles POST /api/tasks/{id}/cancel
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.manager.Cancel)
}

func (h *Handlers) lifecycle(w http.ResponseWriter, r *http.Request, op func(string) error) {
	id := chi.URLParam(r, "id")
	if err := op(id); err != nil {
		if errors.Is(err, scrape.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status, err := h.manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// TaskErrors handles GET /api/tasks/{id}/errors
func (h *Handlers) TaskErrors(w http.ResponseWriter, r *http.Request) {
	errs, err := h.manager.Errors(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"errors": errs,
		"count":  len(errs),
	})
}

// ListAlerts handles GET /api/alerts
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListUnresolvedAlerts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert handles POST /api/alerts/{id}/resolve
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert ID")
		return
	}
	if err := h.store.ResolveAlert(id, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// ListJobs handles GET /api/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	jobs, err := h.store.ListRecentJobs(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// ListPriceHistory handles GET /api/listings/{id}/prices
func (h *Handlers) ListPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing ID")
		return
	}
	history, err := h.store.ListPriceHistory(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prices": history,
		"count":  len(history),
	})
}

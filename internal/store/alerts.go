package store

import (
	"fmt"
	"time"

	"condo-watch/internal/models"
)

// InsertAlert persists a scraper alert row.
func (s *Store) InsertAlert(a *models.ScraperAlert) error {
	a.CreatedAt = time.Now()
	res, err := s.exec(`INSERT INTO scraper_alerts
			(source_site, alert_type, field_name, error_count, error_rate, message, created_at, is_resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		a.SourceSite, a.AlertType, a.FieldName, a.ErrorCount, a.ErrorRate, a.Message, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

// ListUnresolvedAlerts returns open alerts, newest first.
func (s *Store) ListUnresolvedAlerts() ([]models.ScraperAlert, error) {
	var as []models.ScraperAlert
	err := s.selectAll(&as, `SELECT * FROM scraper_alerts WHERE is_resolved = 0 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return as, nil
}

// ResolveAlert closes one alert.
func (s *Store) ResolveAlert(id int64, at time.Time) error {
	_, err := s.exec(`UPDATE scraper_alerts SET is_resolved = 1, resolved_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert %d: %w", id, err)
	}
	return nil
}

// StartJobExecution records the start of a task run for the outer scheduler.
func (s *Store) StartJobExecution(j *models.JobExecution) error {
	res, err := s.exec(`INSERT INTO job_execution_log (task_id, source_site, area_code, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		j.TaskID, j.SourceSite, j.AreaCode, j.Status, j.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to start job execution: %w", err)
	}
	j.ID, _ = res.LastInsertId()
	return nil
}

// SaveJobResume persists a paused task's resume state so a restarted
// process can continue the run.
func (s *Store) SaveJobResume(id int64, resumeJSON string) error {
	_, err := s.exec(`UPDATE job_execution_log SET resume_json = ? WHERE id = ?`, resumeJSON, id)
	if err != nil {
		return fmt.Errorf("failed to save job resume state: %w", err)
	}
	return nil
}

// ListRecentJobs returns the newest task runs, most recent first.
func (s *Store) ListRecentJobs(limit int) ([]models.JobExecution, error) {
	var js []models.JobExecution
	err := s.selectAll(&js, `SELECT * FROM job_execution_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return js, nil
}

// GetResumableJob returns the most recent interrupted run of (site, area)
// that saved resume state, or nil.
func (s *Store) GetResumableJob(sourceSite, areaCode string) (*models.JobExecution, error) {
	var j models.JobExecution
	err := s.get(&j, `SELECT * FROM job_execution_log
		WHERE source_site = ? AND area_code = ? AND status = 'cancelled' AND resume_json IS NOT NULL
		ORDER BY started_at DESC LIMIT 1`, sourceSite, areaCode)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resumable job: %w", err)
	}
	return &j, nil
}

// FinishJobExecution records the terminal status and stats of a task run.
func (s *Store) FinishJobExecution(id int64, status, statsJSON string, at time.Time) error {
	_, err := s.exec(`UPDATE job_execution_log SET status = ?, stats_json = ?, finished_at = ? WHERE id = ?`,
		status, statsJSON, at, id)
	if err != nil {
		return fmt.Errorf("failed to finish job execution: %w", err)
	}
	return nil
}

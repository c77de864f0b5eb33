package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"condo-watch/internal/models"
	"condo-watch/internal/parser"
	"condo-watch/internal/resolver"
	"condo-watch/internal/store"
)

// delistAfter is how many consecutive runs a listing must be absent from its
// area's list pages before it is delisted. One miss is usually a pagination
// hiccup on the site, not a real delisting.
const delistAfter = 2

// emptyPageLimit stops Phase A after this many consecutive pages with no
// valid rows.
const emptyPageLimit = 2

// Run executes the two phases and finalizes the job log row. It returns nil
// on a completed run and the terminal error otherwise; cancellation is a
// terminal error too.
func (t *Task) Run(ctx context.Context) error {
	job := &models.JobExecution{
		TaskID:     t.params.TaskID,
		SourceSite: t.params.SourceSite,
		AreaCode:   t.params.AreaCode,
		Status:     "running",
		StartedAt:  time.Now(),
	}
	if err := t.store.StartJobExecution(job); err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	t.jobID = job.ID

	err := t.run(ctx)
	t.finalize(err)
	return err
}

func (t *Task) run(ctx context.Context) error {
	if t.phase == models.PhaseCollecting {
		complete, err := t.collect(ctx)
		if err != nil {
			return err
		}
		t.sweepEligible = complete
		t.phase = models.PhaseProcessing
		t.processedCount = 0
	} else {
		t.log.Info("resuming in processing phase",
			"collected", len(t.collectedRows), "processed", t.processedCount)
	}

	if err := t.process(ctx); err != nil {
		return err
	}

	if t.sweepEligible {
		t.sweep()
	} else {
		t.log.Info("skipping delist sweep: collection did not cover the area")
	}

	t.phase = models.PhaseCompleted
	return nil
}

// collect is Phase A: walk list pages, accumulate valid rows. It returns
// whether the walk covered the whole area (only a covered walk may drive the
// delist sweep).
func (t *Task) collect(ctx context.Context) (bool, error) {
	seen := make(map[string]bool, len(t.collectedRows))
	for _, row := range t.collectedRows {
		seen[row.SitePropertyID] = true
	}

	startPage := t.currentPage
	if startPage < 1 {
		startPage = 1
	}

	emptyStreak := 0
	var prevPageIDs string

	for page := startPage; ; page++ {
		t.currentPage = page
		if err := t.checkpoint(); err != nil {
			return false, err
		}
		if page > t.params.MaxPages {
			t.log.Warn("stopping at page cap", "max_pages", t.params.MaxPages)
			return false, nil
		}

		pageURL := t.parser.BuildListURL(t.params.AreaCode, page)
		html, err := t.fetcher.Fetch(ctx, pageURL)
		if errors.Is(err, parser.ErrMaintenance) {
			return false, t.abortMaintenance(pageURL)
		}
		if err != nil {
			t.log.Warn("list page fetch failed", "page", page, "error", err)
			t.stats.Errors++
			emptyStreak++
			if emptyStreak >= emptyPageLimit {
				return false, nil
			}
			continue
		}

		rows := t.parser.ParseList(html)
		valid := rows[:0]
		for _, row := range rows {
			if !parser.ValidateListRow(t.parser, row) {
				t.stats.HTMLStructureErrors++
				continue
			}
			valid = append(valid, row)
		}
		t.selectors.observe("list_rows", len(valid) > 0)

		// A site serving the same page for every page number would loop the
		// walk forever.
		pageIDs := fingerprintRows(valid)
		if len(valid) > 0 && pageIDs == prevPageIDs {
			t.log.Warn("pagination returned identical pages, stopping", "page", page)
			return false, nil
		}
		prevPageIDs = pageIDs

		if len(valid) == 0 {
			emptyStreak++
			if emptyStreak >= emptyPageLimit {
				return true, nil
			}
			continue
		}
		emptyStreak = 0

		for _, row := range valid {
			if seen[row.SitePropertyID] {
				continue
			}
			seen[row.SitePropertyID] = true
			t.collectedRows = append(t.collectedRows, row)
			t.stats.PropertiesFound++
			if t.params.MaxProperties > 0 && len(t.collectedRows) >= t.params.MaxProperties {
				t.log.Info("stopping at property cap", "max_properties", t.params.MaxProperties)
				return false, nil
			}
		}

		t.emitProgress()

		if t.parser.IsLastPage(html) {
			t.log.Info("reached last page", "page", page, "collected", len(t.collectedRows))
			return true, nil
		}
	}
}

func fingerprintRows(rows []parser.ListRow) string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.SitePropertyID
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

// process is Phase B: visit each collected row, decide whether its detail
// page needs fetching, and persist the outcome. Saves batch into
// transactions of txBatchSize listings.
func (t *Task) process(ctx context.Context) error {
	batch, err := t.store.Begin()
	if err != nil {
		return err
	}
	res := resolver.New(batch, t.log, resolver.Options{PreventNullUpdates: t.cfg.PreventNullUpdates})
	inBatch := 0

	commit := func() error {
		if err := batch.Commit(); err != nil {
			return fmt.Errorf("commit listing batch: %w", err)
		}
		batch, err = t.store.Begin()
		if err != nil {
			return err
		}
		res = resolver.New(batch, t.log, resolver.Options{PreventNullUpdates: t.cfg.PreventNullUpdates})
		inBatch = 0
		return nil
	}

	for i := t.processedCount; i < len(t.collectedRows); i++ {
		if err := t.checkpoint(); err != nil {
			batch.Commit()
			return err
		}

		row := t.collectedRows[i]
		if err := t.processListing(ctx, batch, res, row); err != nil {
			batch.Rollback()
			return err
		}
		t.processedCount = i + 1
		t.stats.PropertiesProcessed++
		t.emitProgress()

		if err := t.guards(); err != nil {
			batch.Commit()
			return err
		}

		inBatch++
		if inBatch >= txBatchSize {
			if err := commit(); err != nil {
				return err
			}
		}

		if i+1 < len(t.collectedRows) && t.cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				batch.Commit()
				return ctx.Err()
			case <-time.After(t.cfg.Delay):
			}
		}
	}

	return batch.Commit()
}

// processListing handles one collected row end to end. It returns an error
// only for run-terminal conditions; per-listing failures are counted and
// swallowed.
func (t *Task) processListing(ctx context.Context, batch *store.Store, res *resolver.Resolver, row parser.ListRow) error {
	now := time.Now()

	// A listing inside its price-mismatch retry window is not revisited.
	skip, err := t.gate.ShouldSkipListing(t.params.SourceSite, row.SitePropertyID, now)
	if err != nil {
		return err
	}
	if skip {
		t.stats.DetailSkipped++
		return nil
	}

	existing, err := batch.GetListingBySiteID(t.params.SourceSite, row.SitePropertyID)
	if err != nil {
		return err
	}

	if !t.needsDetail(existing, row, now) {
		if err := batch.TouchListing(existing.ID, now); err != nil {
			return err
		}
		t.stats.DetailSkipped++
		return nil
	}

	if !t.params.ForceDetailFetch {
		skip, reason, err := t.gate.ShouldSkipURL(t.params.SourceSite, row.URL, now)
		if err != nil {
			return err
		}
		if skip {
			t.log.Debug("skipping url in backoff", "url", row.URL, "reason", reason)
			t.stats.DetailSkipped++
			return nil
		}
	}

	t.stats.PropertiesAttempted++

	html, err := t.fetcher.Fetch(ctx, row.URL)
	switch {
	case errors.Is(err, parser.ErrMaintenance):
		return t.abortMaintenance(row.URL)
	case errors.Is(err, parser.ErrNotFound):
		t.log.Info("detail page 404", "url", row.URL)
		t.stats.Errors++
		return t.gate.Record404(t.params.SourceSite, row.URL, now)
	case err != nil:
		t.log.Warn("detail fetch failed", "url", row.URL, "error", err)
		t.stats.Errors++
		return nil
	}

	d := t.parser.ParseDetail(html, row)
	t.selectors.observe("detail_block", d != nil)
	if d == nil {
		t.stats.HTMLStructureErrors++
		t.stats.Errors++
		t.breaker.observeParseFailure()
		return t.gate.RecordValidationError(t.params.SourceSite, row.URL, "parse_failure",
			"no recognizable detail block", now)
	}

	t.breaker.observe(map[string]bool{
		"price":         d.Price > 0,
		"building_name": d.BuildingName != "",
		"area":          d.Area > 0,
		"layout":        d.Layout != "",
		"floor":         d.Floor > 0,
		"built_year":    d.BuiltYear > 0,
	})

	if ok := t.validate(d, row, now); !ok {
		return nil
	}

	// Cross-check the list price against the detail price. Disagreement
	// usually means the pages were cached at different times; park the
	// listing instead of persisting a possibly stale number.
	if row.Price > 0 && d.Price > 0 && row.Price != d.Price {
		t.log.Warn("price mismatch between list and detail",
			"site_property_id", row.SitePropertyID, "list", row.Price, "detail", d.Price)
		t.stats.PriceMismatch++
		return t.gate.RecordPriceMismatch(t.params.SourceSite, row.SitePropertyID, row.URL,
			row.Price, d.Price, now)
	}
	if err := t.gate.ResolvePriceMismatch(t.params.SourceSite, row.SitePropertyID, now); err != nil {
		return err
	}

	ok, name := t.parser.VerifyBuildingNames(d, row.BuildingName)
	if !ok {
		t.log.Warn("building name mismatch between list and detail",
			"site_property_id", row.SitePropertyID, "list", row.BuildingName, "detail", d.BuildingName)
		t.stats.Errors++
		return t.gate.RecordValidationError(t.params.SourceSite, row.URL, "building_name_mismatch",
			fmt.Sprintf("list %q vs detail %q", row.BuildingName, d.BuildingName), now)
	}
	if name != "" {
		d.BuildingName = name
	}

	result, err := res.Process(t.params.SourceSite, t.params.AreaCode, d)
	if err != nil {
		t.log.Error("failed to persist listing", "url", row.URL, "error", err)
		t.stats.Errors++
		return nil
	}
	t.stats.DetailFetched++
	t.suspicious.observe(result.Suspicious)

	switch result.UpdateType {
	case models.UpdateNew:
		t.stats.New++
	case models.UpdatePriceUpdated:
		t.stats.PriceUpdated++
	case models.UpdateOtherUpdates:
		t.stats.OtherUpdates++
	case models.UpdateRefetchedUnchanged:
		t.stats.RefetchedUnchanged++
	}
	return nil
}

// needsDetail decides whether a collected row's detail page must be fetched.
func (t *Task) needsDetail(existing *models.PropertyListing, row parser.ListRow, now time.Time) bool {
	if t.params.ForceDetailFetch || existing == nil || !t.cfg.SmartScraping {
		return true
	}
	if existing.CurrentPrice.Valid && row.Price > 0 && existing.CurrentPrice.Int64 != row.Price {
		return true
	}
	refetchAfter := time.Duration(t.cfg.RefetchDaysFor(t.params.SourceSite)) * 24 * time.Hour
	if !existing.DetailFetchedAt.Valid || now.Sub(existing.DetailFetchedAt.Time) > refetchAfter {
		return true
	}
	return false
}

// validate applies the required-fields contract. Violations on
// partial-required fields are tolerated here; the breaker enforces their
// overall rate.
func (t *Task) validate(d *parser.DetailRecord, row parser.ListRow, now time.Time) bool {
	partial := make(map[string]bool)
	for _, f := range t.parser.PartialRequiredFields() {
		partial[f] = true
	}

	hard := false
	for _, fe := range parser.ValidateDetail(t.parser, d) {
		if partial[fe.Field] {
			continue
		}
		hard = true
		t.gate.RecordFieldError(fe.Field, row.URL)
		if err := t.gate.RecordValidationError(t.params.SourceSite, row.URL, fe.Field, fe.Reason, now); err != nil {
			t.log.Error("failed to record validation error", "error", err)
		}
		switch fe.Field {
		case "price":
			t.stats.PriceMissing++
		case "building_name", "address":
			t.stats.BuildingInfoMissing++
		}
		t.log.Warn("detail validation failed", "url", row.URL, "field", fe.Field, "reason", fe.Reason)
	}
	if hard {
		t.stats.Errors++
		return false
	}
	return true
}

// guards aborts the run when a breaker or the suspicious-update streak
// trips, persisting an alert first.
func (t *Task) guards() error {
	if err := t.breaker.check(); err != nil {
		t.alertTripped(err.(*TrippedError), "field_breaker")
		return err
	}
	if err := t.suspicious.check(); err != nil {
		t.alertTripped(err.(*TrippedError), "suspicious_updates")
		return err
	}
	return nil
}

func (t *Task) alertTripped(e *TrippedError, alertType string) {
	a := &models.ScraperAlert{
		SourceSite: t.params.SourceSite,
		AlertType:  alertType,
		Message:    e.Error(),
	}
	a.FieldName.String, a.FieldName.Valid = e.Field, true
	a.ErrorCount.Int64, a.ErrorCount.Valid = int64(e.Count), true
	if e.Rate > 0 {
		a.ErrorRate.Float64, a.ErrorRate.Valid = e.Rate, true
	}
	if err := t.store.InsertAlert(a); err != nil {
		t.log.Error("failed to persist alert", "error", err)
	}
}

func (t *Task) abortMaintenance(url string) error {
	t.log.Error("site under maintenance, aborting run", "url", url)
	a := &models.ScraperAlert{
		SourceSite: t.params.SourceSite,
		AlertType:  "maintenance",
		Message:    fmt.Sprintf("maintenance page at %s", url),
	}
	if err := t.store.InsertAlert(a); err != nil {
		t.log.Error("failed to persist alert", "error", err)
	}
	return fmt.Errorf("%s: %w", url, parser.ErrMaintenance)
}

// sweep runs the delisting pass: every active listing of this (site, area)
// absent from the collected rows gets a miss, and listings missed
// delistAfter runs in a row go inactive.
func (t *Task) sweep() {
	seen := make([]string, len(t.collectedRows))
	for i, row := range t.collectedRows {
		seen[i] = row.SitePropertyID
	}
	n, err := t.store.SweepMissing(t.params.SourceSite, t.params.AreaCode, seen, delistAfter, time.Now())
	if err != nil {
		t.log.Error("delist sweep failed", "error", err)
		t.stats.Errors++
		return
	}
	t.stats.Delisted += n
	if n > 0 {
		t.log.Info("delisted missing listings", "count", n)
	}
}

// finalize writes the terminal job row, raises degraded-selector alerts and
// emits the last snapshot.
func (t *Task) finalize(runErr error) {
	for _, stage := range t.selectors.degraded() {
		a := &models.ScraperAlert{
			SourceSite: t.params.SourceSite,
			AlertType:  "selector_degraded",
			Message:    fmt.Sprintf("extraction stage %q failing at least half the time", stage),
		}
		a.FieldName.String, a.FieldName.Valid = stage, true
		if err := t.store.InsertAlert(a); err != nil {
			t.log.Error("failed to persist alert", "error", err)
		}
	}

	status := "completed"
	var tripped *TrippedError
	switch {
	case runErr == nil:
	case errors.Is(runErr, ErrCancelled), errors.Is(runErr, ErrPauseTimeout):
		status = "cancelled"
	case errors.Is(runErr, parser.ErrMaintenance):
		status = "aborted"
	case errors.As(runErr, &tripped):
		status = "aborted"
	default:
		status = "failed"
	}

	statsJSON, err := json.Marshal(t.stats)
	if err != nil {
		t.log.Error("failed to marshal stats", "error", err)
	}
	if err := t.store.FinishJobExecution(t.jobID, status, string(statsJSON), time.Now()); err != nil {
		t.log.Error("failed to finish job log", "error", err)
	}

	t.emitProgress()
	t.log.Info("run finished", "status", status,
		"found", t.stats.PropertiesFound, "processed", t.stats.PropertiesProcessed,
		"new", t.stats.New, "price_updated", t.stats.PriceUpdated, "errors", t.stats.Errors)
}

package scrape

import "fmt"

// criticalFields are the extractions whose failure patterns indicate site
// HTML drift rather than bad individual listings.
var criticalFields = []string{"price", "building_name", "area", "layout", "floor", "built_year"}

// TrippedError aborts a run when a breaker decides the site's markup has
// changed under us. Continuing would poison the database with nulls.
type TrippedError struct {
	Field   string
	Count   int
	Rate    float64
	Message string
}

func (e *TrippedError) Error() string {
	return fmt.Sprintf("breaker tripped on %s: %s", e.Field, e.Message)
}

// fieldBreaker watches critical-field extraction failures within one run.
// It trips when a field fails consecutiveLimit times in a row, or when a
// field's overall failure rate exceeds rateLimit with at least countFloor
// failures observed.
type fieldBreaker struct {
	consecutiveLimit int
	rateLimit        float64
	countFloor       int

	attempts    int
	consecutive map[string]int
	failures    map[string]int

	// partial-required fields tolerate misses up to partialRate of the
	// sample, once the sample reaches partialFloor listings.
	partial        map[string]bool
	partialMisses  map[string]int
	partialSamples int
}

const (
	partialRate  = 0.30
	partialFloor = 10
)

func newFieldBreaker(consecutiveLimit, countFloor int, rateLimit float64, partialFields []string) *fieldBreaker {
	partial := make(map[string]bool, len(partialFields))
	for _, f := range partialFields {
		partial[f] = true
	}
	return &fieldBreaker{
		consecutiveLimit: consecutiveLimit,
		rateLimit:        rateLimit,
		countFloor:       countFloor,
		consecutive:      make(map[string]int),
		failures:         make(map[string]int),
		partial:          partial,
		partialMisses:    make(map[string]int),
	}
}

// observe records one parsed detail record's field outcomes. present maps
// field name to whether extraction produced a value.
func (b *fieldBreaker) observe(present map[string]bool) {
	b.attempts++
	b.partialSamples++
	for _, field := range criticalFields {
		if b.partial[field] {
			if !present[field] {
				b.partialMisses[field]++
			}
			continue
		}
		if present[field] {
			b.consecutive[field] = 0
		} else {
			b.consecutive[field]++
			b.failures[field]++
		}
	}
}

// observeParseFailure records a detail page that produced no record at all.
// Every non-partial critical field counts as failed.
func (b *fieldBreaker) observeParseFailure() {
	all := make(map[string]bool)
	b.observe(all)
}

// check returns a TrippedError when any trip condition is met.
func (b *fieldBreaker) check() error {
	for _, field := range criticalFields {
		if b.partial[field] {
			misses := b.partialMisses[field]
			if b.partialSamples >= partialFloor && float64(misses)/float64(b.partialSamples) > partialRate {
				return &TrippedError{
					Field: field,
					Count: misses,
					Rate:  float64(misses) / float64(b.partialSamples),
					Message: fmt.Sprintf("missing in %d of %d listings, above the tolerated rate",
						misses, b.partialSamples),
				}
			}
			continue
		}
		if n := b.consecutive[field]; n >= b.consecutiveLimit {
			return &TrippedError{
				Field:   field,
				Count:   n,
				Message: fmt.Sprintf("%d consecutive extraction failures", n),
			}
		}
		if f := b.failures[field]; f >= b.countFloor && b.attempts > 0 {
			rate := float64(f) / float64(b.attempts)
			if rate > b.rateLimit {
				return &TrippedError{
					Field:   field,
					Count:   f,
					Rate:    rate,
					Message: fmt.Sprintf("failure rate %.0f%% over %d listings", rate*100, b.attempts),
				}
			}
		}
	}
	return nil
}

// suspiciousGuard counts consecutive suspicious updates (large price or area
// swings, floor dropping to null). A long streak means the parser is reading
// the wrong elements, not that the market moved.
type suspiciousGuard struct {
	threshold int
	streak    int
}

func (g *suspiciousGuard) observe(suspicious bool) {
	if suspicious {
		g.streak++
	} else {
		g.streak = 0
	}
}

func (g *suspiciousGuard) check() error {
	if g.threshold > 0 && g.streak >= g.threshold {
		return &TrippedError{
			Field:   "update",
			Count:   g.streak,
			Message: fmt.Sprintf("%d consecutive suspicious updates", g.streak),
		}
	}
	return nil
}

// selectorTracker watches coarse extraction stages (list rows, detail
// blocks). Unlike the breaker it never aborts; a degraded stage only raises
// an alert for the operator.
type selectorTracker struct {
	success map[string]int
	failure map[string]int
}

func newSelectorTracker() *selectorTracker {
	return &selectorTracker{success: make(map[string]int), failure: make(map[string]int)}
}

func (t *selectorTracker) observe(stage string, ok bool) {
	if ok {
		t.success[stage]++
	} else {
		t.failure[stage]++
	}
}

// degraded returns the stages failing at least half the time with five or
// more failures.
func (t *selectorTracker) degraded() []string {
	var stages []string
	for stage, fails := range t.failure {
		total := fails + t.success[stage]
		if fails >= 5 && float64(fails)/float64(total) >= 0.5 {
			stages = append(stages, stage)
		}
	}
	return stages
}

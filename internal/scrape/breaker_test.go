package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allPresent() map[string]bool {
	m := make(map[string]bool, len(criticalFields))
	for _, f := range criticalFields {
		m[f] = true
	}
	return m
}

func withoutField(field string) map[string]bool {
	m := allPresent()
	m[field] = false
	return m
}

func TestFieldBreakerConsecutiveTrip(t *testing.T) {
	b := newFieldBreaker(5, 10, 0.5, nil)

	for i := 0; i < 4; i++ {
		b.observe(withoutField("price"))
		assert.NoError(t, b.check())
	}
	b.observe(withoutField("price"))

	err := b.check()
	var tripped *TrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Equal(t, "price", tripped.Field)
	assert.Equal(t, 5, tripped.Count)
}

func TestFieldBreakerSuccessResetsStreak(t *testing.T) {
	b := newFieldBreaker(5, 10, 0.5, nil)

	for i := 0; i < 4; i++ {
		b.observe(withoutField("area"))
	}
	b.observe(allPresent())
	for i := 0; i < 4; i++ {
		b.observe(withoutField("area"))
	}
	assert.NoError(t, b.check())
}

func TestFieldBreakerRateTrip(t *testing.T) {
	b := newFieldBreaker(100, 10, 0.5, nil)

	// 10 failures over 18 listings: 55% rate with the count floor met.
	// Interleaved so no consecutive streak forms.
	for i := 0; i < 8; i++ {
		b.observe(withoutField("layout"))
		b.observe(allPresent())
	}
	b.observe(withoutField("layout"))
	b.observe(withoutField("layout"))

	err := b.check()
	var tripped *TrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Equal(t, "layout", tripped.Field)
	assert.Equal(t, 10, tripped.Count)
	assert.Greater(t, tripped.Rate, 0.5)
}

func TestFieldBreakerRateNeedsCountFloor(t *testing.T) {
	b := newFieldBreaker(100, 10, 0.5, nil)

	// 100% failure rate but only 9 failures: below the floor, no trip.
	for i := 0; i < 9; i++ {
		b.observe(withoutField("built_year"))
	}
	// consecutiveLimit is 100 here, so only the rate rule is in play.
	assert.NoError(t, b.check())
}

func TestFieldBreakerPartialRequiredTolerance(t *testing.T) {
	b := newFieldBreaker(5, 10, 0.5, []string{"layout"})

	// 5 consecutive misses on a partial-required field do not trip.
	for i := 0; i < 5; i++ {
		b.observe(withoutField("layout"))
	}
	assert.NoError(t, b.check())

	// Below the sample floor even a 100% miss rate is tolerated.
	for i := 0; i < 4; i++ {
		b.observe(withoutField("layout"))
	}
	assert.NoError(t, b.check())

	// Sample 10, misses 10: above the 30% rate, trips.
	b.observe(withoutField("layout"))
	err := b.check()
	var tripped *TrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Equal(t, "layout", tripped.Field)
	assert.Equal(t, 10, tripped.Count)
}

func TestFieldBreakerPartialUnderRatePasses(t *testing.T) {
	b := newFieldBreaker(5, 10, 0.5, []string{"layout"})

	// 3 misses in 12 samples: 25%, under the tolerated rate.
	for i := 0; i < 3; i++ {
		b.observe(withoutField("layout"))
	}
	for i := 0; i < 9; i++ {
		b.observe(allPresent())
	}
	assert.NoError(t, b.check())
}

func TestObserveParseFailureCountsAllFields(t *testing.T) {
	b := newFieldBreaker(3, 10, 0.5, nil)

	b.observeParseFailure()
	b.observeParseFailure()
	b.observeParseFailure()

	err := b.check()
	var tripped *TrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Equal(t, 3, tripped.Count)
}

func TestSuspiciousGuard(t *testing.T) {
	g := &suspiciousGuard{threshold: 5}

	for i := 0; i < 4; i++ {
		g.observe(true)
		assert.NoError(t, g.check())
	}
	g.observe(false) // a clean update resets the streak
	for i := 0; i < 4; i++ {
		g.observe(true)
	}
	assert.NoError(t, g.check())

	g.observe(true)
	err := g.check()
	var tripped *TrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Equal(t, 5, tripped.Count)
}

func TestSuspiciousGuardDisabled(t *testing.T) {
	g := &suspiciousGuard{threshold: 0}
	for i := 0; i < 20; i++ {
		g.observe(true)
	}
	assert.NoError(t, g.check())
}

func TestSelectorTrackerDegraded(t *testing.T) {
	tr := newSelectorTracker()

	// 4 failures is under the floor regardless of rate.
	for i := 0; i < 4; i++ {
		tr.observe("list_rows", false)
	}
	assert.Empty(t, tr.degraded())

	// 5 failures at 100%.
	tr.observe("list_rows", false)
	assert.Equal(t, []string{"list_rows"}, tr.degraded())

	// A healthy majority keeps a stage out even with many failures.
	for i := 0; i < 5; i++ {
		tr.observe("detail_block", false)
	}
	for i := 0; i < 6; i++ {
		tr.observe("detail_block", true)
	}
	degraded := tr.degraded()
	assert.Contains(t, degraded, "list_rows")
	assert.NotContains(t, degraded, "detail_block")
}

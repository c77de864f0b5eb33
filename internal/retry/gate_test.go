package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condo-watch/internal/store"
)

func newTestGate(t *testing.T, ignoreHistory bool) (*Gate, *store.Store) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	g, err := NewGate(st, ignoreHistory, 7)
	require.NoError(t, err)
	return g, st
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Hour, Backoff(1))
	assert.Equal(t, 24*time.Hour, Backoff(2))
	assert.Equal(t, 24*time.Hour, Backoff(3))
	assert.Equal(t, 72*time.Hour, Backoff(4))
	assert.Equal(t, 72*time.Hour, Backoff(5))
	assert.Equal(t, 168*time.Hour, Backoff(6))
	assert.Equal(t, 168*time.Hour, Backoff(50))
}

func TestShouldSkipURL404Window(t *testing.T) {
	g, _ := newTestGate(t, false)
	now := time.Now()
	url := "https://example.com/detail/1"

	skip, _, err := g.ShouldSkipURL("suumo", url, now)
	require.NoError(t, err)
	assert.False(t, skip)

	require.NoError(t, g.Record404("suumo", url, now))

	// Inside the first window (2h).
	skip, reason, err := g.ShouldSkipURL("suumo", url, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Contains(t, reason, "404")

	// Past the window.
	skip, _, err = g.ShouldSkipURL("suumo", url, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestShouldSkipURLBackoffGrows(t *testing.T) {
	g, _ := newTestGate(t, false)
	now := time.Now()
	url := "https://example.com/detail/2"

	require.NoError(t, g.Record404("suumo", url, now))
	require.NoError(t, g.Record404("suumo", url, now))

	// Two errors: 24h window now applies.
	skip, _, err := g.ShouldSkipURL("suumo", url, now.Add(10*time.Hour))
	require.NoError(t, err)
	assert.True(t, skip)

	skip, _, err = g.ShouldSkipURL("suumo", url, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestShouldSkipURLValidationWindow(t *testing.T) {
	g, _ := newTestGate(t, false)
	now := time.Now()
	url := "https://example.com/detail/3"

	require.NoError(t, g.RecordValidationError("homes", url, "price", "missing", now))

	skip, reason, err := g.ShouldSkipURL("homes", url, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Contains(t, reason, "price")

	// Different site is unaffected.
	skip, _, err = g.ShouldSkipURL("suumo", url, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestPriceMismatchWindow(t *testing.T) {
	g, _ := newTestGate(t, false)
	now := time.Now()

	require.NoError(t, g.RecordPriceMismatch("athome", "abc123", "https://example.com/d", 5000, 5200, now))

	skip, err := g.ShouldSkipListing("athome", "abc123", now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, skip)

	// The 7-day window expires.
	skip, err = g.ShouldSkipListing("athome", "abc123", now.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestResolvePriceMismatch(t *testing.T) {
	g, _ := newTestGate(t, false)
	now := time.Now()

	require.NoError(t, g.RecordPriceMismatch("athome", "abc123", "https://example.com/d", 5000, 5200, now))
	require.NoError(t, g.ResolvePriceMismatch("athome", "abc123", now.Add(time.Hour)))

	skip, err := g.ShouldSkipListing("athome", "abc123", now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestIgnoreHistoryMode(t *testing.T) {
	g, st := newTestGate(t, true)
	now := time.Now()
	url := "https://example.com/detail/9"

	// Writes are suppressed.
	require.NoError(t, g.Record404("suumo", url, now))
	r, err := st.GetURL404("suumo", url)
	require.NoError(t, err)
	assert.Nil(t, r)

	// Reads always answer "fetch".
	require.NoError(t, st.RecordURL404("suumo", url, now))
	skip, _, err := g.ShouldSkipURL("suumo", url, now)
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestFieldErrorCache(t *testing.T) {
	g, _ := newTestGate(t, false)

	assert.Equal(t, 0, g.FieldErrorCount("price", "u1"))
	g.RecordFieldError("price", "u1")
	g.RecordFieldError("price", "u1")
	g.RecordFieldError("area", "u1")
	assert.Equal(t, 2, g.FieldErrorCount("price", "u1"))
	assert.Equal(t, 1, g.FieldErrorCount("area", "u1"))
	assert.Equal(t, 0, g.FieldErrorCount("price", "u2"))
}

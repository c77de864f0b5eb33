package scrape

import (
	"errors"
	"sync"
	"time"
)

// Terminal outcomes a checkpoint can force on a run.
var (
	// ErrCancelled means the operator cancelled the task (or a pause aged
	// out into a cancel).
	ErrCancelled = errors.New("task cancelled")
	// ErrPauseTimeout means a pause outlived its limit; the task cancels
	// itself rather than hold a goroutine and browser open forever.
	ErrPauseTimeout = errors.New("pause timed out")
)

// Control carries the pause/cancel state for one task. The task goroutine
// observes it only at checkpoints, so a paused or cancelled task always stops
// on a listing or page boundary, never mid-save.
type Control struct {
	mu        sync.Mutex
	pauseCh   chan struct{} // non-nil while paused, closed on resume
	cancelled chan struct{}
	once      sync.Once
}

// NewControl creates an un-paused, un-cancelled control.
func NewControl() *Control {
	return &Control{cancelled: make(chan struct{})}
}

// Pause requests the task to block at its next checkpoint. Idempotent.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pauseCh == nil {
		c.pauseCh = make(chan struct{})
	}
}

// Resume releases a paused task. Idempotent.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pauseCh != nil {
		close(c.pauseCh)
		c.pauseCh = nil
	}
}

// Cancel requests the task to stop at its next checkpoint. Idempotent, and
// also releases a concurrent pause wait.
func (c *Control) Cancel() {
	c.once.Do(func() { close(c.cancelled) })
}

// Cancelled exposes the cancel signal for select loops.
func (c *Control) Cancelled() <-chan struct{} {
	return c.cancelled
}

// IsPaused reports whether a pause is currently requested.
func (c *Control) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseCh != nil
}

// IsCancelled reports whether the task has been cancelled.
func (c *Control) IsCancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

// Checkpoint is called between pages and between listings. It returns
// immediately when the task may continue, blocks while paused, and returns
// ErrCancelled / ErrPauseTimeout when the run must stop. A pause that lasts
// longer than timeout escalates to a cancel.
func (c *Control) Checkpoint(timeout time.Duration) error {
	if c.IsCancelled() {
		return ErrCancelled
	}

	c.mu.Lock()
	ch := c.pauseCh
	c.mu.Unlock()
	if ch == nil {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-c.cancelled:
		return ErrCancelled
	case <-timer.C:
		c.Cancel()
		return ErrPauseTimeout
	}
}

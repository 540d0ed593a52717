package pipeline

import (
	"sync"
	"time"
)

// CooldownTracker rate-limits accepted alerts per camera. The window is
// shared by all alert types for a camera. State is process-local and resets
// on restart.
type CooldownTracker struct {
	window    time.Duration
	lastAlert map[string]time.Time
	mu        sync.Mutex
}

// NewCooldownTracker creates a tracker with the given window.
func NewCooldownTracker(window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		window:    window,
		lastAlert: make(map[string]time.Time),
	}
}

// Acquire atomically checks the camera's cooldown and, if the window has
// elapsed, consumes a new slot at now. Returns false while the window is
// still open. The slot stands even if the caller's subsequent write fails,
// so a broken disk cannot cause an alert storm.
func (t *CooldownTracker) Acquire(cameraID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastAlert[cameraID]; ok && now.Sub(last) < t.window {
		return false
	}
	t.lastAlert[cameraID] = now
	return true
}

// Last returns the time of the last accepted alert for a camera.
func (t *CooldownTracker) Last(cameraID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastAlert[cameraID]
	return last, ok
}

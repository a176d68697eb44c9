// Package status provides a thread-safe session tracker for the endurance test.
// It holds the running statistics and last result for summaries and markers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/solenoid-endurance/internal/logic"
)

// Config contains the test parameters echoed in the session-start marker.
type Config struct {
	Threshold            int
	PullMs               int64
	PullLevel            float64
	HoldLevel            float64
	MaxOnMs              int64
	MinIntervalMs        int64
	MaxIntervalMs        int64
	ActivationWindowMs   int64
	DeactivationWindowMs int64
	Simulated            bool
}

// Snapshot is a point-in-time view of the session.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	SessionID string
	Stats     logic.Stats
	Last      *logic.Record
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the session started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable session state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
	now           func() time.Time
}

// NewTracker creates a Tracker for a session starting at startTime.
// now is used to stamp snapshots and check heartbeats.
func NewTracker(sessionID string, startTime time.Time, cfg Config, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		snap: Snapshot{
			SessionID: sessionID,
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
		now:           now,
	}
}

// Update records the result of a completed cycle.
func (t *Tracker) Update(stats logic.Stats, last logic.Record) {
	t.mu.Lock()
	t.snap.Stats = stats
	t.snap.Last = &last
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the session state.
// The Now field is set at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	s.Now = t.now()
	return s
}

// CheckHeartbeat reports whether interval has elapsed since the last
// heartbeat (or session start), and if so starts a new interval.
// Always false if interval <= 0 (disabled) or no cycle has completed yet.
func (t *Tracker) CheckHeartbeat(interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Stats.Total == 0 {
		return false
	}
	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

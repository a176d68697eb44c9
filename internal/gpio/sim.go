package gpio

import (
	"sync"
	"time"

	"github.com/sweeney/solenoid-endurance/internal/clock"
)

// SimConfig describes the mechanical behaviour of a simulated solenoid.
type SimConfig struct {
	// PullLatency is the time from Off→Pull until the plunger reaches the endstop.
	PullLatency time.Duration
	// ReleaseLatency is the time from drive Off until the plunger leaves it.
	ReleaseLatency time.Duration
	// Edges is the number of edges reported per movement (contact bounce).
	Edges int
	// MissPull and MissRelease are the probabilities, in [0, 1], that a
	// movement does not happen at all.
	MissPull    float64
	MissRelease float64
}

// Float64Source supplies uniform values in [0, 1).
type Float64Source interface {
	Float64() float64
}

// SimRig is a simulated solenoid and endstop. It implements both Driver
// and Endstop, and reports plunger movements through onEdge after the
// configured latencies.
type SimRig struct {
	cfg    SimConfig
	clock  clock.Clock
	rng    Float64Source
	onEdge func()

	mu       sync.Mutex
	level    Level
	extended bool
	pending  clock.Timer
	closed   bool
}

// NewSimRig creates a simulated rig at rest (drive Off, plunger retracted).
func NewSimRig(cfg SimConfig, clk clock.Clock, rng Float64Source, onEdge func()) *SimRig {
	if cfg.Edges <= 0 {
		cfg.Edges = 1
	}
	return &SimRig{cfg: cfg, clock: clk, rng: rng, onEdge: onEdge}
}

// SetLevel changes the simulated drive. Energising from Off extends the
// plunger; dropping to Off releases it. Pull→Hold does not move it.
func (r *SimRig) SetLevel(level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || level == r.level {
		return
	}
	prev := r.level
	r.level = level

	switch {
	case prev == Off && level != Off:
		if r.rng.Float64() >= r.cfg.MissPull {
			r.schedule(r.cfg.PullLatency, true)
		}
	case prev != Off && level == Off:
		if r.rng.Float64() >= r.cfg.MissRelease {
			r.schedule(r.cfg.ReleaseLatency, false)
		}
	}
}

// schedule must be called with r.mu held.
func (r *SimRig) schedule(after time.Duration, extended bool) {
	r.pending = r.clock.AfterFunc(after, func() {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		r.extended = extended
		r.mu.Unlock()

		for i := 0; i < r.cfg.Edges; i++ {
			r.onEdge()
		}
	})
}

// Value reports whether the simulated plunger is at the endstop.
func (r *SimRig) Value() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extended, nil
}

// Close cancels any pending movement.
func (r *SimRig) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = Off
	r.closed = true
	if r.pending != nil {
		r.pending.Stop()
	}
	return nil
}

// Package logic contains the pure result logic of the endurance test:
// classification, running statistics and result line formatting.
// This package has NO external dependencies (no GPIO, sinks, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Outcome is the classification of one test cycle.
type Outcome string

const (
	Pass Outcome = "PASS"
	Fail Outcome = "FAIL"
)

// Record is the result of one completed cycle. It is immutable once logged.
type Record struct {
	Cycle     uint64
	Outcome   Outcome
	Timestamp time.Time

	ActivationDetected   bool
	DeactivationDetected bool
	// Latencies are the detection window elapsed times: time to threshold
	// when detected, the full window when not.
	ActivationLatency   time.Duration
	DeactivationLatency time.Duration

	// OnDuration is the randomised hold time for this cycle.
	OnDuration time.Duration

	// Streak is the consecutive-pass streak after this cycle.
	Streak uint64
	// EndedStreak is the streak this cycle broke (FAIL only).
	EndedStreak uint64
}

// Stats are the running counters of a test session. They are updated exactly
// once per completed cycle and never rolled back.
type Stats struct {
	Total         uint64
	Pass          uint64
	Fail          uint64
	Streak        uint64
	LongestStreak uint64
}

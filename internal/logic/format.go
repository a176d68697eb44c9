package logic

import (
	"fmt"
	"time"
)

// FormatRecord renders a record as a single human-readable log line, e.g.
//
//	2026-01-01T12:00:00Z cycle 12: PASS on=342ms activate=30ms release=45ms consecutive=5
//	2026-01-01T12:00:02Z cycle 13: FAIL on=120ms activate=31ms release=none(200ms) fail after 5 consecutive passes
func FormatRecord(r Record) string {
	line := fmt.Sprintf("%s cycle %d: %s on=%s activate=%s release=%s",
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Cycle,
		r.Outcome,
		formatMs(r.OnDuration),
		formatDetection(r.ActivationDetected, r.ActivationLatency),
		formatDetection(r.DeactivationDetected, r.DeactivationLatency),
	)

	if r.Outcome == Pass {
		return fmt.Sprintf("%s consecutive=%d", line, r.Streak)
	}
	return fmt.Sprintf("%s fail after %d consecutive passes", line, r.EndedStreak)
}

func formatDetection(detected bool, elapsed time.Duration) string {
	if detected {
		return formatMs(elapsed)
	}
	return fmt.Sprintf("none(%s)", formatMs(elapsed))
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

package status

import (
	"fmt"
	"time"
)

const (
	startBanner = "======= Starting Test ======="
	endBanner   = "======= Ending Test ======="
)

// FormatStartMarker returns the session-start line, echoing the parameters
// the run was started with.
func FormatStartMarker(snap Snapshot) string {
	c := snap.Config
	line := fmt.Sprintf("%s session=%s started=%s threshold=%d pull=%dms@%.2f hold=%.2f max_on=%dms interval=%d-%dms windows=%d/%dms",
		startBanner,
		snap.SessionID,
		snap.StartTime.UTC().Format(time.RFC3339),
		c.Threshold,
		c.PullMs, c.PullLevel,
		c.HoldLevel,
		c.MaxOnMs,
		c.MinIntervalMs, c.MaxIntervalMs,
		c.ActivationWindowMs, c.DeactivationWindowMs,
	)
	if c.Simulated {
		line += " simulated"
	}
	return line
}

// FormatEndMarker returns the session-end line with the final counts.
func FormatEndMarker(snap Snapshot, reason string) string {
	return fmt.Sprintf("%s session=%s reason=%s %s",
		endBanner, snap.SessionID, reason, counts(snap))
}

// FormatSummary returns a periodic summary line.
func FormatSummary(snap Snapshot) string {
	return "summary: " + counts(snap)
}

func counts(snap Snapshot) string {
	s := snap.Stats
	return fmt.Sprintf("cycles=%d pass=%d fail=%d rate=%.2f%% streak=%d longest=%d uptime=%s",
		s.Total, s.Pass, s.Fail, s.PassRate()*100, s.Streak, s.LongestStreak, formatUptime(snap.Uptime()))
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm%ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

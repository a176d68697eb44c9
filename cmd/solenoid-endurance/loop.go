package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/solenoid-endurance/internal/logic"
	"github.com/sweeney/solenoid-endurance/internal/logsink"
	"github.com/sweeney/solenoid-endurance/internal/status"
)

// End-of-test reasons written to the session-end marker.
const (
	reasonComplete = "COMPLETE"
	reasonError    = "ERROR"
)

type runner interface {
	Run(ctx context.Context) error
}

// runLoop runs the controller until it finishes or a signal arrives, and
// returns the reason the test ended. On a signal the in-flight cycle is
// allowed to complete.
func runLoop(ctrl runner, sig <-chan os.Signal, log *zap.SugaredLogger) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Errorf("test stopped: %v", err)
			return reasonError, err
		}
		return reasonComplete, nil

	case s := <-sig:
		log.Infof("received %v, stopping after the current cycle", s)
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			return signalName(s), err
		}
		return signalName(s), nil
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// heartbeat returns a cycle observer that keeps tracker current and appends
// a summary line to sink every interval (0 disables the summary).
func heartbeat(tracker *status.Tracker, sink logsink.Sink, interval time.Duration, log *zap.SugaredLogger) func(logic.Record, logic.Stats) {
	return func(rec logic.Record, stats logic.Stats) {
		tracker.Update(stats, rec)
		if !tracker.CheckHeartbeat(interval) {
			return
		}

		snap := tracker.Snapshot()
		log.Infof("heartbeat: uptime=%v cycles=%d pass=%d fail=%d streak=%d",
			snap.Uptime().Truncate(time.Second), stats.Total, stats.Pass, stats.Fail, stats.Streak)
		if err := sink.Append(status.FormatSummary(snap)); err != nil {
			log.Warnf("summary not written: %v", err)
		}
	}
}

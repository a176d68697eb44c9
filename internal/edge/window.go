package edge

import (
	"time"

	"github.com/sweeney/solenoid-endurance/internal/clock"
)

// DefaultPollInterval is the polling granularity used when none is given.
const DefaultPollInterval = time.Millisecond

// Result is the outcome of one detection window.
type Result struct {
	Detected bool
	// Elapsed is the detection latency when Detected, otherwise the time
	// spent waiting (the window length).
	Elapsed time.Duration
}

// Window waits for a Counter to reach a threshold within a bounded time.
type Window struct {
	clock clock.Clock
	poll  time.Duration
}

// NewWindow creates a Window that polls the counter every poll interval.
func NewWindow(clk clock.Clock, poll time.Duration) *Window {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Window{clock: clk, poll: poll}
}

// Option modifies a single Await call.
type Option func(*awaitState)

type mark struct {
	at    time.Duration
	fn    func()
	fired bool
}

type awaitState struct {
	marks []*mark
}

// At runs fn once, from inside the wait, when elapsed time first reaches d.
// If Await returns before d, fn is not called.
func At(d time.Duration, fn func()) Option {
	return func(s *awaitState) {
		s.marks = append(s.marks, &mark{at: d, fn: fn})
	}
}

// Await polls c until its count reaches threshold or timeout elapses.
//
// It returns as soon as the threshold is seen, with the elapsed time as the
// detection latency. A count that reaches the threshold exactly at timeout
// is detected. The wait never runs past timeout: each sleep is clipped to
// the remaining time, so the only overshoot is clock resolution.
//
// Only one Await may run on a counter at a time, and the counter must not be
// Reset while it runs.
func (w *Window) Await(c *Counter, threshold uint64, timeout time.Duration, opts ...Option) Result {
	if !c.waiting.CompareAndSwap(false, true) {
		panic("edge: concurrent Await on the same counter")
	}
	defer c.waiting.Store(false)

	var st awaitState
	for _, opt := range opts {
		opt(&st)
	}

	start := w.clock.Now()
	for {
		elapsed := w.clock.Now().Sub(start)

		for _, m := range st.marks {
			if !m.fired && elapsed >= m.at {
				m.fired = true
				m.fn()
			}
		}

		if c.Snapshot() >= threshold {
			return Result{Detected: true, Elapsed: elapsed}
		}
		if elapsed >= timeout {
			return Result{Detected: false, Elapsed: elapsed}
		}

		step := w.poll
		if rem := timeout - elapsed; rem < step {
			step = rem
		}
		for _, m := range st.marks {
			if rem := m.at - elapsed; !m.fired && rem > 0 && rem < step {
				step = rem
			}
		}
		w.clock.Sleep(step)
	}
}

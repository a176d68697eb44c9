// Package cycle runs the solenoid test cycle: drive the phases, watch the
// endstop through bounded detection windows, classify and log the result.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/solenoid-endurance/internal/clock"
	"github.com/sweeney/solenoid-endurance/internal/config"
	"github.com/sweeney/solenoid-endurance/internal/edge"
	"github.com/sweeney/solenoid-endurance/internal/gpio"
	"github.com/sweeney/solenoid-endurance/internal/logic"
	"github.com/sweeney/solenoid-endurance/internal/logsink"
)

var (
	// ErrNoAuditTrail is returned by Start when the session-start marker
	// cannot be written. The solenoid is never actuated in that case.
	ErrNoAuditTrail = errors.New("result log unavailable")

	// ErrNotStarted is returned when cycles are requested before Start.
	ErrNotStarted = errors.New("controller not started")
)

// Rand supplies the uniform draws for hold time and inter-cycle delay.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Int64N(n int64) int64 { return rand.Int64N(n) }

// Observer is called after every logged cycle with the record and the
// updated statistics. It runs on the controller goroutine.
type Observer func(logic.Record, logic.Stats)

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithRand sets the random source. Defaults to the math/rand/v2 global source.
func WithRand(r Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = log }
}

// WithObserver registers fn to be called after each cycle.
func WithObserver(fn Observer) Option {
	return func(c *Controller) { c.observer = fn }
}

// Controller sequences test cycles. RunCycle, Run, Start and Stop must be
// called from a single goroutine; State and Stats may be read from any.
type Controller struct {
	cfg      config.CycleConfig
	driver   gpio.Driver
	counter  *edge.Counter
	sink     logsink.Sink
	window   *edge.Window
	clock    clock.Clock
	rng      Rand
	log      *zap.SugaredLogger
	observer Observer

	started bool
	state   atomic.Int32

	mu    sync.Mutex
	stats logic.Stats
	cycle uint64
}

// New creates a Controller. The counter must be the one fed by the endstop
// edge handler. cfg is expected to have passed config validation.
func New(cfg config.CycleConfig, driver gpio.Driver, counter *edge.Counter, sink logsink.Sink, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		driver:  driver,
		counter: counter,
		sink:    sink,
		clock:   clock.Real{},
		rng:     globalRand{},
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.window = edge.NewWindow(c.clock, cfg.PollInterval)
	return c
}

// Start drives the solenoid off and writes the session-start marker. If the
// marker cannot be written the error wraps ErrNoAuditTrail and no cycle
// may run.
func (c *Controller) Start(marker string) error {
	c.driver.SetLevel(gpio.Off)
	c.setState(Idle)

	if err := c.sink.Append(marker); err != nil {
		return fmt.Errorf("%w: %w", ErrNoAuditTrail, err)
	}
	c.started = true
	return nil
}

// Stop drives the solenoid off and writes the session-end marker, if any.
// Further cycles are refused until Start is called again.
func (c *Controller) Stop(marker string) error {
	c.driver.SetLevel(gpio.Off)
	c.setState(Idle)
	c.started = false

	if marker == "" {
		return nil
	}
	if err := c.sink.Append(marker); err != nil {
		return fmt.Errorf("write end marker: %w", err)
	}
	return nil
}

// Run executes cycles until ctx is cancelled or the configured cycle limit
// is reached. Cancellation is only observed between cycles, so a cycle that
// has started always completes and logs its record. Run returns ctx.Err()
// on cancellation and nil when the limit is reached.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started {
		return ErrNotStarted
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.limitReached() {
			return nil
		}

		if _, err := c.RunCycle(); err != nil {
			return err
		}
		if c.limitReached() {
			return nil
		}

		delay := c.NextDelay()
		c.log.Debugf("next cycle in %v", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(delay):
		}
	}
}

func (c *Controller) limitReached() bool {
	if c.cfg.MaxCycles == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle >= c.cfg.MaxCycles
}

// RunCycle performs one complete test cycle and logs its record. A sink
// failure is logged and does not abort the cycle.
func (c *Controller) RunCycle() (logic.Record, error) {
	if !c.started {
		return logic.Record{}, ErrNotStarted
	}
	threshold := uint64(c.cfg.DetectionThreshold)

	c.counter.Reset()
	c.setState(Pulling)
	c.driver.SetLevel(gpio.Pull)
	t0 := c.clock.Now()

	// The activation window overlaps the pull phase. Hold is entered on time
	// from inside the wait when the window outlasts the pull duration.
	holding := false
	hold := func() {
		c.setState(Holding)
		c.driver.SetLevel(gpio.Hold)
		holding = true
	}
	activation := c.window.Await(c.counter, threshold, c.cfg.ActivationWindow, edge.At(c.cfg.PullDuration, hold))
	if !holding {
		c.sleepUntil(t0.Add(c.cfg.PullDuration))
		hold()
	}

	onDuration := c.OnDuration()
	c.sleepUntil(t0.Add(c.cfg.PullDuration + onDuration))

	c.counter.Reset()
	c.setState(Releasing)
	c.driver.SetLevel(gpio.Off)

	c.setState(DetectingOff)
	deactivation := c.window.Await(c.counter, threshold, c.cfg.DeactivationWindow)

	c.setState(Classifying)
	outcome := logic.Classify(activation.Detected, deactivation.Detected)

	c.mu.Lock()
	previous := c.stats.Apply(outcome)
	c.cycle++
	rec := logic.Record{
		Cycle:                c.cycle,
		Outcome:              outcome,
		Timestamp:            c.clock.Now(),
		ActivationDetected:   activation.Detected,
		DeactivationDetected: deactivation.Detected,
		ActivationLatency:    activation.Elapsed,
		DeactivationLatency:  deactivation.Elapsed,
		OnDuration:           onDuration,
		Streak:               c.stats.Streak,
	}
	if outcome == logic.Fail {
		rec.EndedStreak = previous
	}
	stats := c.stats
	c.mu.Unlock()

	line := logic.FormatRecord(rec)
	if err := c.sink.Append(line); err != nil {
		c.log.Warnf("result log: cycle %d not written: %v", rec.Cycle, err)
	}
	c.log.Debugf("cycle %d: %s activation=%v/%v deactivation=%v/%v",
		rec.Cycle, outcome, activation.Detected, activation.Elapsed, deactivation.Detected, deactivation.Elapsed)

	if c.observer != nil {
		c.observer(rec, stats)
	}

	c.setState(Idle)
	return rec, nil
}

// OnDuration draws a hold time uniformly from [0, MaxOnDuration).
func (c *Controller) OnDuration() time.Duration {
	if c.cfg.MaxOnDuration <= 0 {
		return 0
	}
	return time.Duration(c.rng.Int64N(int64(c.cfg.MaxOnDuration)))
}

// NextDelay draws an inter-cycle delay uniformly from [MinInterval,
// MaxInterval). Equal bounds give exactly MinInterval.
func (c *Controller) NextDelay() time.Duration {
	span := c.cfg.MaxInterval - c.cfg.MinInterval
	if span <= 0 {
		return c.cfg.MinInterval
	}
	return c.cfg.MinInterval + time.Duration(c.rng.Int64N(int64(span)))
}

// Stats returns a copy of the running statistics.
func (c *Controller) Stats() logic.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// State returns the current cycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.log.Debugf("state %s -> %s", prev, s)
	}
}

func (c *Controller) sleepUntil(t time.Time) {
	if d := t.Sub(c.clock.Now()); d > 0 {
		c.clock.Sleep(d)
	}
}

//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"
)

const consumer = "solenoid-endurance"

// RealDriver drives the solenoid MOSFET from a GPIO output line.
// Duty 0 holds the line low, duty 1 holds it high, anything in between is
// generated by a software PWM goroutine.
type RealDriver struct {
	line   *gpiocdev.Line
	levels Levels
	period time.Duration
	log    *zap.SugaredLogger

	mu    sync.Mutex
	level Level
	stop  chan struct{}
	done  chan struct{}
}

// NewRealDriver requests the solenoid line as an output, initially low.
func NewRealDriver(cfg DriverConfig, log *zap.SugaredLogger) (*RealDriver, error) {
	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request solenoid line %s:%d: %w", cfg.Chip, cfg.Offset, err)
	}

	period := cfg.PWMPeriod
	if period <= 0 {
		period = 5 * time.Millisecond
	}

	return &RealDriver{
		line:   line,
		levels: cfg.Levels,
		period: period,
		log:    log,
		level:  Off,
	}, nil
}

// SetLevel switches the drive phase.
func (d *RealDriver) SetLevel(level Level) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if level == d.level {
		return
	}
	d.stopPWM()
	d.level = level

	duty := d.levels.Duty(level)
	switch {
	case duty <= 0:
		d.set(0)
	case duty >= 1:
		d.set(1)
	default:
		d.startPWM(duty)
	}
}

func (d *RealDriver) set(v int) {
	if err := d.line.SetValue(v); err != nil {
		d.log.Warnf("solenoid line write %d: %v", v, err)
	}
}

// startPWM must be called with d.mu held and no PWM running.
func (d *RealDriver) startPWM(duty float64) {
	on := time.Duration(float64(d.period) * duty)
	off := d.period - on

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop, d.done = stop, done

	go func() {
		defer close(done)
		timer := time.NewTimer(on)
		defer timer.Stop()

		for {
			d.set(1)
			if !waitOrStop(timer, on, stop) {
				d.set(0)
				return
			}
			d.set(0)
			if !waitOrStop(timer, off, stop) {
				return
			}
		}
	}()
}

// waitOrStop waits for d on a reused timer. It returns false if stop closed first.
func waitOrStop(timer *time.Timer, d time.Duration, stop <-chan struct{}) bool {
	timer.Reset(d)
	select {
	case <-stop:
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		return false
	case <-timer.C:
		return true
	}
}

// stopPWM must be called with d.mu held.
func (d *RealDriver) stopPWM() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
}

// Close drives the solenoid off and releases the line.
// Reconfigures the line to input with pull-down (matching Pi boot defaults)
// so the MOSFET gate is held low after the process exits.
func (d *RealDriver) Close() error {
	d.SetLevel(Off)

	var errs []error
	if err := d.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure solenoid line: %w", err))
	}
	if err := d.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close solenoid line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealEndstop reads the endstop line and reports its edges.
type RealEndstop struct {
	line *gpiocdev.Line
	log  *zap.SugaredLogger

	lastSeqno atomic.Uint32
	dropped   atomic.Uint64
}

// NewRealEndstop requests the endstop line as an input. If onEdge is non-nil,
// edge detection is enabled and onEdge is called from the gpiocdev event
// goroutine for every edge.
func NewRealEndstop(cfg EndstopConfig, onEdge func(), log *zap.SugaredLogger) (*RealEndstop, error) {
	e := &RealEndstop{log: log}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(consumer),
	}

	switch cfg.Bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case BiasDisabled:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	if onEdge != nil {
		switch cfg.Edge {
		case EdgeRising:
			opts = append(opts, gpiocdev.WithRisingEdge)
		case EdgeFalling:
			opts = append(opts, gpiocdev.WithFallingEdge)
		default:
			opts = append(opts, gpiocdev.WithBothEdges)
		}
		if cfg.Debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(cfg.Debounce))
		}
		opts = append(opts, gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			onEdge()
			e.trackSeqno(evt.LineSeqno)
		}))
	}

	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request endstop line %s:%d: %w", cfg.Chip, cfg.Offset, err)
	}
	e.line = line
	return e, nil
}

// trackSeqno counts events the kernel dropped between two delivered events.
func (e *RealEndstop) trackSeqno(seq uint32) {
	prev := e.lastSeqno.Swap(seq)
	if prev != 0 && seq > prev+1 {
		e.dropped.Add(uint64(seq - prev - 1))
	}
}

// Value reports whether the endstop is active.
func (e *RealEndstop) Value() (bool, error) {
	v, err := e.line.Value()
	if err != nil {
		return false, fmt.Errorf("read endstop line: %w", err)
	}
	return v == 1, nil
}

// Close releases the endstop line.
func (e *RealEndstop) Close() error {
	if n := e.dropped.Load(); n > 0 {
		e.log.Warnf("endstop: kernel dropped %d edge events during the session", n)
	}
	if err := e.line.Close(); err != nil {
		return fmt.Errorf("close endstop line: %w", err)
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/solenoid-endurance/internal/clock"
	"github.com/sweeney/solenoid-endurance/internal/config"
	"github.com/sweeney/solenoid-endurance/internal/edge"
	"github.com/sweeney/solenoid-endurance/internal/gpio"
	"github.com/sweeney/solenoid-endurance/internal/logsink"
	"github.com/sweeney/solenoid-endurance/internal/status"
)

// openSinks opens every configured result log destination. Durable sinks
// are wrapped in a retry buffer; the console is not.
func openSinks(cfg config.LogConfig, stdout io.Writer, log *zap.SugaredLogger) (logsink.Sink, error) {
	var sinks []logsink.Sink
	fail := func(err error) (logsink.Sink, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}
	buffered := func(s logsink.Sink) logsink.Sink {
		return logsink.NewBuffered(s, cfg.Buffer, log)
	}

	if cfg.File != "" {
		f, err := logsink.OpenFile(cfg.File)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, buffered(f))
	}
	if cfg.SQLite != "" {
		db, err := logsink.OpenSQLite(cfg.SQLite)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, buffered(db))
	}
	if cfg.SerialPort != "" {
		p, err := logsink.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, buffered(p))
	}
	if cfg.Console {
		sinks = append(sinks, logsink.NewConsole(stdout, cfg.Color))
	}

	if len(sinks) == 0 {
		return nil, errors.New("no result log sink configured")
	}
	log.Debugf("result log: %d sinks", len(sinks))
	return logsink.NewMulti(sinks...), nil
}

// hardware is the solenoid driver plus everything that must be released
// on exit.
type hardware struct {
	driver  gpio.Driver
	endstop gpio.Endstop
	closers []io.Closer
}

// Close releases resources in reverse order of acquisition.
func (h *hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openHardware requests the GPIO lines, or builds a simulated rig when
// simulation is enabled. Endstop edges feed counter.
func openHardware(cfg *config.Config, counter *edge.Counter, log *zap.SugaredLogger) (*hardware, error) {
	if cfg.Simulate.Enabled {
		s := cfg.Simulate
		seed := s.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rig := gpio.NewSimRig(gpio.SimConfig{
			PullLatency:    s.PullLatency,
			ReleaseLatency: s.ReleaseLatency,
			Edges:          s.EdgesPerTransition,
			MissPull:       s.MissPull,
			MissRelease:    s.MissRelease,
		}, clock.Real{}, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), counter.OnEdge)
		log.Infof("simulated rig: pull=%v release=%v miss=%.3f/%.3f seed=%d",
			s.PullLatency, s.ReleaseLatency, s.MissPull, s.MissRelease, seed)
		return &hardware{driver: rig, endstop: rig, closers: []io.Closer{rig}}, nil
	}

	g := cfg.GPIO
	endstop, err := gpio.NewRealEndstop(gpio.EndstopConfig{
		Chip:      g.Chip,
		Offset:    g.EndstopLine,
		Bias:      g.Bias,
		Edge:      g.Edge,
		ActiveLow: g.ActiveLow,
		Debounce:  g.Debounce,
	}, counter.OnEdge, log)
	if err != nil {
		return nil, fmt.Errorf("init endstop: %w", err)
	}

	driver, err := gpio.NewRealDriver(gpio.DriverConfig{
		Chip:      g.Chip,
		Offset:    g.SolenoidLine,
		Levels:    gpio.Levels{Pull: cfg.Cycle.PullLevel, Hold: cfg.Cycle.HoldLevel},
		PWMPeriod: g.PWMPeriod,
	}, log)
	if err != nil {
		endstop.Close()
		return nil, fmt.Errorf("init solenoid: %w", err)
	}

	return &hardware{driver: driver, endstop: endstop, closers: []io.Closer{endstop, driver}}, nil
}

// printEndstop reads the endstop once and prints its state.
func printEndstop(endstop gpio.Endstop, out io.Writer) error {
	active, err := endstop.Value()
	if err != nil {
		return fmt.Errorf("read endstop: %w", err)
	}
	_, err = fmt.Fprintf(out, "endstop: %s\n", endstopState(active))
	return err
}

func endstopState(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "INACTIVE"
}

func statusConfig(cfg *config.Config) status.Config {
	c := cfg.Cycle
	return status.Config{
		Threshold:            c.DetectionThreshold,
		PullMs:               c.PullDuration.Milliseconds(),
		PullLevel:            c.PullLevel,
		HoldLevel:            c.HoldLevel,
		MaxOnMs:              c.MaxOnDuration.Milliseconds(),
		MinIntervalMs:        c.MinInterval.Milliseconds(),
		MaxIntervalMs:        c.MaxInterval.Milliseconds(),
		ActivationWindowMs:   c.ActivationWindow.Milliseconds(),
		DeactivationWindowMs: c.DeactivationWindow.Milliseconds(),
		Simulated:            cfg.Simulate.Enabled,
	}
}

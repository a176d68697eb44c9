// Package config loads and validates the endurance test configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/solenoid-endurance/internal/gpio"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Cycle    CycleConfig    `yaml:"cycle"`
	Log      LogConfig      `yaml:"log"`
	Simulate SimulateConfig `yaml:"simulate"`
}

// GPIOConfig selects the solenoid and endstop lines.
type GPIOConfig struct {
	Chip         string        `yaml:"chip"`
	SolenoidLine int           `yaml:"solenoid_line"`
	EndstopLine  int           `yaml:"endstop_line"`
	Bias         string        `yaml:"bias"` // "", pull-up, pull-down or disabled
	Edge         string        `yaml:"edge"` // both, rising or falling
	ActiveLow    bool          `yaml:"active_low"`
	Debounce     time.Duration `yaml:"debounce"`   // kernel debounce, 0 = off
	PWMPeriod    time.Duration `yaml:"pwm_period"` // software PWM period for fractional levels
}

// CycleConfig contains the actuation and detection parameters of one test cycle.
type CycleConfig struct {
	PullLevel          float64       `yaml:"pull_level"`
	HoldLevel          float64       `yaml:"hold_level"`
	PullDuration       time.Duration `yaml:"pull_duration"`
	MaxOnDuration      time.Duration `yaml:"max_on_duration"`
	MinInterval        time.Duration `yaml:"min_interval"`
	MaxInterval        time.Duration `yaml:"max_interval"`
	ActivationWindow   time.Duration `yaml:"activation_window"`
	DeactivationWindow time.Duration `yaml:"deactivation_window"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	DetectionThreshold int           `yaml:"detection_threshold"`
	MaxCycles          uint64        `yaml:"max_cycles"` // 0 = unlimited
}

// LogConfig selects where the result log is written.
type LogConfig struct {
	File       string        `yaml:"file"` // empty disables the file sink
	Console    bool          `yaml:"console"`
	Color      bool          `yaml:"color"`
	SerialPort string        `yaml:"serial_port"`
	SerialBaud int           `yaml:"serial_baud"`
	SQLite     string        `yaml:"sqlite"`
	Buffer     int           `yaml:"buffer"`    // lines held per sink while it is failing
	Heartbeat  time.Duration `yaml:"heartbeat"` // summary interval, 0 = disabled
	Verbose    bool          `yaml:"verbose"`
}

// SimulateConfig describes the simulated rig used instead of real GPIO.
type SimulateConfig struct {
	Enabled            bool          `yaml:"enabled"`
	PullLatency        time.Duration `yaml:"pull_latency"`
	ReleaseLatency     time.Duration `yaml:"release_latency"`
	EdgesPerTransition int           `yaml:"edges_per_transition"`
	MissPull           float64       `yaml:"miss_pull"`
	MissRelease        float64       `yaml:"miss_release"`
	Seed               uint64        `yaml:"seed"` // 0 = seed from the clock
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:         gpio.DefaultChip,
			SolenoidLine: gpio.DefaultPinSolenoid,
			EndstopLine:  gpio.DefaultPinEndstop,
			Bias:         gpio.BiasPullUp,
			Edge:         gpio.EdgeBoth,
			PWMPeriod:    time.Millisecond,
		},
		Cycle: CycleConfig{
			PullLevel:          1.0,
			HoldLevel:          0.4,
			PullDuration:       100 * time.Millisecond,
			MaxOnDuration:      500 * time.Millisecond,
			MinInterval:        250 * time.Millisecond,
			MaxInterval:        1000 * time.Millisecond,
			ActivationWindow:   500 * time.Millisecond,
			DeactivationWindow: 500 * time.Millisecond,
			PollInterval:       time.Millisecond,
			DetectionThreshold: 1,
		},
		Log: LogConfig{
			File:       "solenoid-test.log",
			Console:    true,
			Color:      true,
			SerialBaud: 9600,
			Buffer:     256,
			Heartbeat:  15 * time.Minute,
		},
		Simulate: SimulateConfig{
			PullLatency:        20 * time.Millisecond,
			ReleaseLatency:     15 * time.Millisecond,
			EdgesPerTransition: 1,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist
// the defaults are returned; fields missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ensureDefaults restores defaults for fields where an empty value is never
// meaningful. Cycle parameters are left alone: an explicit zero there is a
// configuration error for Validate to report.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.GPIO.Edge == "" {
		c.GPIO.Edge = def.GPIO.Edge
	}
	if c.GPIO.PWMPeriod == 0 {
		c.GPIO.PWMPeriod = def.GPIO.PWMPeriod
	}

	if c.Log.SerialBaud == 0 {
		c.Log.SerialBaud = def.Log.SerialBaud
	}
	if c.Log.Buffer == 0 {
		c.Log.Buffer = def.Log.Buffer
	}

	if c.Simulate.EdgesPerTransition == 0 {
		c.Simulate.EdgesPerTransition = def.Simulate.EdgesPerTransition
	}
}

// Validate checks every field and returns all problems found, each wrapping
// ErrInvalid. A nil result means the configuration can be used as is.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	g := c.GPIO
	if g.Chip == "" {
		bad("gpio.chip is empty")
	}
	if g.SolenoidLine < 0 || g.EndstopLine < 0 {
		bad("gpio lines must not be negative (solenoid=%d endstop=%d)", g.SolenoidLine, g.EndstopLine)
	}
	if g.SolenoidLine == g.EndstopLine {
		bad("gpio.solenoid_line and gpio.endstop_line are both %d", g.SolenoidLine)
	}
	switch g.Bias {
	case gpio.BiasNone, gpio.BiasPullUp, gpio.BiasPullDown, gpio.BiasDisabled:
	default:
		bad("gpio.bias %q is not one of pull-up, pull-down, disabled", g.Bias)
	}
	switch g.Edge {
	case gpio.EdgeBoth, gpio.EdgeRising, gpio.EdgeFalling:
	default:
		bad("gpio.edge %q is not one of both, rising, falling", g.Edge)
	}
	if g.Debounce < 0 {
		bad("gpio.debounce %v is negative", g.Debounce)
	}
	if g.PWMPeriod <= 0 {
		bad("gpio.pwm_period must be positive, got %v", g.PWMPeriod)
	}

	cy := c.Cycle
	if cy.PullLevel < 0 || cy.PullLevel > 1 {
		bad("cycle.pull_level %v is outside [0, 1]", cy.PullLevel)
	}
	if cy.HoldLevel < 0 || cy.HoldLevel > 1 {
		bad("cycle.hold_level %v is outside [0, 1]", cy.HoldLevel)
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"pull_duration", cy.PullDuration},
		{"max_on_duration", cy.MaxOnDuration},
		{"min_interval", cy.MinInterval},
		{"max_interval", cy.MaxInterval},
	} {
		if d.v < 0 {
			bad("cycle.%s %v is negative", d.name, d.v)
		}
	}
	if cy.MinInterval > cy.MaxInterval {
		bad("cycle.min_interval %v exceeds cycle.max_interval %v", cy.MinInterval, cy.MaxInterval)
	}
	if cy.ActivationWindow <= 0 {
		bad("cycle.activation_window must be positive, got %v", cy.ActivationWindow)
	}
	if cy.DeactivationWindow <= 0 {
		bad("cycle.deactivation_window must be positive, got %v", cy.DeactivationWindow)
	}
	if cy.PollInterval <= 0 {
		bad("cycle.poll_interval must be positive, got %v", cy.PollInterval)
	}
	if cy.DetectionThreshold < 1 {
		bad("cycle.detection_threshold must be at least 1, got %d", cy.DetectionThreshold)
	}

	l := c.Log
	if l.File == "" && !l.Console && l.SerialPort == "" && l.SQLite == "" {
		bad("no result log sink configured (log.file, log.console, log.serial_port, log.sqlite)")
	}
	if l.SerialPort != "" && l.SerialBaud <= 0 {
		bad("log.serial_baud must be positive, got %d", l.SerialBaud)
	}
	if l.Buffer < 0 {
		bad("log.buffer %d is negative", l.Buffer)
	}
	if l.Heartbeat < 0 {
		bad("log.heartbeat %v is negative", l.Heartbeat)
	}

	s := c.Simulate
	if s.Enabled {
		if s.PullLatency < 0 || s.ReleaseLatency < 0 {
			bad("simulate latencies must not be negative (pull=%v release=%v)", s.PullLatency, s.ReleaseLatency)
		}
		if s.EdgesPerTransition < 1 {
			bad("simulate.edges_per_transition must be at least 1, got %d", s.EdgesPerTransition)
		}
		if s.MissPull < 0 || s.MissPull > 1 {
			bad("simulate.miss_pull %v is outside [0, 1]", s.MissPull)
		}
		if s.MissRelease < 0 || s.MissRelease > 1 {
			bad("simulate.miss_release %v is outside [0, 1]", s.MissRelease)
		}
	}

	return errors.Join(errs...)
}

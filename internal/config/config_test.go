package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/solenoid-endurance/internal/gpio"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, gpio.DefaultChip, cfg.GPIO.Chip)
	assert.Equal(t, gpio.DefaultPinSolenoid, cfg.GPIO.SolenoidLine)
	assert.Equal(t, gpio.DefaultPinEndstop, cfg.GPIO.EndstopLine)
	assert.Equal(t, gpio.BiasPullUp, cfg.GPIO.Bias)
	assert.Equal(t, gpio.EdgeBoth, cfg.GPIO.Edge)
	assert.Equal(t, 1.0, cfg.Cycle.PullLevel)
	assert.Equal(t, 0.4, cfg.Cycle.HoldLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.Cycle.PullDuration)
	assert.Equal(t, 500*time.Millisecond, cfg.Cycle.MaxOnDuration)
	assert.Equal(t, 250*time.Millisecond, cfg.Cycle.MinInterval)
	assert.Equal(t, time.Second, cfg.Cycle.MaxInterval)
	assert.Equal(t, 1, cfg.Cycle.DetectionThreshold)
	assert.Equal(t, time.Millisecond, cfg.Cycle.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Log.Heartbeat)
	assert.False(t, cfg.Simulate.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
gpio:
  chip: gpiochip4
  solenoid_line: 5
  endstop_line: 6
  bias: pull-down
  edge: rising
  debounce: 2ms

cycle:
  pull_level: 0.9
  hold_level: 0.3
  pull_duration: 80ms
  max_on_duration: 2s
  min_interval: 1s
  max_interval: 1s
  activation_window: 300ms
  deactivation_window: 200ms
  detection_threshold: 2
  max_cycles: 10000

log:
  file: /var/log/solenoid/run.log
  console: false
  sqlite: /var/lib/solenoid/results.db
  heartbeat: 0s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpiochip4", cfg.GPIO.Chip)
	assert.Equal(t, 5, cfg.GPIO.SolenoidLine)
	assert.Equal(t, "pull-down", cfg.GPIO.Bias)
	assert.Equal(t, "rising", cfg.GPIO.Edge)
	assert.Equal(t, 2*time.Millisecond, cfg.GPIO.Debounce)
	assert.Equal(t, 0.9, cfg.Cycle.PullLevel)
	assert.Equal(t, 80*time.Millisecond, cfg.Cycle.PullDuration)
	assert.Equal(t, 2*time.Second, cfg.Cycle.MaxOnDuration)
	assert.Equal(t, time.Second, cfg.Cycle.MinInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.Cycle.DeactivationWindow)
	assert.Equal(t, 2, cfg.Cycle.DetectionThreshold)
	assert.Equal(t, uint64(10000), cfg.Cycle.MaxCycles)
	assert.False(t, cfg.Log.Console)
	assert.Equal(t, "/var/lib/solenoid/results.db", cfg.Log.SQLite)
	assert.Zero(t, cfg.Log.Heartbeat, "explicit 0 disables the heartbeat")

	// Untouched fields keep their defaults.
	assert.Equal(t, time.Millisecond, cfg.Cycle.PollInterval)
	assert.Equal(t, 256, cfg.Log.Buffer)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnsureDefaults(t *testing.T) {
	path := writeConfig(t, `
gpio:
  chip: ""
  edge: ""
log:
  buffer: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, gpio.DefaultChip, cfg.GPIO.Chip)
	assert.Equal(t, gpio.EdgeBoth, cfg.GPIO.Edge)
	assert.Equal(t, 256, cfg.Log.Buffer)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitZeroCycleValuesRejected(t *testing.T) {
	path := writeConfig(t, `
cycle:
  poll_interval: 0s
  detection_threshold: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Cycle.DetectionThreshold)
	assert.Equal(t, time.Duration(0), cfg.Cycle.PollInterval)

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "cycle.detection_threshold")
	assert.Contains(t, err.Error(), "cycle.poll_interval")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "cycle: [not, a, map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "cycle:\n  pull_duration: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "solenoid.yaml")

	cfg := Default()
	cfg.Cycle.DetectionThreshold = 3
	cfg.Cycle.MaxInterval = 5 * time.Second
	cfg.Simulate.Enabled = true
	cfg.Simulate.MissRelease = 0.05
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestMarshalUsesDurationStrings(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "pull_duration: 100ms")
	assert.Contains(t, string(data), "heartbeat: 15m0s")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"pull level above 1", func(c *Config) { c.Cycle.PullLevel = 1.5 }, "cycle.pull_level"},
		{"hold level negative", func(c *Config) { c.Cycle.HoldLevel = -0.1 }, "cycle.hold_level"},
		{"negative pull", func(c *Config) { c.Cycle.PullDuration = -time.Millisecond }, "cycle.pull_duration"},
		{"negative max on", func(c *Config) { c.Cycle.MaxOnDuration = -time.Millisecond }, "cycle.max_on_duration"},
		{"min above max", func(c *Config) { c.Cycle.MinInterval = 2 * time.Second }, "exceeds cycle.max_interval"},
		{"zero activation window", func(c *Config) { c.Cycle.ActivationWindow = 0 }, "cycle.activation_window"},
		{"zero deactivation window", func(c *Config) { c.Cycle.DeactivationWindow = 0 }, "cycle.deactivation_window"},
		{"zero poll", func(c *Config) { c.Cycle.PollInterval = 0 }, "cycle.poll_interval"},
		{"zero threshold", func(c *Config) { c.Cycle.DetectionThreshold = 0 }, "cycle.detection_threshold"},
		{"same lines", func(c *Config) { c.GPIO.EndstopLine = c.GPIO.SolenoidLine }, "are both 27"},
		{"bad bias", func(c *Config) { c.GPIO.Bias = "sideways" }, "gpio.bias"},
		{"bad edge", func(c *Config) { c.GPIO.Edge = "up" }, "gpio.edge"},
		{"no sinks", func(c *Config) { c.Log.File = ""; c.Log.Console = false }, "no result log sink"},
		{"negative heartbeat", func(c *Config) { c.Log.Heartbeat = -time.Second }, "log.heartbeat"},
		{"miss probability", func(c *Config) { c.Simulate.Enabled = true; c.Simulate.MissPull = 2 }, "simulate.miss_pull"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateEqualIntervalsAllowed(t *testing.T) {
	cfg := Default()
	cfg.Cycle.MinInterval = time.Second
	cfg.Cycle.MaxInterval = time.Second
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Cycle.PullLevel = 2
	cfg.Cycle.DetectionThreshold = -1
	cfg.GPIO.Edge = "up"

	err := cfg.Validate()
	require.Error(t, err)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 3)
}

func TestSimulateIgnoredWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Simulate.MissRelease = 7
	assert.NoError(t, cfg.Validate())
}

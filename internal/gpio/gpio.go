// Package gpio drives the solenoid and reads the endstop with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake and simulated implementations allow running without hardware.
package gpio

import (
	"fmt"
	"time"
)

// Level is a solenoid drive phase.
type Level int

const (
	Off Level = iota
	Pull
	Hold
)

func (l Level) String() string {
	switch l {
	case Off:
		return "OFF"
	case Pull:
		return "PULL"
	case Hold:
		return "HOLD"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Levels maps drive phases to normalised duty cycles in [0, 1].
type Levels struct {
	Pull float64
	Hold float64
}

// Duty returns the duty cycle for a drive level. Off is always 0.
func (l Levels) Duty(level Level) float64 {
	switch level {
	case Pull:
		return l.Pull
	case Hold:
		return l.Hold
	default:
		return 0
	}
}

// Driver sets the solenoid drive strength.
type Driver interface {
	// SetLevel changes the drive phase. Repeating the current level is a
	// no-op. Hardware write failures are logged, not returned.
	SetLevel(level Level)

	// Close drives the solenoid off and releases GPIO resources.
	Close() error
}

// Endstop reads the plunger position sensor.
type Endstop interface {
	// Value reports whether the endstop is currently active.
	Value() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering on gpiochip0).
const (
	DefaultChip        = "gpiochip0"
	DefaultPinSolenoid = 27
	DefaultPinEndstop  = 17
)

// Endstop line bias values.
const (
	BiasNone     = ""
	BiasPullUp   = "pull-up"
	BiasPullDown = "pull-down"
	BiasDisabled = "disabled"
)

// Endstop edge selections.
const (
	EdgeBoth    = "both"
	EdgeRising  = "rising"
	EdgeFalling = "falling"
)

// DriverConfig selects the solenoid output line.
type DriverConfig struct {
	Chip   string
	Offset int
	Levels Levels
	// PWMPeriod is the software PWM period used for fractional duty cycles.
	PWMPeriod time.Duration
}

// EndstopConfig selects the endstop input line and its edge detection.
type EndstopConfig struct {
	Chip      string
	Offset    int
	Bias      string
	Edge      string
	ActiveLow bool
	// Debounce is applied by the kernel when non-zero.
	Debounce time.Duration
}

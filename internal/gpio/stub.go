//go:build !linux

package gpio

import (
	"errors"

	"go.uber.org/zap"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(cfg DriverConfig, log *zap.SugaredLogger) (*RealDriver, error) {
	return nil, errUnsupported
}

// SetLevel is not implemented on non-Linux platforms.
func (d *RealDriver) SetLevel(level Level) {}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}

// RealEndstop is not available on non-Linux platforms.
type RealEndstop struct{}

// NewRealEndstop returns an error on non-Linux platforms.
func NewRealEndstop(cfg EndstopConfig, onEdge func(), log *zap.SugaredLogger) (*RealEndstop, error) {
	return nil, errUnsupported
}

// Value is not implemented on non-Linux platforms.
func (e *RealEndstop) Value() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (e *RealEndstop) Close() error {
	return nil
}

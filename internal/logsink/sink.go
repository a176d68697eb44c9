// Package logsink provides append-only destinations for the test result log.
// Every implementation accepts one human-readable line per call.
package logsink

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("logsink: sink closed")

// Sink appends result lines to a log destination.
type Sink interface {
	// Append writes one line. The line must not contain a trailing newline.
	// A failed Append must not abort the test; callers log and move on.
	Append(line string) error

	// Close flushes and releases the destination.
	Close() error
}

// Multi fans each line out to several sinks. A failure in one sink does not
// stop the others from receiving the line.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a Multi over the given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Append writes line to every sink and joins the failures.
func (m *Multi) Append(line string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(line); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name(s), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the failures.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name(s), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) String() string {
	return fmt.Sprintf("multi(%d)", len(m.sinks))
}

func name(s Sink) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}

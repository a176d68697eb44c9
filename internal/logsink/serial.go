package logsink

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the rig's serial console.
const DefaultBaudRate = 9600

// Serial mirrors the result log to a serial port, CRLF terminated.
// A failed write closes the port; the next Append reopens it.
type Serial struct {
	name string
	mode *serial.Mode
	open func(name string, mode *serial.Mode) (serial.Port, error)

	mu     sync.Mutex
	port   serial.Port
	closed bool
}

// OpenSerial opens the named port (e.g. /dev/ttyUSB0) at baud.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	s := &Serial{
		name: name,
		mode: &serial.Mode{BaudRate: baud},
		open: serial.Open,
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Serial) connect() error {
	p, err := s.open(s.name, s.mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.name, err)
	}
	s.port = p
	return nil
}

// Append writes the line followed by CRLF.
func (s *Serial) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.port == nil {
		if err := s.connect(); err != nil {
			return err
		}
	}

	if _, err := s.port.Write([]byte(line + "\r\n")); err != nil {
		s.port.Close()
		s.port = nil
		return fmt.Errorf("write serial port %s: %w", s.name, err)
	}
	return nil
}

// Close drains pending output and closes the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.port == nil {
		return nil
	}
	s.port.Drain()
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) String() string {
	return "serial " + s.name
}

package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File appends lines to a text file. Each line is synced to disk before
// Append returns. If a write fails the file is closed and reopened on the
// next Append, so a re-seated SD card or USB stick resumes logging.
type File struct {
	path string

	mu     sync.Mutex
	f      *os.File
	closed bool
}

// OpenFile opens (or creates) path for appending.
func OpenFile(path string) (*File, error) {
	fs := &File{path: path}
	if err := fs.open(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *File) open() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	s.f = f
	return nil
}

// Append writes line and a newline, then syncs.
func (s *File) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.f == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if _, err := s.f.WriteString(line + "\n"); err != nil {
		s.drop()
		return fmt.Errorf("write log file: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		s.drop()
		return fmt.Errorf("sync log file: %w", err)
	}
	return nil
}

// drop closes the current handle so the next Append reopens. Caller holds s.mu.
func (s *File) drop() {
	s.f.Close()
	s.f = nil
}

// Close closes the file.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *File) String() string {
	return "file " + s.path
}

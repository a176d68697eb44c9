package logsink

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS result_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	line TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLite appends lines to a result_log table. Rows are never updated or
// deleted; id order is append order.
type SQLite struct {
	path string
	db   *sql.DB
	now  func() time.Time

	mu     sync.Mutex
	insert *sql.Stmt
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create result_log table: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO result_log (line, created_at) VALUES (?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	return &SQLite{path: path, db: db, now: time.Now, insert: insert}, nil
}

// Append inserts one row.
func (s *SQLite) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insert == nil {
		return ErrClosed
	}
	if _, err := s.insert.Exec(line, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert log line: %w", err)
	}
	return nil
}

// Lines returns every stored line in append order.
func (s *SQLite) Lines() ([]string, error) {
	rows, err := s.db.Query(`SELECT line FROM result_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query log lines: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan log line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insert == nil {
		return nil
	}
	s.insert.Close()
	s.insert = nil
	return s.db.Close()
}

func (s *SQLite) String() string {
	return "sqlite " + s.path
}

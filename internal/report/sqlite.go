package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/deixis/fnreport/internal/record"
	_ "modernc.org/sqlite" // CGO-free SQLite driver
)

// timeLayout is fixed-width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists runs in a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLiteStore opens (and creates if missing) the database at path and
// ensures the schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s := &SQLiteStore{conn: conn}
	if err := s.createSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

func (s *SQLiteStore) createSchema() error {
	_, err := s.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id           TEXT PRIMARY KEY,
  created_at   TEXT NOT NULL,  -- UTC, timeLayout
  name         TEXT NOT NULL,
  exit_code    INTEGER NOT NULL,
  success      INTEGER NOT NULL,
  instructions INTEGER NOT NULL,
  record_json  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Save upserts a run.
func (s *SQLiteStore) Save(run *Run) error {
	if err := run.Validate(); err != nil {
		return err
	}
	rec, err := json.Marshal(run.Record)
	if err != nil {
		return fmt.Errorf("marshalling run %s: %w", run.ID, err)
	}
	// SQLite integers are signed; larger counts survive in record_json.
	insts := int64(min(run.Record.Instructions, math.MaxInt64))

	_, err = s.conn.Exec(
		`INSERT INTO runs (id, created_at, name, exit_code, success, instructions, record_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET created_at=excluded.created_at, name=excluded.name,
           exit_code=excluded.exit_code, success=excluded.success,
           instructions=excluded.instructions, record_json=excluded.record_json`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Record.Name,
		run.ExitCode, run.Record.Success, insts, string(rec),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// Load returns the run with the given ID.
func (s *SQLiteStore) Load(runID string) (*Run, error) {
	var (
		created string
		exit    int
		recJSON string
	)
	row := s.conn.QueryRow(`SELECT created_at, exit_code, record_json FROM runs WHERE id = ?`, runID)
	if err := row.Scan(&created, &exit, &recJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", runID, created, err)
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling run %s: %w", runID, err)
	}
	return &Run{ID: runID, CreatedAt: ts, ExitCode: exit, Record: &rec}, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite reads a negative LIMIT as unbounded
	}
	rows, err := s.conn.Query(`SELECT id FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Package report renders function run records as threshold-annotated
// text and persists them for later retrieval by run ID.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/deixis/fnreport/internal/record"
)

// ErrNotFound is returned by stores when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Lister is implemented by stores that can enumerate recent runs.
type Lister interface {
	List(limit int) ([]*Run, error)
}

// Run is a stored record together with its run metadata.
type Run struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	ExitCode  int            `json:"exit_code"`
	Record    *record.Record `json:"record"`
}

// Validate returns an error if the run cannot be stored.
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("run has no ID")
	}
	if r.Record == nil {
		return fmt.Errorf("run %s has no record", r.ID)
	}
	return nil
}

// Summary is a one-line description used in listings.
func (r *Run) Summary() string {
	status := "ok"
	if !r.Record.Success {
		status = "failed"
	}
	return fmt.Sprintf("%s %s %s (exit %d)", r.ID, r.Record.Name, status, r.ExitCode)
}

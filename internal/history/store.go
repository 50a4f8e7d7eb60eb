// Package history persists one record per pipeline run, giving the daemon
// and the CLI a queryable log of past builds and publications.
package history

import (
	"context"
	"time"
)

// Run is the persisted record of a single pipeline run.
type Run struct {
	ID         string
	Mode       string
	Status     string // success|failure
	Revision   string
	Artifact   string
	Published  bool
	Error      string
	StartedAt  time.Time
	DurationMS int64
}

// Store defines the interface for persisting and retrieving run records.
type Store interface {
	// Record appends a completed run.
	Record(ctx context.Context, run Run) error

	// Recent returns the most recent runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)

	// Close closes the store and releases resources.
	Close() error
}

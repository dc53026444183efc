// Package store provides persistence for validation reports, so a
// deployment pipeline can track how a workflow's findings evolve between
// revisions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/flowcheck/flow"
)

// ErrNotFound is returned when a requested report ID or workflow name
// does not exist.
var ErrNotFound = errors.New("not found")

// errClosed is returned by every operation after Close.
var errClosed = errors.New("store is closed")

// Record is a persisted validation report plus its identity metadata.
// The Report itself stays deterministic; timestamps live here.
type Record struct {
	// ID uniquely identifies this validation run (caller-assigned).
	ID string

	// Workflow is the validated workflow's name, the key for history
	// queries.
	Workflow string

	// CreatedAt is when the report was saved.
	CreatedAt time.Time

	// Report is the full validation report.
	Report flow.Report
}

// Store persists validation reports.
//
// Implementations:
//   - MemStore: in-memory, for tests and short-lived tooling
//   - SQLiteStore: single-file database, zero setup
//   - MySQLStore: shared database for CI fleets
type Store interface {
	// SaveReport persists a record. Saving an existing ID replaces the
	// stored record.
	SaveReport(ctx context.Context, rec Record) error

	// LoadReport retrieves a record by ID. Returns ErrNotFound if the ID
	// doesn't exist.
	LoadReport(ctx context.Context, id string) (Record, error)

	// LoadLatest retrieves the most recently saved record for a
	// workflow. Returns ErrNotFound if the workflow has no records.
	LoadLatest(ctx context.Context, workflow string) (Record, error)

	// ListReports returns records for a workflow, newest first, up to
	// limit (0 means no limit). An empty result is not an error.
	ListReports(ctx context.Context, workflow string, limit int) ([]Record, error)

	// Close releases any held resources. After Close, all operations
	// return an error.
	Close() error
}

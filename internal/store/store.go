// Package store persists finished experiment reports.
package store

import (
	"context"
	"errors"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// ErrNotFound is returned when no report matches the request.
var ErrNotFound = errors.New("report not found")

// Store defines the interface for report persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// Save persists a complete report. An experiment calls it exactly once.
	Save(ctx context.Context, report probe.Report) error

	// Get retrieves a report by its ID.
	// Returns ErrNotFound if no report has that ID.
	Get(ctx context.Context, id string) (*probe.Report, error)

	// Latest retrieves the most recently started report.
	// Returns ErrNotFound if the store is empty.
	Latest(ctx context.Context) (*probe.Report, error)

	// List returns summaries of all reports, newest first.
	// Returns an empty slice if there are none.
	List(ctx context.Context) ([]probe.Summary, error)

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

var _ probe.ReportSink = Store(nil)

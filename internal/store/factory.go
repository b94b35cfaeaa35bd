package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/horizons/internal/db"
)

// Options selects and configures a backend.
type Options struct {
	Type       string // "file", "memory" or "postgres"
	ReportPath string // file store artifact
	DSN        string // postgres connection string
}

// NewStore creates a new store based on the given store type.
// Supported types: "file", "memory", "postgres"
func NewStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case "file":
		if opts.ReportPath == "" {
			return nil, fmt.Errorf("file store requires a report path")
		}
		return NewFileStore(opts.ReportPath), nil
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		s := NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", opts.Type)
	}
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/horizons/internal/probe"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS probe_reports (
	id          TEXT PRIMARY KEY,
	engine      TEXT NOT NULL,
	search_mode TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	body        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS probe_reports_started_at_idx ON probe_reports (started_at DESC);
`

const (
	upsertReportSQL = `
INSERT INTO probe_reports (id, engine, search_mode, started_at, finished_at, body)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	engine = EXCLUDED.engine,
	search_mode = EXCLUDED.search_mode,
	started_at = EXCLUDED.started_at,
	finished_at = EXCLUDED.finished_at,
	body = EXCLUDED.body`
	getReportSQL    = `SELECT body FROM probe_reports WHERE id = $1`
	latestReportSQL = `SELECT body FROM probe_reports ORDER BY started_at DESC, id DESC LIMIT 1`
	listReportsSQL  = `SELECT body FROM probe_reports ORDER BY started_at DESC, id DESC`
)

// querier is the subset of pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Each report is one row; the full document is kept in a JSONB column.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

// EnsureSchema creates the reports table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.q.Exec(ctx, schemaSQL)
	return err
}

// Save inserts or replaces a report.
func (p *PostgresStore) Save(ctx context.Context, report probe.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = p.q.Exec(ctx, upsertReportSQL,
		report.ID,
		report.Engine,
		string(report.SearchMode),
		report.StartedAt,
		report.FinishedAt,
		body,
	)
	return err
}

// Get retrieves a report by ID.
func (p *PostgresStore) Get(ctx context.Context, id string) (*probe.Report, error) {
	return p.one(ctx, getReportSQL, id)
}

// Latest retrieves the most recently started report.
func (p *PostgresStore) Latest(ctx context.Context) (*probe.Report, error) {
	return p.one(ctx, latestReportSQL)
}

// List returns summaries of all reports, newest first.
func (p *PostgresStore) List(ctx context.Context) ([]probe.Summary, error) {
	rows, err := p.q.Query(ctx, listReportsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []probe.Summary{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		report, err := decodeReport(body)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, report.Summarize())
	}
	return summaries, rows.Err()
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) one(ctx context.Context, sql string, args ...any) (*probe.Report, error) {
	var body []byte
	if err := p.q.QueryRow(ctx, sql, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeReport(body)
}

func decodeReport(body []byte) (*probe.Report, error) {
	var report probe.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to decode stored report: %w", err)
	}
	if report.Results == nil {
		report.Results = []probe.PackageResult{}
	}
	return &report, nil
}

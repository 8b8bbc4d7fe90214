// Package storage records comparison runs in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Run is one persisted comparison.
type Run struct {
	ID                string            `json:"id"`
	OldPath           string            `json:"old_path"`
	NewPath           string            `json:"new_path"`
	Strategy          string            `json:"strategy"`
	ExemptBoilerplate bool              `json:"exempt_boilerplate"`
	Empty             bool              `json:"empty"`
	Stats             domain.Statistics `json:"statistics"`
	Duration          time.Duration     `json:"duration"`
	CreatedAt         time.Time         `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS comparison_runs (
	id                 TEXT PRIMARY KEY,
	old_path           TEXT NOT NULL,
	new_path           TEXT NOT NULL,
	strategy           TEXT NOT NULL,
	exempt_boilerplate BOOLEAN NOT NULL,
	empty              BOOLEAN NOT NULL,
	total_old          INTEGER NOT NULL,
	total_new          INTEGER NOT NULL,
	added              INTEGER NOT NULL,
	removed            INTEGER NOT NULL,
	replaced_old       INTEGER NOT NULL,
	replaced_new       INTEGER NOT NULL,
	replaced           INTEGER NOT NULL,
	added_pct          DOUBLE PRECISION NOT NULL,
	removed_pct        DOUBLE PRECISION NOT NULL,
	replaced_pct       DOUBLE PRECISION NOT NULL,
	duration_ms        BIGINT NOT NULL,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comparison_runs_created_at ON comparison_runs (created_at);
`

const runColumns = `id, old_path, new_path, strategy, exempt_boilerplate, empty,
	total_old, total_new, added, removed, replaced_old, replaced_new, replaced,
	added_pct, removed_pct, replaced_pct, duration_ms, created_at`

// HistoryRepository handles comparison run persistence.
type HistoryRepository struct {
	db DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Migrate creates the schema if it does not exist.
func (r *HistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return domain.StorageError("migrate history schema", err)
	}
	return nil
}

// Save inserts a run, assigning an id and timestamp when missing.
func (r *HistoryRepository) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO comparison_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	s := run.Stats
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.OldPath, run.NewPath, run.Strategy, run.ExemptBoilerplate, run.Empty,
		s.TotalOld, s.TotalNew, s.Added, s.Removed, s.ReplacedOld, s.ReplacedNew, s.Replaced,
		s.AddedPct, s.RemovedPct, s.ReplacedPct, run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return domain.StorageError("save comparison run", err)
	}
	return nil
}

// Get retrieves a run by id.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM comparison_runs WHERE id = $1`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("get comparison run", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM comparison_runs ORDER BY created_at DESC, id LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.StorageError("list comparison runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, domain.StorageError("scan comparison run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list comparison runs", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	s := &run.Stats
	var durationMS int64
	err := row.Scan(
		&run.ID, &run.OldPath, &run.NewPath, &run.Strategy, &run.ExemptBoilerplate, &run.Empty,
		&s.TotalOld, &s.TotalNew, &s.Added, &s.Removed, &s.ReplacedOld, &s.ReplacedNew, &s.Replaced,
		&s.AddedPct, &s.RemovedPct, &s.ReplacedPct, &durationMS, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

// Open connects to the history database and waits for it to answer.
// driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, logger *observability.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = observability.Nop()
	}

	var sqlDriver string
	switch driver {
	case "sqlite", "sqlite3":
		sqlDriver = "sqlite3"
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, domain.StorageError("create history directory", err)
			}
		}
	case "postgres":
		sqlDriver = "postgres"
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown history driver %q", driver), nil)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, domain.StorageError("open history database", err)
	}
	if sqlDriver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if err := retryWithBackoff(ctx, DefaultRetryConfig(), logger, db.PingContext); err != nil {
		db.Close()
		return nil, domain.StorageError("connect history database", err)
	}
	return db, nil
}

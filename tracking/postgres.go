package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS survival_runs (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	model      TEXT NOT NULL,
	params     JSONB NOT NULL DEFAULT '{}',
	metrics    JSONB NOT NULL DEFAULT '{}',
	time_bins  FLOAT8[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS survival_runs_created_at_idx ON survival_runs (created_at DESC);
`

// PostgresStore stores runs in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection. Call Migrate once before use.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects with the lib/pq driver.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "tracking: connect to postgres")
	}
	return NewPostgresStore(db), nil
}

// Migrate creates the runs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "tracking: migrate")
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type runRow struct {
	ID        uuid.UUID       `db:"id"`
	Name      string          `db:"name"`
	Model     string          `db:"model"`
	Params    Params          `db:"params"`
	Metrics   Metrics         `db:"metrics"`
	TimeBins  pq.Float64Array `db:"time_bins"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r runRow) run() *Run {
	return &Run{
		ID:        r.ID,
		Name:      r.Name,
		Model:     r.Model,
		Params:    r.Params,
		Metrics:   r.Metrics,
		TimeBins:  []float64(r.TimeBins),
		CreatedAt: r.CreatedAt,
	}
}

// CreateRun implements Store.
func (s *PostgresStore) CreateRun(ctx context.Context, r *Run) error {
	prepare(r)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO survival_runs (id, name, model, params, metrics, time_bins, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.Name, r.Model, r.Params, r.Metrics, pq.Array(r.TimeBins), r.CreatedAt)
	return errors.Wrap(err, "tracking: insert run")
}

// GetRun implements Store.
func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, model, params, metrics, time_bins, created_at
		FROM survival_runs
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrRunNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "tracking: get run")
	}
	return row.run(), nil
}

// ListRuns implements Store.
func (s *PostgresStore) ListRuns(ctx context.Context, nameFilter string) ([]*Run, error) {
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, model, params, metrics, time_bins, created_at
		FROM survival_runs
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
	`, nameFilter)
	if err != nil {
		return nil, errors.Wrap(err, "tracking: list runs")
	}
	out := make([]*Run, len(rows))
	for i, r := range rows {
		out[i] = r.run()
	}
	return out, nil
}

// LogMetrics implements Store.
func (s *PostgresStore) LogMetrics(ctx context.Context, id uuid.UUID, metrics Metrics) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survival_runs
		SET metrics = metrics || $2::jsonb
		WHERE id = $1
	`, id, metrics)
	if err != nil {
		return errors.Wrap(err, "tracking: log metrics")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "tracking: log metrics")
	}
	if n == 0 {
		return errors.Wrapf(ErrRunNotFound, "run %s", id)
	}
	return nil
}

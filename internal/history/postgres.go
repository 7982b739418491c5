package history

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	repo := &PostgresRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		interrupted BOOLEAN NOT NULL,
		duration_sec DOUBLE PRECISION NOT NULL,
		output_path TEXT NOT NULL,
		take_dir TEXT NOT NULL,
		error TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ NOT NULL,
		steps_json JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ended_at ON sessions(ended_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *PostgresRepository) SaveSession(ctx context.Context, record *SessionRecord) error {
	stepsJSON, err := json.Marshal(record.Steps)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, status, interrupted, duration_sec, output_path, take_dir, error, started_at, ended_at, steps_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.Status,
		record.Interrupted,
		record.DurationSec,
		record.OutputPath,
		record.TakeDir,
		record.Error,
		record.StartedAt,
		record.EndedAt,
		stepsJSON,
	)

	return err
}

func (r *PostgresRepository) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
		SELECT id, status, interrupted, duration_sec, output_path, take_dir, error, started_at, ended_at, steps_json
		FROM sessions
		ORDER BY ended_at DESC
		LIMIT $1
	`

	// LIMIT NULL は全件
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	query := `
		SELECT id, status, interrupted, duration_sec, output_path, take_dir, error, started_at, ended_at, steps_json
		FROM sessions
		WHERE id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrSessionNotFound
	}
	return &records[0], nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		interrupted BOOLEAN NOT NULL,
		duration_sec REAL NOT NULL,
		output_path TEXT NOT NULL,
		take_dir TEXT NOT NULL,
		error TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		steps_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ended_at ON sessions(ended_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, record *SessionRecord) error {
	stepsJSON, err := json.Marshal(record.Steps)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, status, interrupted, duration_sec, output_path, take_dir, error, started_at, ended_at, steps_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		record.StartedAt.UTC(),
		record.EndedAt.UTC(),
		string(stepsJSON),
	)

	return err
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
		SELECT id, status, interrupted, duration_sec, output_path, take_dir, error, started_at, ended_at, steps_json
		FROM sessions
		ORDER BY ended_at DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	query := `
		SELECT id, status, interrupted, duration_sec, output_path, take_dir, error, started_at, ended_at, steps_json
		FROM sessions
		WHERE id = ?
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

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanSessions(rows *sql.Rows) ([]SessionRecord, error) {
	records := []SessionRecord{}

	for rows.Next() {
		var record SessionRecord
		var stepsJSON []byte

		err := rows.Scan(
			&record.ID,
			&record.Status,
			&record.Interrupted,
			&record.DurationSec,
			&record.OutputPath,
			&record.TakeDir,
			&record.Error,
			&record.StartedAt,
			&record.EndedAt,
			&stepsJSON,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(stepsJSON, &record.Steps); err != nil {
			return nil, fmt.Errorf("steps_json の解析に失敗: %s: %w", record.ID, err)
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

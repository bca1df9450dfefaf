package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/slotmatch/internal/domain/types"
	"github.com/okian/slotmatch/pkg/logger"
	"github.com/okian/slotmatch/pkg/metrics"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		submitted_at INTEGER NOT NULL,
		payload      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_submitted ON schedules (submitted_at DESC)`,
}

// SQLiteStore is a Store backed by SQLite. Each schedule is kept as a JSON
// payload next to the columns used for ordering.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger.Get().Named("sqlite-store")}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStoredSchedules(n)
	}
	return s, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, sch types.Schedule) error { //nolint:gocritic // hugeParam: stored by value
	if sch.ID == "" {
		return ErrInvalidID
	}
	defer observe("save", time.Now())

	payload, err := json.Marshal(sch)
	if err != nil {
		return fmt.Errorf("marshal schedule %s: %w", sch.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schedules (id, name, status, submitted_at, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   status = excluded.status,
		   submitted_at = excluded.submitted_at,
		   payload = excluded.payload`,
		sch.ID, sch.Name, string(sch.Status), sch.SubmittedAt.UnixNano(), string(payload),
	)
	if err != nil {
		metrics.RecordErrorByComponent("store", "save_failed")
		return fmt.Errorf("save schedule %s: %w", sch.ID, err)
	}
	s.logger.Debug(ctx, "schedule saved", logger.String("id", sch.ID), logger.String("status", string(sch.Status)))

	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStoredSchedules(n)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (types.Schedule, error) {
	defer observe("get", time.Now())

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM schedules WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Schedule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.Schedule{}, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return decode(payload)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]types.Schedule, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	defer observe("list", time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM schedules ORDER BY submitted_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Schedule
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sch, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count schedules: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decode(payload string) (types.Schedule, error) {
	var sch types.Schedule
	if err := json.Unmarshal([]byte(payload), &sch); err != nil {
		return types.Schedule{}, fmt.Errorf("unmarshal schedule: %w", err)
	}
	return sch, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// migrations is an ordered list of SQL statements applied on startup.
// Each entry is idempotent (IF NOT EXISTS) so re-running is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plays (
		id            TEXT PRIMARY KEY,
		track_name    TEXT NOT NULL,
		artist        TEXT NOT NULL DEFAULT '',
		album         TEXT NOT NULL DEFAULT '',
		persistent_id TEXT NOT NULL DEFAULT '',
		started_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plays_started_at ON plays (started_at DESC)`,
}

// SQLiteStore implements Store using a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite handles one writer at a time.

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) AddPlay(ctx context.Context, rec *PlayRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plays (id, track_name, artist, album, persistent_id, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TrackName, rec.Artist, rec.Album, rec.PersistentID,
		rec.StartedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) RecentPlays(ctx context.Context, limit int) ([]*PlayRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, track_name, artist, album, persistent_id, started_at
		 FROM plays ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var plays []*PlayRecord
	for rows.Next() {
		var rec PlayRecord
		var started string
		if err := rows.Scan(&rec.ID, &rec.TrackName, &rec.Artist, &rec.Album, &rec.PersistentID, &started); err != nil {
			return nil, err
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		plays = append(plays, &rec)
	}
	return plays, rows.Err()
}

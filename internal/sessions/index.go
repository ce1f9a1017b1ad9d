// Package sessions maintains the session index: one row per assistant
// session, backed by SQLite, rebuilt from transcript JSONL files when the
// index drifts from reality.
package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one indexed assistant session.
type Session struct {
	ID             string
	TranscriptPath string
	StartedAt      time.Time
	LastActiveAt   time.Time
	Events         int64
}

// Index is the SQLite-backed session index.
type Index struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the index database.
// Use ":memory:" for an in-memory database in tests.
func Open(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session index: %w", err)
	}

	ix := &Index{db: db}
	if err := ix.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return ix, nil
}

func (ix *Index) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		transcript_path TEXT,
		started_at INTEGER NOT NULL,
		last_active_at INTEGER NOT NULL,
		events INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_last_active ON sessions(last_active_at);
	`
	_, err := ix.db.Exec(schema)
	return err
}

// Touch upserts a session row, bumping its event count and last-active time.
func (ix *Index) Touch(ctx context.Context, sessionID, transcriptPath string, at time.Time) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ts := at.Unix()
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO sessions (id, transcript_path, started_at, last_active_at, events)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			transcript_path = CASE WHEN excluded.transcript_path != '' THEN excluded.transcript_path ELSE sessions.transcript_path END,
			last_active_at = excluded.last_active_at,
			events = sessions.events + 1`,
		sessionID, transcriptPath, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// List returns sessions ordered by most recent activity.
func (ix *Index) List(ctx context.Context) ([]Session, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rows, err := ix.db.QueryContext(ctx,
		"SELECT id, transcript_path, started_at, last_active_at, events FROM sessions ORDER BY last_active_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var started, lastActive int64
		if err := rows.Scan(&s.ID, &s.TranscriptPath, &started, &lastActive, &s.Events); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		s.StartedAt = time.Unix(started, 0).UTC()
		s.LastActiveAt = time.Unix(lastActive, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns one session or sql.ErrNoRows.
func (ix *Index) Get(ctx context.Context, sessionID string) (Session, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var s Session
	var started, lastActive int64
	err := ix.db.QueryRowContext(ctx,
		"SELECT id, transcript_path, started_at, last_active_at, events FROM sessions WHERE id = ?",
		sessionID,
	).Scan(&s.ID, &s.TranscriptPath, &started, &lastActive, &s.Events)
	if err != nil {
		return Session{}, err
	}
	s.StartedAt = time.Unix(started, 0).UTC()
	s.LastActiveAt = time.Unix(lastActive, 0).UTC()
	return s, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

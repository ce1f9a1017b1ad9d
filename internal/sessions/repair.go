package sessions

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RepairReport summarizes what a repair pass changed.
type RepairReport struct {
	Scanned      int // transcript files examined
	Added        int // sessions inserted
	Updated      int // sessions corrected
	Pruned       int // rows whose transcript no longer exists
	CorruptLines int // unparsable transcript lines skipped
}

// transcriptLine is the subset of a transcript event the repair cares about.
type transcriptLine struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
}

// Repair rescans transcriptDir and rebuilds the index inside one database
// transaction: sessions found on disk are inserted or corrected, rows whose
// transcript file disappeared are pruned. Corrupt JSONL lines are counted
// and skipped, never fatal; a session whose file yields no parsable events
// still gets a row keyed by file timestamps.
func (ix *Index) Repair(ctx context.Context, transcriptDir string) (RepairReport, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var report RepairReport

	entries, err := os.ReadDir(transcriptDir)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing on disk: prune everything.
			res, execErr := ix.db.ExecContext(ctx, "DELETE FROM sessions")
			if execErr != nil {
				return report, fmt.Errorf("prune sessions: %w", execErr)
			}
			n, _ := res.RowsAffected()
			report.Pruned = int(n)
			return report, nil
		}
		return report, fmt.Errorf("read transcript dir: %w", err)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin repair transaction: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		report.Scanned++

		path := filepath.Join(transcriptDir, entry.Name())
		sessionID := strings.TrimSuffix(entry.Name(), ".jsonl")
		first, last, events, corrupt := scanTranscript(path)
		report.CorruptLines += corrupt

		if first.IsZero() {
			// No parsable timestamps; fall back to file metadata.
			if fi, statErr := entry.Info(); statErr == nil {
				first, last = fi.ModTime(), fi.ModTime()
			} else {
				first, last = time.Now(), time.Now()
			}
		}
		seen[sessionID] = true

		var existing int64
		var haveRow bool
		row := tx.QueryRowContext(ctx, "SELECT events FROM sessions WHERE id = ?", sessionID)
		switch scanErr := row.Scan(&existing); scanErr {
		case nil:
			haveRow = true
		default:
			haveRow = false
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, transcript_path, started_at, last_active_at, events)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				transcript_path = excluded.transcript_path,
				started_at = excluded.started_at,
				last_active_at = excluded.last_active_at,
				events = excluded.events`,
			sessionID, path, first.Unix(), last.Unix(), events,
		)
		if err != nil {
			return report, fmt.Errorf("upsert session %s: %w", sessionID, err)
		}
		if haveRow {
			if existing != events {
				report.Updated++
			}
		} else {
			report.Added++
		}
	}

	// Prune rows whose transcripts are gone.
	rows, err := tx.QueryContext(ctx, "SELECT id FROM sessions")
	if err != nil {
		return report, fmt.Errorf("list sessions for prune: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return report, fmt.Errorf("scan session id: %w", err)
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
			return report, fmt.Errorf("prune session %s: %w", id, err)
		}
		report.Pruned++
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit repair: %w", err)
	}
	return report, nil
}

// scanTranscript walks one JSONL transcript and extracts event count and
// the first/last parsable timestamps.
func scanTranscript(path string) (first, last time.Time, events int64, corrupt int) {
	f, err := os.Open(path)
	if err != nil {
		return first, last, 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var tl transcriptLine
		if err := json.Unmarshal([]byte(line), &tl); err != nil {
			corrupt++
			continue
		}
		events++
		if ts, err := time.Parse(time.RFC3339, tl.Timestamp); err == nil {
			if first.IsZero() || ts.Before(first) {
				first = ts
			}
			if ts.After(last) {
				last = ts
			}
		}
	}
	return first, last, events, corrupt
}

// Package history keeps a local SQLite record of submitted applications so
// later runs can skip postings already applied to.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/quickapply/internal/jobs"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	url         TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	company     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	match_score REAL NOT NULL DEFAULT 0,
	run_id      TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_outcome ON applications(outcome);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is the applied history database.
type Store struct {
	db *sql.DB
}

var now = func() time.Time { return time.Now().UTC() }

// Open opens (creating if needed) the history database at path. ":memory:"
// opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores the outcome of a listing. A later record for the same URL
// replaces the earlier one, except that an applied outcome is never
// downgraded.
func (s *Store) Record(ctx context.Context, runID string, l *jobs.Listing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (url, title, company, outcome, match_score, run_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			outcome = CASE WHEN applications.outcome = ? THEN applications.outcome ELSE excluded.outcome END,
			match_score = excluded.match_score,
			run_id = excluded.run_id,
			recorded_at = excluded.recorded_at`,
		l.URL, l.Title, l.Company, string(l.Outcome), l.MatchScore, runID, now().Format(time.RFC3339),
		string(jobs.OutcomeApplied),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", l.URL, err)
	}
	return nil
}

// AppliedURLs returns the URLs of every posting recorded as applied.
func (s *Store) AppliedURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM applications WHERE outcome = ? ORDER BY recorded_at, url`,
		string(jobs.OutcomeApplied))
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package telemetry keeps local, auxiliary counters such as trending
// hashtag tallies in an embedded SQLite file. It is advisory by contract:
// the reconciliation core never depends on it for correctness, and callers
// treat every error here as ignorable.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bitbuzz-project/web3social-sub000/internal/tags"
)

// TagCount is one trending entry.
type TagCount struct {
	Tag  string
	Hits int64
}

// Counter is a persistent increment/topN tally keyed by hashtag.
type Counter struct{ db *sql.DB }

// Open creates or opens the counter database at path, creating parent
// directories as needed.
func Open(path string) (*Counter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect telemetry db: %w", err)
	}

	const schema = `
    CREATE TABLE IF NOT EXISTS tag_counts (
        tag        TEXT PRIMARY KEY,
        hits       INTEGER NOT NULL DEFAULT 0,
        updated_at INTEGER NOT NULL DEFAULT 0
    )`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tag_counts: %w", err)
	}
	return &Counter{db: db}, nil
}

// Increment bumps the tally for tag. Tags are stored normalized.
func (c *Counter) Increment(ctx context.Context, tag string) error {
	t := tags.Normalize(tag)
	if t == "" {
		return nil
	}
	const q = `INSERT INTO tag_counts (tag, hits, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(tag) DO UPDATE SET hits = hits + 1, updated_at = excluded.updated_at`
	_, err := c.db.ExecContext(ctx, q, t, time.Now().Unix())
	return err
}

// TopN returns the n most seen tags, most popular first. Ties break by tag
// name so the listing is stable.
func (c *Counter) TopN(ctx context.Context, n int) ([]TagCount, error) {
	if n <= 0 {
		return nil, nil
	}
	const q = `SELECT tag, hits FROM tag_counts ORDER BY hits DESC, tag ASC LIMIT ?`
	rows, err := c.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Hits); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Prune drops tags not seen since cutoff, keeping the file small.
func (c *Counter) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM tag_counts WHERE updated_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the underlying database.
func (c *Counter) Close() error { return c.db.Close() }

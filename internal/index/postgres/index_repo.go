package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bitbuzz-project/web3social-sub000/internal/index"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
	"github.com/bitbuzz-project/web3social-sub000/internal/tags"
)

// cursorName keys the single rebuild cursor row. Kept symbolic in case a
// second scanner (another collection) ever shares the schema.
const cursorName = "rebuilder"

// IndexRepo implements index.Index on PostgreSQL.
type IndexRepo struct{ db *DB }

var _ index.Index = (*IndexRepo)(nil)

// NewIndexRepo constructs the repository.
func NewIndexRepo(db *DB) *IndexRepo { return &IndexRepo{db: db} }

// IDsByAuthor returns the author's record IDs newest first. Posting lists
// are append-only: callers re-check tombstones on the live record.
func (r *IndexRepo) IDsByAuthor(ctx context.Context, author string) ([]int64, error) {
	const q = `SELECT record_id FROM author_records WHERE author=$1 ORDER BY record_id DESC`
	rows, err := r.db.Pool.Query(ctx, q, author)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// IDsByTag returns record IDs carrying the tag, newest first.
func (r *IndexRepo) IDsByTag(ctx context.Context, tag string) ([]int64, error) {
	const q = `SELECT record_id FROM tag_records WHERE tag=$1 ORDER BY record_id DESC`
	rows, err := r.db.Pool.Query(ctx, q, tags.Normalize(tag))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Put writes the author posting entry and one tag entry per extracted tag,
// atomically. Conflicts are ignored so re-indexing an ID is a no-op.
func (r *IndexRepo) Put(ctx context.Context, rec model.Record, recTags []string) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const insAuthor = `INSERT INTO author_records (author, record_id, created_at)
		VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`
	if _, err = tx.Exec(ctx, insAuthor, rec.Author, rec.ID, rec.CreatedAt); err != nil {
		return fmt.Errorf("author entry: %w", err)
	}

	const insTag = `INSERT INTO tag_records (tag, record_id, created_at)
		VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`
	for _, t := range recTags {
		if _, err = tx.Exec(ctx, insTag, tags.Normalize(t), rec.ID, rec.CreatedAt); err != nil {
			return fmt.Errorf("tag entry %q: %w", t, err)
		}
	}
	return nil
}

// Cursor returns the highest indexed ledger ID, 0 before the first pass.
func (r *IndexRepo) Cursor(ctx context.Context) (int64, error) {
	const q = `SELECT last_id FROM index_cursor WHERE name=$1`
	var last int64
	err := r.db.Pool.QueryRow(ctx, q, cursorName).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last, nil
}

// SetCursor advances the rebuild cursor.
func (r *IndexRepo) SetCursor(ctx context.Context, id int64) error {
	const q = `INSERT INTO index_cursor (name, last_id) VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET last_id=EXCLUDED.last_id`
	_, err := r.db.Pool.Exec(ctx, q, cursorName, id)
	return err
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

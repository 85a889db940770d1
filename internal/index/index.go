// Package index defines the optional materialized index over the ledger:
// posting lists by author and by hashtag, plus the rebuild cursor. The feed
// enumerator treats it as a shortcut over the linear ID scan; readers must
// still re-check tombstones and membership, because posting lists are not
// rewritten when a record is later deleted or edited.
package index

import (
	"context"

	"github.com/bitbuzz-project/web3social-sub000/internal/model"
)

// Index provides candidate record IDs by secondary key.
type Index interface {
	// IDsByAuthor returns IDs of records created by author, newest first.
	IDsByAuthor(ctx context.Context, author string) ([]int64, error)

	// IDsByTag returns IDs of records whose body carried the tag, newest
	// first. Tags are stored normalized (lowercase, no '#').
	IDsByTag(ctx context.Context, tag string) ([]int64, error)

	// Put records one ledger entry and its extracted tags.
	// Re-putting the same ID is a no-op.
	Put(ctx context.Context, rec model.Record, recTags []string) error

	// Cursor returns the highest ledger ID already indexed, 0 if none.
	Cursor(ctx context.Context) (int64, error)

	// SetCursor advances the rebuild cursor.
	SetCursor(ctx context.Context, id int64) error
}

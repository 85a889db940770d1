// Package source declares the external collaborator contracts: the on-chain
// item ledger, the content-addressed blob store and the fire-and-forget
// write commands. Implementations live in subpackages.
package source

import (
	"context"

	"github.com/bitbuzz-project/web3social-sub000/internal/model"
)

// ItemSource is the read contract of one ledger collection (posts, messages,
// comments or notifications). Records are ID-indexed from 1, mutable in
// place, and never removed: deletion is a tombstone flag.
type ItemSource interface {
	// Count returns the highest assigned record ID, 0 if empty. It is
	// monotonically non-decreasing.
	Count(ctx context.Context) (int64, error)

	// GetByID returns one record. Returns errs.ErrNotFound for an ID the
	// source has not indexed yet.
	GetByID(ctx context.Context, id int64) (model.Record, error)

	// GetByParent returns the children of one parent record in creation
	// order. Sources may not support it; callers must fall back to a
	// linear ID scan on error.
	GetByParent(ctx context.Context, parentID int64) ([]model.Record, error)
}

// BlobStore is a content-addressed key to text lookup. Each key fails
// independently; a miss on one key never implies anything about another.
type BlobStore interface {
	// Put stores text and returns its content key.
	Put(ctx context.Context, text string) (string, error)
	// Get returns the text stored under key. Returns errs.ErrContentUnavailable
	// on any per-key failure.
	Get(ctx context.Context, key string) (string, error)
}

// CommandSender issues write commands against the ledger. Commands are
// fire-and-forget: a nil return means the command was accepted for
// submission, not that it landed. Readers must not assume a write is
// visible until a later Count/GetByID reflects it.
type CommandSender interface {
	CreatePost(ctx context.Context, contentRef string) error
	SendMessage(ctx context.Context, to, contentRef string) error
	Like(ctx context.Context, id int64) error
	Unlike(ctx context.Context, id int64) error
	Follow(ctx context.Context, account string) error
	Unfollow(ctx context.Context, account string) error
	MarkRead(ctx context.Context, id int64) error
	Edit(ctx context.Context, id int64, contentRef string) error
	Delete(ctx context.Context, id int64) error
}

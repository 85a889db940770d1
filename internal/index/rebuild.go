package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
	"github.com/bitbuzz-project/web3social-sub000/internal/source"
	"github.com/bitbuzz-project/web3social-sub000/internal/tags"
)

// Rebuilder advances the materialized index over the ledger. Each pass
// scans from the stored cursor up to the current count, extracts tags from
// record bodies and writes posting entries. The cursor only moves past an
// ID once that ID is fully indexed, so an interrupted pass resumes exactly
// where it stopped.
type Rebuilder struct {
	src   source.ItemSource
	blobs source.BlobStore
	idx   Index
	log   *zap.Logger
	batch int // max records per pass, 0 = unbounded
}

// NewRebuilder wires a rebuilder. log may be nil; batch <= 0 means no
// per-pass limit.
func NewRebuilder(src source.ItemSource, blobs source.BlobStore, idx Index, log *zap.Logger, batch int) *Rebuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rebuilder{src: src, blobs: blobs, idx: idx, log: log, batch: batch}
}

// Run executes one pass and returns how many records it indexed. A failing
// record stops the pass (the next pass retries it); a missing body only
// costs that record its tag entries.
func (r *Rebuilder) Run(ctx context.Context) (int, error) {
	cursor, err := r.idx.Cursor(ctx)
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	total, err := r.src.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	indexed := 0
	for id := cursor + 1; id <= total; id++ {
		if r.batch > 0 && indexed >= r.batch {
			break
		}
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		rec, err := r.src.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				// The node lags its own count; pick the ID up next pass.
				r.log.Debug("record not indexed yet, stopping pass", zap.Int64("id", id))
				return indexed, nil
			}
			return indexed, fmt.Errorf("get %d: %w", id, err)
		}

		var recTags []string
		if rec.ContentRef != "" && !rec.Deleted {
			body, err := r.blobs.Get(ctx, rec.ContentRef)
			if err != nil {
				r.log.Debug("body unavailable, indexing without tags",
					zap.Int64("id", id), zap.Error(err))
			} else {
				recTags = tags.Extract(body)
			}
		}

		if err := r.idx.Put(ctx, rec, recTags); err != nil {
			return indexed, fmt.Errorf("put %d: %w", id, err)
		}
		if err := r.idx.SetCursor(ctx, id); err != nil {
			return indexed, fmt.Errorf("advance cursor to %d: %w", id, err)
		}
		indexed++
	}

	if indexed > 0 {
		r.log.Info("index pass complete",
			zap.Int("indexed", indexed),
			zap.Int64("cursor", cursor+int64(indexed)),
		)
	}
	return indexed, nil
}

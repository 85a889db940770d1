package feed

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
	"github.com/bitbuzz-project/web3social-sub000/internal/index"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
	"github.com/bitbuzz-project/web3social-sub000/internal/source"
)

// CandidateIDs returns the candidate ID sequence for w over a ledger of
// total records, in window order. It computes IDs only; existence, deletion
// and membership checks belong to later stages. A total of 0 yields an
// empty sequence. The function is pure, so it can be re-invoked every poll
// tick as the count grows.
func CandidateIDs(total int64, w model.Window) []int64 {
	if total <= 0 {
		return nil
	}
	ids := make([]int64, 0, total)
	if w.Ascending() {
		for id := int64(1); id <= total; id++ {
			ids = append(ids, id)
		}
		return ids
	}
	for id := total; id >= 1; id-- {
		ids = append(ids, id)
	}
	return ids
}

// Enumerator produces the candidate IDs for a window. The canonical path is
// the linear scan over [1, count]; an optional materialized index and the
// source's aggregate parent query are shortcuts that narrow the candidate
// set without changing what the pipeline admits.
type Enumerator struct {
	src source.ItemSource
	idx index.Index // optional
	log *zap.Logger
}

// NewEnumerator builds an enumerator over src. idx may be nil; log may be
// nil for a nop logger.
func NewEnumerator(src source.ItemSource, idx index.Index, log *zap.Logger) *Enumerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enumerator{src: src, idx: idx, log: log}
}

// Enumerate returns candidate IDs for w in window order. tag, when
// non-empty, is a normalized hashtag the caller is searching for; the
// materialized tag index then narrows the candidates to records whose body
// carried it at ingest time. Aggregate results are seeded into cache so the
// pipeline does not re-fetch them. A failure of the underlying count() is a
// cycle-level error; shortcut failures only fall back to the scan.
func (e *Enumerator) Enumerate(ctx context.Context, w model.Window, tag string, cache *Cache) ([]int64, error) {
	switch w.Kind {
	case model.ByParent:
		if ids, ok := e.fromParentQuery(ctx, w, cache); ok {
			return ids, nil
		}
	case model.ByAuthor:
		if e.idx != nil {
			if ids, ok := e.fromAuthorIndex(ctx, w); ok {
				return ids, nil
			}
		}
	}
	if tag != "" && e.idx != nil {
		if ids, ok := e.fromTagIndex(ctx, w, tag); ok {
			return ids, nil
		}
	}

	total, err := e.src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %w", errs.ErrCycleFailed, err)
	}
	return CandidateIDs(total, w), nil
}

func (e *Enumerator) fromParentQuery(ctx context.Context, w model.Window, cache *Cache) ([]int64, bool) {
	recs, err := e.src.GetByParent(ctx, w.ParentID)
	if err != nil {
		e.log.Debug("parent aggregate failed, falling back to scan",
			zap.Int64("parent", w.ParentID), zap.Error(err))
		return nil, false
	}
	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		if cache != nil {
			cache.Seed(r)
		}
		ids = append(ids, r.ID)
	}
	sortIDs(ids, w)
	return ids, true
}

func (e *Enumerator) fromAuthorIndex(ctx context.Context, w model.Window) ([]int64, bool) {
	ids, err := e.idx.IDsByAuthor(ctx, w.Author)
	if err != nil {
		e.log.Debug("author index unavailable, falling back to scan",
			zap.String("author", w.Author), zap.Error(err))
		return nil, false
	}
	sortIDs(ids, w)
	return ids, true
}

// fromTagIndex narrows candidates to records the index saw carrying tag.
// The pipeline still re-fetches bodies and re-checks the tag, so a stale
// posting costs one wasted candidate, never a wrong admission.
func (e *Enumerator) fromTagIndex(ctx context.Context, w model.Window, tag string) ([]int64, bool) {
	ids, err := e.idx.IDsByTag(ctx, tag)
	if err != nil {
		e.log.Debug("tag index unavailable, falling back to scan",
			zap.String("tag", tag), zap.Error(err))
		return nil, false
	}
	sortIDs(ids, w)
	return ids, true
}

func sortIDs(ids []int64, w model.Window) {
	sort.Slice(ids, func(i, j int) bool { return w.Less(ids[i], ids[j]) })
}

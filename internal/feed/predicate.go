package feed

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bitbuzz-project/web3social-sub000/internal/model"
	"github.com/bitbuzz-project/web3social-sub000/internal/source"
	"github.com/bitbuzz-project/web3social-sub000/internal/tags"
)

// A Predicate is a composable membership test over a resolved record.
// Content predicates additionally receive the record's blob text; the
// pipeline only fetches content for records that already passed every
// cheap predicate.
type Predicate struct {
	Name         string
	NeedsContent bool
	Eval         func(rec model.Record, content string) bool
}

// NotDeleted admits records whose tombstone is unset. The pipeline always
// evaluates it first, whether or not the caller listed it.
func NotDeleted() Predicate {
	return Predicate{
		Name: "notDeleted",
		Eval: func(rec model.Record, _ string) bool { return !rec.Deleted },
	}
}

// AuthorEquals admits records created by account.
func AuthorEquals(account string) Predicate {
	return Predicate{
		Name: "authorEquals",
		Eval: func(rec model.Record, _ string) bool { return rec.Author == account },
	}
}

// BelongsToConversation admits messages exchanged between self and other in
// either direction.
func BelongsToConversation(self, other string) Predicate {
	return Predicate{
		Name: "belongsToConversation",
		Eval: func(rec model.Record, _ string) bool {
			return (rec.Author == self && rec.Receiver == other) ||
				(rec.Author == other && rec.Receiver == self)
		},
	}
}

// BelongsToThread admits records replying to or quoting parentID.
func BelongsToThread(parentID int64) Predicate {
	return Predicate{
		Name: "belongsToThread",
		Eval: func(rec model.Record, _ string) bool { return rec.ParentID == parentID },
	}
}

// ContainsFold admits records whose body contains substr, case-insensitively.
// Records without a body never match.
func ContainsFold(substr string) Predicate {
	needle := strings.ToLower(substr)
	return Predicate{
		Name:         "containsFold",
		NeedsContent: true,
		Eval: func(rec model.Record, content string) bool {
			if rec.ContentRef == "" {
				return false
			}
			return strings.Contains(strings.ToLower(content), needle)
		},
	}
}

// HasTag admits records whose body carries the hashtag. The leading '#' in
// tag is optional and comparison is case-insensitive.
func HasTag(tag string) Predicate {
	return Predicate{
		Name:         "hasTag",
		NeedsContent: true,
		Eval: func(rec model.Record, content string) bool {
			if rec.ContentRef == "" {
				return false
			}
			return tags.Match(content, tag)
		},
	}
}

// Status records why an ID was or was not admitted in one pipeline run.
type Status int

const (
	// StatusIncluded marks a record present in the result.
	StatusIncluded Status = iota
	// StatusDeleted marks a record excluded by its tombstone.
	StatusDeleted
	// StatusFiltered marks a record excluded by a membership or content
	// predicate (including content that could not be fetched).
	StatusFiltered
	// StatusUnresolved marks an ID that could not be resolved this cycle
	// (source miss or failure); it is retried next cycle.
	StatusUnresolved
)

// Result is the outcome of one pipeline run: admitted records in window
// order, plus a per-candidate status for merge decisions downstream.
type Result struct {
	Records []model.Record
	Status  map[int64]Status
}

const defaultFetchLimit = 8

// Pipeline materializes a filtered record list from candidate IDs. Records
// are resolved concurrently through the per-cycle cache, cheap predicates
// run before any content fetch, and a single bad ID never aborts the run:
// it is excluded and retried next cycle.
type Pipeline struct {
	blobs source.BlobStore
	log   *zap.Logger
	limit int // max in-flight source/blob fetches per stage
}

// NewPipeline builds a pipeline using blobs for content predicates. blobs
// may be nil when no content predicate will ever run; log may be nil.
func NewPipeline(blobs source.BlobStore, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{blobs: blobs, log: log, limit: defaultFetchLimit}
}

// Apply runs the predicate pipeline over ids, resolving records via cache.
// Output order follows the input ID order regardless of fetch completion
// order. Apply never fails as a whole; per-ID faults surface only in the
// Status map.
func (p *Pipeline) Apply(ctx context.Context, ids []int64, cache *Cache, preds []Predicate) Result {
	res := Result{Status: make(map[int64]Status, len(ids))}
	if len(ids) == 0 {
		return res
	}

	cheap, contentful := splitPredicates(preds)

	// Stage 1: gather-all record resolution, partial-failure tolerant.
	recs := make([]model.Record, len(ids))
	resolved := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			recs[i], resolved[i] = cache.Resolve(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	// Stage 2: cheap predicates in declared order, tombstone first.
	var survivors []survivor
	for i, id := range ids {
		if !resolved[i] {
			res.Status[id] = StatusUnresolved
			continue
		}
		rec := recs[i]
		if rec.Deleted {
			res.Status[id] = StatusDeleted
			continue
		}
		if !evalAll(cheap, rec, "") {
			res.Status[id] = StatusFiltered
			continue
		}
		res.Status[id] = StatusIncluded
		survivors = append(survivors, survivor{rec: rec})
	}

	// Stage 3: content fetch for survivors only, memoized by ref so an
	// edit that swaps the ref re-fetches while duplicates within a cycle
	// do not.
	if len(contentful) > 0 && len(survivors) > 0 {
		contents := p.fetchContents(ctx, survivors)
		kept := survivors[:0]
		for _, s := range survivors {
			body, ok := contents[s.rec.ContentRef]
			if s.rec.ContentRef != "" && !ok {
				// Content predicates fail for unreachable content.
				res.Status[s.rec.ID] = StatusFiltered
				continue
			}
			if !evalAll(contentful, s.rec, body) {
				res.Status[s.rec.ID] = StatusFiltered
				continue
			}
			kept = append(kept, s)
		}
		survivors = kept
	}

	res.Records = make([]model.Record, 0, len(survivors))
	for _, s := range survivors {
		res.Records = append(res.Records, s.rec)
	}
	return res
}

// survivor is a record that passed the cheap predicate stage. Survivors
// keep the candidate order, so the final list needs no re-sort.
type survivor struct {
	rec model.Record
}

// fetchContents resolves each distinct non-empty content ref once,
// concurrently. Failed refs are simply absent from the returned map.
func (p *Pipeline) fetchContents(ctx context.Context, survivors []survivor) map[string]string {
	refs := make([]string, 0, len(survivors))
	seen := make(map[string]struct{}, len(survivors))
	for _, s := range survivors {
		ref := s.rec.ContentRef
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	var mu sync.Mutex
	out := make(map[string]string, len(refs))
	if p.blobs == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			body, err := p.blobs.Get(gctx, ref)
			if err != nil {
				p.log.Debug("content fetch failed", zap.String("ref", ref), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[ref] = body
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// splitPredicates partitions preds into cheap and content-dependent groups,
// dropping any caller-supplied notDeleted: the tombstone check is built in
// and always runs first.
func splitPredicates(preds []Predicate) (cheap, contentful []Predicate) {
	for _, pr := range preds {
		if pr.Name == "notDeleted" {
			continue
		}
		if pr.NeedsContent {
			contentful = append(contentful, pr)
		} else {
			cheap = append(cheap, pr)
		}
	}
	return cheap, contentful
}

func evalAll(preds []Predicate, rec model.Record, content string) bool {
	for _, pr := range preds {
		if !pr.Eval(rec, content) {
			return false
		}
	}
	return true
}

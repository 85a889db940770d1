package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
)

func TestCandidateIDs_MostRecentDescending(t *testing.T) {
	t.Parallel()
	ids := CandidateIDs(4, model.MostRecentWindow())
	if !sameIDs(ids, 4, 3, 2, 1) {
		t.Fatalf("want [4 3 2 1], got %v", ids)
	}
}

func TestCandidateIDs_EmptyLedger(t *testing.T) {
	t.Parallel()
	if ids := CandidateIDs(0, model.MostRecentWindow()); len(ids) != 0 {
		t.Fatalf("total=0 must enumerate nothing, got %v", ids)
	}
	if ids := CandidateIDs(-3, model.MostRecentWindow()); len(ids) != 0 {
		t.Fatalf("negative total must enumerate nothing, got %v", ids)
	}
}

func TestCandidateIDs_ConversationAscending(t *testing.T) {
	t.Parallel()
	ids := CandidateIDs(3, model.ConversationWindow("a", "b"))
	if !sameIDs(ids, 1, 2, 3) {
		t.Fatalf("conversations read oldest first, got %v", ids)
	}
}

func TestCandidateIDs_RestartableAfterGrowth(t *testing.T) {
	t.Parallel()
	w := model.AuthorWindow("alice")
	first := CandidateIDs(2, w)
	second := CandidateIDs(5, w)
	if !sameIDs(first, 2, 1) || !sameIDs(second, 5, 4, 3, 2, 1) {
		t.Fatalf("re-invocation with a grown count must restart cleanly: %v then %v", first, second)
	}
}

func TestEnumerator_CountFailureIsCycleLevel(t *testing.T) {
	t.Parallel()
	src := newFakeSource(post(1, "a", ""))
	src.countErr = errors.New("node down")
	e := NewEnumerator(src, nil, nil)

	_, err := e.Enumerate(context.Background(), model.MostRecentWindow(), "", NewCache(src))
	if !errors.Is(err, errs.ErrCycleFailed) {
		t.Fatalf("count failure must surface as a cycle failure, got %v", err)
	}
}

func TestEnumerator_ParentAggregateSeedsCache(t *testing.T) {
	t.Parallel()
	parent := post(1, "op", "ref-1")
	reply := model.Record{ID: 2, Author: "rep", ParentID: 1, CreatedAt: 2}
	src := newFakeSource(parent, reply, post(3, "other", ""))
	e := NewEnumerator(src, nil, nil)
	cache := NewCache(src)

	ids, err := e.Enumerate(context.Background(), model.ThreadWindow(1), "", cache)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if !sameIDs(ids, 2) {
		t.Fatalf("want only the reply, got %v", ids)
	}
	if _, ok := cache.Resolve(context.Background(), 2); !ok {
		t.Fatalf("aggregate result must be seeded")
	}
	if src.calls(2) != 0 {
		t.Fatalf("seeded record must not be re-fetched")
	}
}

func TestEnumerator_ParentAggregateFallsBackToScan(t *testing.T) {
	t.Parallel()
	src := newFakeSource(post(1, "op", ""), model.Record{ID: 2, ParentID: 1})
	src.parentErr = errors.New("aggregate query broken")
	e := NewEnumerator(src, nil, nil)

	ids, err := e.Enumerate(context.Background(), model.ThreadWindow(1), "", NewCache(src))
	if err != nil {
		t.Fatalf("fallback must not fail the cycle: %v", err)
	}
	if !sameIDs(ids, 2, 1) {
		t.Fatalf("fallback must scan the full range newest first, got %v", ids)
	}
}

type fakeIndex struct {
	byAuthor map[string][]int64
	byTag    map[string][]int64
	tagCalls int
	err      error
}

func (f *fakeIndex) IDsByAuthor(_ context.Context, author string) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]int64(nil), f.byAuthor[author]...), nil
}
func (f *fakeIndex) IDsByTag(_ context.Context, tag string) ([]int64, error) {
	f.tagCalls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]int64(nil), f.byTag[tag]...), nil
}
func (f *fakeIndex) Put(context.Context, model.Record, []string) error { return nil }
func (f *fakeIndex) Cursor(context.Context) (int64, error)             { return 0, nil }
func (f *fakeIndex) SetCursor(context.Context, int64) error            { return nil }

func TestEnumerator_AuthorIndexShortcut(t *testing.T) {
	t.Parallel()
	src := newFakeSource(post(1, "alice", ""), post(2, "bob", ""), post(3, "alice", ""))
	idx := &fakeIndex{byAuthor: map[string][]int64{"alice": {1, 3}}}
	e := NewEnumerator(src, idx, nil)

	ids, err := e.Enumerate(context.Background(), model.AuthorWindow("alice"), "", NewCache(src))
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if !sameIDs(ids, 3, 1) {
		t.Fatalf("index candidates must come back in window order, got %v", ids)
	}
	if src.countCalls != 0 {
		t.Fatalf("index shortcut must not call count")
	}
}

func TestEnumerator_AuthorIndexErrorFallsBack(t *testing.T) {
	t.Parallel()
	src := newFakeSource(post(1, "alice", ""), post(2, "bob", ""))
	idx := &fakeIndex{err: errors.New("db gone")}
	e := NewEnumerator(src, idx, nil)

	ids, err := e.Enumerate(context.Background(), model.AuthorWindow("alice"), "", NewCache(src))
	if err != nil {
		t.Fatalf("fallback must not fail the cycle: %v", err)
	}
	if !sameIDs(ids, 2, 1) {
		t.Fatalf("want the full scan on index failure, got %v", ids)
	}
}

func TestEnumerator_TagIndexShortcut(t *testing.T) {
	t.Parallel()
	src := newFakeSource(post(1, "alice", ""), post(2, "bob", ""), post(3, "carol", ""))
	idx := &fakeIndex{byTag: map[string][]int64{"go": {1, 3}}}
	e := NewEnumerator(src, idx, nil)

	ids, err := e.Enumerate(context.Background(), model.MostRecentWindow(), "go", NewCache(src))
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if !sameIDs(ids, 3, 1) {
		t.Fatalf("tag candidates must come back in window order, got %v", ids)
	}
	if src.countCalls != 0 {
		t.Fatalf("tag shortcut must not call count")
	}
}

func TestEnumerator_TagIndexErrorFallsBack(t *testing.T) {
	t.Parallel()
	src := newFakeSource(post(1, "alice", ""), post(2, "bob", ""))
	idx := &fakeIndex{err: errors.New("db gone")}
	e := NewEnumerator(src, idx, nil)

	ids, err := e.Enumerate(context.Background(), model.MostRecentWindow(), "go", NewCache(src))
	if err != nil {
		t.Fatalf("fallback must not fail the cycle: %v", err)
	}
	if !sameIDs(ids, 2, 1) {
		t.Fatalf("want the full scan on tag index failure, got %v", ids)
	}
}

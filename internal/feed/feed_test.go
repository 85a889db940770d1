package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
)

// fakeSource is an in-memory ledger with per-ID fault and latency injection.
type fakeSource struct {
	mu         sync.Mutex
	recs       map[int64]model.Record
	countErr   error
	getErr     map[int64]error
	latency    map[int64]time.Duration
	getCalls   map[int64]int
	countCalls int
	parentErr  error
}

func newFakeSource(recs ...model.Record) *fakeSource {
	f := &fakeSource{
		recs:     make(map[int64]model.Record),
		getErr:   make(map[int64]error),
		latency:  make(map[int64]time.Duration),
		getCalls: make(map[int64]int),
	}
	for _, r := range recs {
		f.recs[r.ID] = r
	}
	return f
}

func (f *fakeSource) put(r model.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[r.ID] = r
}

func (f *fakeSource) markDeleted(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.recs[id]
	r.Deleted = true
	f.recs[id] = r
}

func (f *fakeSource) calls(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[id]
}

func (f *fakeSource) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	var maxID int64
	for id := range f.recs {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (f *fakeSource) GetByID(_ context.Context, id int64) (model.Record, error) {
	f.mu.Lock()
	f.getCalls[id]++
	err := f.getErr[id]
	rec, ok := f.recs[id]
	delay := f.latency[id]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return model.Record{}, err
	}
	if !ok {
		return model.Record{}, fmt.Errorf("id %d: %w", id, errs.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeSource) GetByParent(_ context.Context, parentID int64) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.parentErr != nil {
		return nil, f.parentErr
	}
	var out []model.Record
	for id := int64(1); id <= int64(len(f.recs))+64; id++ {
		if r, ok := f.recs[id]; ok && r.ParentID == parentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeBlobs is an in-memory content store with per-key fault injection.
type fakeBlobs struct {
	mu    sync.Mutex
	data  map[string]string
	fail  map[string]error
	calls map[string]int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{
		data:  make(map[string]string),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (b *fakeBlobs) put(key, text string) { // test seeding, not the Put contract
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = text
}

func (b *fakeBlobs) getCalls(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *fakeBlobs) Put(_ context.Context, text string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := fmt.Sprintf("blob-%d", len(b.data)+1)
	b.data[key] = text
	return key, nil
}

func (b *fakeBlobs) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[key]++
	if err := b.fail[key]; err != nil {
		return "", err
	}
	text, ok := b.data[key]
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, errs.ErrContentUnavailable)
	}
	return text, nil
}

// post builds a minimal live post record.
func post(id int64, author, ref string) model.Record {
	return model.Record{ID: id, Author: author, ContentRef: ref, CreatedAt: 1700000000 + id}
}

// dm builds a direct message record.
func dm(id int64, from, to string) model.Record {
	return model.Record{ID: id, Author: from, Receiver: to, CreatedAt: 1700000000 + id}
}

func viewIDs(recs []model.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func sameIDs(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

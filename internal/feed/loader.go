package feed

import (
	"sort"
	"sync"

	"github.com/bitbuzz-project/web3social-sub000/internal/model"
)

// DefaultPageSize is the initial number of records a view exposes.
const DefaultPageSize = 10

// State is the loader lifecycle phase.
type State int

const (
	// StateIdle means no view is attached (pre-mount or after teardown).
	StateIdle State = iota
	// StateLoading means a fresh pipeline run is pending (mount or a
	// search change); the view is empty until the first apply.
	StateLoading
	// StateLoaded means at least one pipeline result has been applied.
	StateLoaded
)

// Loader holds the incremental pagination state of one view: the current
// filtered list, how much of it is visible, and the merge rules that keep a
// refresh from disturbing what the user is already looking at.
//
// The merge is monotonic-preserving: a record visible in the previous cycle
// stays visible even if this cycle failed to resolve it or it stopped
// matching a predicate. The only thing that removes a visible record is its
// tombstone.
type Loader struct {
	mu       sync.Mutex
	window   model.Window
	pageSize int
	state    State
	query    string
	list     []model.Record
	visible  int
}

// NewLoader builds an idle loader for the window. pageSize <= 0 selects
// DefaultPageSize.
func NewLoader(window model.Window, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{window: window, pageSize: pageSize, state: StateIdle}
}

// Begin transitions the loader out of Idle and starts the first page.
func (l *Loader) Begin() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return
	}
	l.state = StateLoading
	l.visible = l.pageSize
	l.list = nil
}

// Close tears the view down. Pending pipeline results for the old view are
// discarded by the driver's cycle token, not here.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateIdle
	l.list = nil
	l.visible = 0
	l.query = ""
}

// State returns the current lifecycle phase.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Query returns the active search query.
func (l *Loader) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// SetQuery installs a new search query. A changed query starts a fresh
// pagination: visibleCount resets to one page and the stale list is dropped
// until the next apply. Setting the same query is a no-op.
func (l *Loader) SetQuery(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q == l.query && l.state != StateIdle {
		return
	}
	l.query = q
	l.state = StateLoading
	l.visible = l.pageSize
	l.list = nil
}

// Apply merges one pipeline result into the view. Previously visible
// records missing from the fresh list are retained with their prior
// snapshot unless the fresh cycle saw their tombstone. The merged list is
// re-sorted in window order, so applying an identical result is a no-op.
func (l *Loader) Apply(res Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateIdle {
		return
	}

	var prevVisible []model.Record
	if l.state == StateLoaded {
		prevVisible = l.list[:min(l.visible, len(l.list))]
	}

	fresh := make(map[int64]struct{}, len(res.Records))
	merged := make([]model.Record, 0, len(res.Records))
	for _, r := range res.Records {
		fresh[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range prevVisible {
		if _, ok := fresh[r.ID]; ok {
			continue
		}
		if res.Status[r.ID] == StatusDeleted {
			continue
		}
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return l.window.Less(merged[i].ID, merged[j].ID)
	})

	l.list = merged
	l.state = StateLoaded
}

// View returns the visible prefix of the filtered list. The slice is a copy;
// callers may hold it across cycles.
func (l *Loader) View() []model.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateLoaded {
		return nil
	}
	n := min(l.visible, len(l.list))
	out := make([]model.Record, n)
	copy(out, l.list[:n])
	return out
}

// LoadMore grows the visible window by one page, capped at the filtered
// list length. Valid only once loaded; it is ignored otherwise.
func (l *Loader) LoadMore() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateLoaded {
		return
	}
	// Invariant: visible never drops below one page. View() clips to the
	// list, so records arriving into a short list surface without another
	// LoadMore.
	l.visible = min(l.visible+l.pageSize, max(len(l.list), l.pageSize))
}

// CanLoadMore reports whether the filtered list extends past the visible
// prefix; the UI shows its "load more" affordance exactly then.
func (l *Loader) CanLoadMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateLoaded && l.visible < len(l.list)
}

// Len returns the full filtered list length (visible or not).
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.list)
}

// UnreadCount returns, for conversation windows, how many of the peer's
// messages carry no read mark yet. Other windows always report 0.
func (l *Loader) UnreadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.window.Kind != model.ByConversation {
		return 0
	}
	n := 0
	for _, r := range l.list {
		if r.Author == l.window.Other && !r.Read {
			n++
		}
	}
	return n
}

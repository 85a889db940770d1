package feed

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/index"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
	"github.com/bitbuzz-project/web3social-sub000/internal/source"
	"github.com/bitbuzz-project/web3social-sub000/internal/tags"
)

const (
	// DefaultPollInterval is how often a live view re-runs the pipeline.
	DefaultPollInterval = 5 * time.Second
	// DefaultFailureThreshold is how many consecutive failed cycles are
	// tolerated silently before the view reports itself degraded.
	DefaultFailureThreshold = 3
)

// TagCounter receives hashtags observed in fresh records. It is advisory
// telemetry: the driver logs and ignores every error it returns.
type TagCounter interface {
	Increment(ctx context.Context, tag string) error
}

// DriverConfig assembles a poll/refresh driver. Source and Window are
// required; everything else has a usable zero value.
type DriverConfig struct {
	Window   model.Window
	Source   source.ItemSource
	Blobs    source.BlobStore
	Index    index.Index // optional author/tag candidate shortcut
	Logger   *zap.Logger
	Interval time.Duration
	PageSize int
	// FailureThreshold is the number of consecutive cycle failures after
	// which Degraded reports true.
	FailureThreshold int
	// Trending, when set, is fed the tags of records admitted each cycle.
	Trending TagCounter
	// OnApply, when set, is called after each applied cycle with the
	// current visible view. Called from the driver's goroutine.
	OnApply func(view []model.Record)
}

// Driver owns one live view: it re-runs enumerate -> resolve -> filter on a
// fixed interval and merges each result into the loader. In-flight cycles
// superseded by a newer cycle, a search change or teardown are discarded at
// apply time via a monotonically increasing cycle token.
type Driver struct {
	id     uuid.UUID // view identity, for logs
	window model.Window
	src    source.ItemSource
	enum   *Enumerator
	pipe   *Pipeline
	loader *Loader
	log    *zap.Logger

	interval  time.Duration
	threshold int
	trending  TagCounter
	onApply   func([]model.Record)

	cycle atomic.Uint64

	mu       sync.Mutex
	failures int
	lastErr  error
	seenTags map[string]struct{}
}

// NewDriver builds a driver and its loader. The loader is private to this
// driver; two views never share reconciliation state.
func NewDriver(cfg DriverConfig) *Driver {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	id := uuid.Must(uuid.NewV4())
	return &Driver{
		id:        id,
		window:    cfg.Window,
		src:       cfg.Source,
		enum:      NewEnumerator(cfg.Source, cfg.Index, log),
		pipe:      NewPipeline(cfg.Blobs, log),
		loader:    NewLoader(cfg.Window, cfg.PageSize),
		log:       log.With(zap.String("view", id.String())),
		interval:  interval,
		threshold: threshold,
		trending:  cfg.Trending,
		onApply:   cfg.OnApply,
		seenTags:  make(map[string]struct{}),
	}
}

// Loader exposes the pagination surface of this view.
func (d *Driver) Loader() *Loader { return d.loader }

// Run polls until ctx is cancelled. The first cycle runs immediately.
// A failed cycle keeps the previous view intact and is retried on the next
// tick; Run itself only returns ctx.Err().
func (d *Driver) Run(ctx context.Context) error {
	d.loader.Begin()
	defer func() {
		// Supersede any in-flight cycle, then detach the view.
		d.cycle.Add(1)
		d.loader.Close()
	}()

	d.tick(ctx)

	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			d.tick(ctx)
		}
	}
}

// Refresh runs a single on-demand cycle and reports its error, bypassing
// the silent-retry accounting. Safe to call while Run is polling.
func (d *Driver) Refresh(ctx context.Context) error {
	d.loader.Begin()
	return d.runCycle(ctx)
}

// SetQuery installs a new search query and immediately starts a fresh
// cycle. The query change supersedes any in-flight tick, and pagination
// restarts at one page.
func (d *Driver) SetQuery(ctx context.Context, q string) error {
	d.loader.Begin()
	d.loader.SetQuery(q)
	return d.runCycle(ctx)
}

// Degraded reports whether the last cycles failed often enough that the UI
// should show its inline, dismissible error affordance.
func (d *Driver) Degraded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures >= d.threshold
}

// Err returns the most recent cycle error, nil after a healthy cycle.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// tick runs one polling cycle under the silent-retry policy.
func (d *Driver) tick(ctx context.Context) {
	if err := d.runCycle(ctx); err != nil {
		d.mu.Lock()
		d.failures++
		d.lastErr = err
		failures := d.failures
		d.mu.Unlock()
		if failures == d.threshold {
			d.log.Warn("view degraded", zap.Int("consecutive_failures", failures), zap.Error(err))
		} else {
			d.log.Debug("cycle failed, will retry", zap.Error(err))
		}
		return
	}
	d.mu.Lock()
	d.failures = 0
	d.lastErr = nil
	d.mu.Unlock()
}

// runCycle executes enumerate -> resolve -> filter once and applies the
// result unless a newer cycle superseded it in the meantime.
func (d *Driver) runCycle(ctx context.Context) error {
	token := d.cycle.Add(1)
	cache := NewCache(d.src)

	ids, err := d.enum.Enumerate(ctx, d.window, d.queryTag(), cache)
	if err != nil {
		return err
	}

	res := d.pipe.Apply(ctx, ids, cache, d.predicates())

	// Stale-response guard: only the newest cycle may touch the loader.
	if d.cycle.Load() != token || ctx.Err() != nil {
		d.log.Debug("discarding superseded cycle", zap.Uint64("token", token))
		return nil
	}

	d.loader.Apply(res)
	d.observeTags(ctx, res)
	if d.onApply != nil {
		d.onApply(d.loader.View())
	}
	return nil
}

// queryTag returns the normalized hashtag of the active query, or "" when
// the query is empty or plain text.
func (d *Driver) queryTag() string {
	q := d.loader.Query()
	if !strings.HasPrefix(q, "#") {
		return ""
	}
	return tags.Normalize(q)
}

// predicates derives the pipeline predicate chain from the window and the
// active search query. The tombstone check is implicit in the pipeline.
func (d *Driver) predicates() []Predicate {
	var preds []Predicate
	switch d.window.Kind {
	case model.ByAuthor:
		preds = append(preds, AuthorEquals(d.window.Author))
	case model.ByConversation:
		preds = append(preds, BelongsToConversation(d.window.Self, d.window.Other))
	case model.ByParent:
		preds = append(preds, BelongsToThread(d.window.ParentID))
	}
	if q := d.loader.Query(); q != "" {
		if strings.HasPrefix(q, "#") {
			preds = append(preds, HasTag(q))
		} else {
			preds = append(preds, ContainsFold(q))
		}
	}
	return preds
}

// observeTags feeds hashtags of newly admitted records into the trending
// counter, once per record body per driver lifetime. Failures are logged
// and dropped: telemetry never gates the read path.
func (d *Driver) observeTags(ctx context.Context, res Result) {
	if d.trending == nil || d.pipe.blobs == nil {
		return
	}
	for _, rec := range res.Records {
		if rec.ContentRef == "" {
			continue
		}
		d.mu.Lock()
		_, seen := d.seenTags[rec.ContentRef]
		if !seen {
			d.seenTags[rec.ContentRef] = struct{}{}
		}
		d.mu.Unlock()
		if seen {
			continue
		}
		body, err := d.pipe.blobs.Get(ctx, rec.ContentRef)
		if err != nil {
			continue
		}
		for _, tag := range tags.Extract(body) {
			if err := d.trending.Increment(ctx, tag); err != nil {
				d.log.Debug("trending increment failed", zap.String("tag", tag), zap.Error(err))
			}
		}
	}
}

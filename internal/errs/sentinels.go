// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across source/feed/index layers.
var (
	// ErrNotFound indicates the requested record does not exist (yet). The
	// ledger assigns IDs densely, so a miss below count() usually means the
	// source has not caught up; callers skip and retry on the next cycle.
	ErrNotFound = errors.New("not found")

	// ErrSourceUnavailable indicates a transient failure of the item source
	// (count or per-ID read).
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrContentUnavailable indicates the blob store could not serve a
	// content key. The owning record fails content predicates this cycle.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrCycleFailed indicates a whole refresh cycle could not run because
	// the window's count() call failed.
	ErrCycleFailed = errors.New("refresh cycle failed")
)

// Package store persists completed analysis runs, keyed by the encoded
// AnalysisKey. It is a cache of final results, not a run journal: only
// complete ledgers are admitted.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finreport-cli/internal/model"
)

// ErrNotFound marks a cache miss.
var ErrNotFound = eris.New("store: not found")

// ErrCacheConflict marks a duplicate Put for a key that already holds a
// result. The first writer wins; callers treat this as a no-op signal.
var ErrCacheConflict = eris.New("store: cache conflict")

// Entry is one cached run summary, as listed by List.
type Entry struct {
	CacheKey  string            `json:"cache_key"`
	Key       model.AnalysisKey `json:"key"`
	RunID     string            `json:"run_id"`
	Usage     model.TokenUsage  `json:"usage"`
	CreatedAt time.Time         `json:"created_at"`
}

// Filter narrows List results.
type Filter struct {
	Symbol string `json:"symbol,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store is the result cache boundary.
type Store interface {
	// Check returns the cached ledger for a key, or ErrNotFound.
	Check(ctx context.Context, key model.AnalysisKey) (*model.Ledger, error)
	// Put stores a complete ledger. A ledger that is not complete is
	// rejected; a key that already holds a result returns ErrCacheConflict
	// and leaves the stored result untouched.
	Put(ctx context.Context, led *model.Ledger) error
	// List returns cached run summaries, newest first.
	List(ctx context.Context, filter Filter) ([]Entry, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Package history maintains a durable, incrementally-merged contribution
// history per user.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flairward/flairward/internal/adapters/store"
	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/pkg/logger"
	"github.com/flairward/flairward/pkg/metrics"
)

// KVTypeUserHistory is the logical key-value type persisted histories live
// under.
const KVTypeUserHistory = "user-history"

// Default cache configuration constants.
const (
	defaultStaleAfter    = 24 * time.Hour
	defaultOverlapWindow = 7 * 24 * time.Hour

	// After this many items touched in one refresh, the lurker heuristic
	// kicks in.
	lurkerItemThreshold = 150
	// Fewer than this many in-community items signals a likely lurker.
	lurkerCommunityThreshold = 5
)

// Source pages a user's contributions from the content platform, newest
// first. An empty next cursor ends the listing.
type Source interface {
	UserContributions(ctx context.Context, username, cursor string) (batch []model.Contribution, next string, err error)
}

// Cache owns per-user contribution histories, persisted through the
// key-value store and refreshed incrementally from the content source.
type Cache struct {
	kv        store.KV
	source    Source
	log       logger.Logger
	community string

	staleAfter    time.Duration
	overlapWindow time.Duration
	earlyBail     bool
	now           func() time.Time
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithStaleAfter sets how old a persisted history may be before a refresh.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithOverlapWindow sets how far past the newest known contribution a
// refresh re-fetches, to catch score and removal updates on already-seen
// items.
func WithOverlapWindow(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.overlapWindow = d
		}
	}
}

// WithEarlyBail enables the lurker short-circuit: stop paging once enough
// of the fetched window is confirmed off-community. Off by default; the
// heuristic is always computed and logged.
func WithEarlyBail(enabled bool) Option {
	return func(c *Cache) {
		c.earlyBail = enabled
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCache creates a history cache for one community of interest.
func NewCache(kv store.KV, source Source, community string, opts ...Option) *Cache {
	c := &Cache{
		kv:            kv,
		source:        source,
		community:     community,
		staleAfter:    defaultStaleAfter,
		overlapWindow: defaultOverlapWindow,
		now:           time.Now,
		log:           nil, // resolved on first use
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Get().Named("user-history")
	}

	return c
}

// Query returns the user's contribution history, refreshing it from the
// content platform when the persisted copy is stale, corrupt, missing, or
// force is set. The returned history is monotonically non-decreasing in
// information: a refresh updates or adds entries but never drops known
// ones.
func (c *Cache) Query(ctx context.Context, username string, force bool) (*model.History, error) {
	entry, err := c.kv.Get(ctx, KVTypeUserHistory, username)
	if err != nil {
		return nil, err
	}

	var existing *model.History
	if entry.Existed {
		parsed := model.NewHistory()
		if err := json.Unmarshal([]byte(entry.Value), parsed); err != nil {
			// Corrupt persisted value. Treat as a cache miss and rebuild.
			c.log.Warn(ctx, "discarding unparsable user history",
				logger.String("username", username),
				logger.Error(err),
			)
		} else {
			existing = parsed
			if !force && c.now().Sub(entry.UpdatedAt) < c.staleAfter {
				c.log.Debug(ctx, "using cached user history",
					logger.String("username", username),
					logger.Int("contributions", existing.Len()),
				)
				metrics.RecordHistoryCacheHit()
				return existing, nil
			}
		}
	}

	// Refresh. Re-fetch a week of overlap past the newest known item so
	// score and removal updates on already-seen items are caught.
	var boundary time.Time
	merged := existing
	if merged == nil {
		merged = model.NewHistory()
	}
	if merged.Len() > 0 {
		boundary = merged.NewestCreatedAt().Add(-c.overlapWindow)
	}

	c.log.Info(ctx, "fetching latest user history",
		logger.String("username", username),
		logger.Bool("update", merged.Len() > 0),
		logger.Time("boundary", boundary),
	)

	start := c.now()
	added, updated, err := c.refresh(ctx, username, merged, boundary)
	if err != nil {
		return nil, err
	}
	metrics.RecordHistoryRefresh()
	metrics.RecordHistoryFetchLatency(float64(c.now().Sub(start).Milliseconds()))

	merged.MarkRefreshed(c.now())
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if _, err := c.kv.Put(ctx, KVTypeUserHistory, username, string(raw)); err != nil {
		return nil, err
	}

	c.log.Info(ctx, "user history refreshed",
		logger.String("username", username),
		logger.Int("contributions", merged.Len()),
		logger.Int("added", added),
		logger.Int("updated", updated),
	)

	return merged, nil
}

// refresh pulls newest-first batches and merges them into record until the
// overlap boundary is satisfied or pages run out.
func (c *Cache) refresh(ctx context.Context, username string, record *model.History, boundary time.Time) (added, updated int, err error) {
	communityCount := record.CommunityCount(c.community)
	lurkerLogged := false

	cursor := ""
	for batchIdx := 0; ; batchIdx++ {
		batch, next, err := c.source.UserContributions(ctx, username, cursor)
		if err != nil {
			return added, updated, err
		}
		if len(batch) == 0 {
			break
		}

		oldest := batch[0].CreatedAt
		for _, contrib := range batch {
			if record.Upsert(contrib) {
				added++
			} else {
				updated++
			}
			if contrib.Community == c.community {
				communityCount++
			}
			if contrib.CreatedAt.Before(oldest) {
				oldest = contrib.CreatedAt
			}
		}

		// With a power user posting 20-30 items a day, 150 touched items is
		// roughly two weeks of data. If almost none of it is in-community
		// we are mostly dealing with a lurker and further pages rarely
		// change the verdict.
		if !lurkerLogged && added+updated > lurkerItemThreshold && communityCount < lurkerCommunityThreshold {
			c.log.Info(ctx, "lurker heuristic tripped",
				logger.String("username", username),
				logger.Int("touched", added+updated),
				logger.Int("inCommunity", communityCount),
				logger.Bool("earlyBail", c.earlyBail),
			)
			lurkerLogged = true
			if c.earlyBail {
				break
			}
		}

		if !boundary.IsZero() && oldest.Before(boundary) {
			c.log.Debug(ctx, "overlap boundary reached",
				logger.String("username", username),
				logger.Int("batch", batchIdx),
				logger.Time("oldest", oldest),
				logger.Time("boundary", boundary),
			)
			break
		}

		if next == "" {
			break
		}
		cursor = next
	}

	return added, updated, nil
}

// KnownUsernames lists every user with a persisted history.
func (c *Cache) KnownUsernames(ctx context.Context) ([]string, error) {
	return c.kv.Keys(ctx, KVTypeUserHistory)
}

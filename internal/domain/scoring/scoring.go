// Package scoring classifies users as established or newcomers from their
// contribution history and keeps their flair in sync.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/flairward/flairward/internal/adapters/store"
	"github.com/flairward/flairward/internal/domain/debounce"
	"github.com/flairward/flairward/internal/domain/flair"
	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/pkg/logger"
	"github.com/flairward/flairward/pkg/metrics"
)

// Default scoring configuration constants.
const (
	// Contributions younger than this are excluded: moderators have not
	// had a chance to act on them yet.
	defaultTooNewAge = 3 * 24 * time.Hour
	// Contributions older than this never change the verdict.
	defaultLookback = 2 * 365 * 24 * time.Hour

	// Early-exit thresholds, purely a cost optimization.
	bailEstablishedCount = 10
	bailEstablishedScore = 500
	bailNegativeScore    = -500
)

// Tier is one classification rung: a user passing any tier is established.
type Tier struct {
	MinContributions int
	MinScore         int
}

// defaultTiers are evaluated in order; the first satisfied tier wins.
func defaultTiers() []Tier {
	return []Tier{
		{MinContributions: 10, MinScore: 200},
		{MinContributions: 20, MinScore: 100},
		{MinContributions: 30, MinScore: 50},
	}
}

// Result carries everything one evaluation produced.
type Result struct {
	IsNewcomer        bool   `json:"is_newcomer"`
	FlairChanged      bool   `json:"flair_changed"`
	CommunityScore    int    `json:"community_score"`
	TooNewScore       int    `json:"too_new_score"`
	TooNewCount       int    `json:"too_new_count"`
	RemovedScore      int    `json:"removed_score"`
	RemovedCount      int    `json:"removed_count"`
	CommunityAnalyzed int    `json:"community_analyzed"`
	TotalAnalyzed     int    `json:"total_analyzed"`
	Summary           string `json:"summary"`
}

// Historian supplies contribution histories.
type Historian interface {
	Query(ctx context.Context, username string, force bool) (*model.History, error)
}

// FlairContexts builds flair contexts, trial or authoritative.
type FlairContexts interface {
	Preloaded(username, text, category string) *flair.Context
	Fetched(ctx context.Context, username string) (*flair.Context, error)
}

// Auditor records scoring outcomes.
type Auditor interface {
	DataPoint(ctx context.Context, p store.DataPoint) error
}

// Engine walks user histories and drives flair updates.
type Engine struct {
	history  Historian
	flairs   FlairContexts
	auditor  Auditor
	registry *debounce.Registry
	log      logger.Logger

	community          string
	tiers              []Tier
	tooNewAge          time.Duration
	lookback           time.Duration
	userIgnoreList     map[string]struct{}
	categoryIgnoreList map[string]struct{}
	now                func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTiers overrides the classification tiers.
func WithTiers(tiers []Tier) Option {
	return func(e *Engine) {
		if len(tiers) > 0 {
			e.tiers = append([]Tier(nil), tiers...)
		}
	}
}

// WithTooNewAge sets the age below which contributions are excluded.
func WithTooNewAge(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tooNewAge = d
		}
	}
}

// WithLookback sets the maximum age of contributions worth walking.
func WithLookback(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lookback = d
		}
	}
}

// WithUserIgnoreList sets usernames that are never evaluated.
func WithUserIgnoreList(users []string) Option {
	return func(e *Engine) {
		e.userIgnoreList = make(map[string]struct{}, len(users))
		for _, u := range users {
			e.userIgnoreList[u] = struct{}{}
		}
	}
}

// WithCategoryIgnoreList sets flair categories that are never tagged as
// newcomer.
func WithCategoryIgnoreList(categories []string) Option {
	return func(e *Engine) {
		e.categoryIgnoreList = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			e.categoryIgnoreList[c] = struct{}{}
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates a scoring engine for one community.
func NewEngine(history Historian, flairs FlairContexts, auditor Auditor, registry *debounce.Registry, community string, opts ...Option) *Engine {
	e := &Engine{
		history:            history,
		flairs:             flairs,
		auditor:            auditor,
		registry:           registry,
		community:          community,
		tiers:              defaultTiers(),
		tooNewAge:          defaultTooNewAge,
		lookback:           defaultLookback,
		userIgnoreList:     map[string]struct{}{},
		categoryIgnoreList: map[string]struct{}{},
		now:                time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = logger.Get().Named("scoring")
	}

	return e
}

// HandleContent processes one dequeued content event end to end: filter,
// debounce gate, full evaluation, audit data point.
func (e *Engine) HandleContent(ctx context.Context, ev model.ContentEvent) error {
	if ev.DeletedAuthor() {
		metrics.RecordEventSkipped("deleted_author")
		return nil
	}
	if _, ignored := e.userIgnoreList[ev.Author]; ignored {
		metrics.RecordEventSkipped("ignored_author")
		return nil
	}

	e.log.Debug(ctx, "handling content",
		logger.String("fullID", ev.FullID),
		logger.String("author", ev.Author),
		logger.String("text", ev.ShortText()),
		logger.Bool("catchUp", ev.CatchUp),
	)

	now := e.now()
	verdict, rec := e.registry.Gate(ev.Author, ev.CatchUp, now)
	switch verdict {
	case debounce.SkipCatchUp:
		e.log.Debug(ctx, "skipping catch-up, already evaluated this epoch",
			logger.String("author", ev.Author),
			logger.String("lastSummary", rec.LastSummary),
		)
		metrics.RecordEventSkipped("catch_up_done")
		return nil
	case debounce.SkipDebounced:
		e.log.Debug(ctx, "debounced",
			logger.String("author", ev.Author),
			logger.Time("nextEligibleAt", rec.NextEligibleAt),
			logger.String("lastSummary", rec.LastSummary),
		)
		metrics.RecordEventSkipped("debounced")
		return nil
	}

	result, err := e.Reflair(ctx, ev.Author, &ev.FlairText, &ev.FlairCategory)
	if err != nil {
		return err
	}

	fullID := ev.FullID
	if ev.CatchUp {
		fullID = "[catch-up]"
	}
	return e.auditor.DataPoint(ctx, store.DataPoint{
		Author:            ev.Author,
		FullID:            fullID,
		ShortText:         ev.ShortText(),
		IsNewcomer:        result.IsNewcomer,
		IsCatchUp:         ev.CatchUp,
		FlairChanged:      result.FlairChanged,
		CommunityScore:    result.CommunityScore,
		TooNewScore:       result.TooNewScore,
		TooNewCount:       result.TooNewCount,
		RemovedScore:      result.RemovedScore,
		RemovedCount:      result.RemovedCount,
		CommunityAnalyzed: result.CommunityAnalyzed,
		TotalAnalyzed:     result.TotalAnalyzed,
	})
}

// Reflair runs a full evaluation of username: walk the history newest
// first, classify against the tiers, and reconcile the flair in two passes
// to minimize remote calls. knownText and knownCategory, when non-nil,
// seed a trial pass from possibly-stale caller data.
func (e *Engine) Reflair(ctx context.Context, username string, knownText, knownCategory *string) (Result, error) {
	start := e.now()
	history, err := e.history.Query(ctx, username, false)
	if err != nil {
		return Result{}, err
	}

	now := e.now()
	var res Result
walk:
	for _, contrib := range history.Sorted() {
		age := now.Sub(contrib.CreatedAt)

		if contrib.Community == e.community {
			switch {
			case contrib.Removed:
				// Removed by moderators: excluded from the decision.
				res.RemovedScore += contrib.Score
				res.RemovedCount++
			case age < e.tooNewAge:
				res.TooNewScore += contrib.Score
				res.TooNewCount++
			default:
				res.CommunityScore += contrib.Score
				res.CommunityAnalyzed++
			}
		}

		res.TotalAnalyzed++

		// Early exits, a cost optimization only: the verdict is already
		// determined for any history satisfying these.
		switch {
		case age > e.lookback:
			e.log.Debug(ctx, "bailing at age horizon",
				logger.String("username", username),
				logger.Int("communityScore", res.CommunityScore),
			)
			break walk
		case res.CommunityAnalyzed > bailEstablishedCount && res.CommunityScore > bailEstablishedScore:
			e.log.Debug(ctx, "bailing, confidently established",
				logger.String("username", username),
				logger.Int("communityScore", res.CommunityScore),
			)
			break walk
		case res.CommunityScore < bailNegativeScore:
			e.log.Debug(ctx, "bailing, confidently negative",
				logger.String("username", username),
				logger.Int("communityScore", res.CommunityScore),
			)
			break walk
		}
	}

	res.IsNewcomer = true
	for _, tier := range e.tiers {
		if res.CommunityAnalyzed >= tier.MinContributions && res.CommunityScore >= tier.MinScore {
			res.IsNewcomer = false
			break
		}
	}

	e.log.Info(ctx, "evaluated user",
		logger.String("username", username),
		logger.Bool("newcomer", res.IsNewcomer),
		logger.Int("communityScore", res.CommunityScore),
		logger.Int("communityAnalyzed", res.CommunityAnalyzed),
		logger.Int("totalAnalyzed", res.TotalAnalyzed),
		logger.Int("tooNewCount", res.TooNewCount),
		logger.Int("removedCount", res.RemovedCount),
	)

	// The effective tag: ignore-listed flair categories are never tagged
	// as newcomer.
	taggedAsNewcomer := res.IsNewcomer
	apply := func(c *flair.Context) {
		_, ignored := e.categoryIgnoreList[c.Category]
		taggedAsNewcomer = res.IsNewcomer && !ignored
		c.SetNewcomerTag(taggedAsNewcomer)
	}

	// Trial pass against caller-known flair state; it can be quite old
	// depending on queue depth, but when it shows no semantic change the
	// remote fetch and commit are skipped entirely.
	trialEnabled := knownText != nil
	trialChanged := true
	if trialEnabled {
		category := ""
		if knownCategory != nil {
			category = *knownCategory
		}
		trial := e.flairs.Preloaded(username, *knownText, category)
		apply(trial)
		trialChanged = trial.IsSemanticallyChanged()
	}

	if !trialEnabled || trialChanged {
		authoritative, err := e.flairs.Fetched(ctx, username)
		if err != nil {
			return Result{}, err
		}
		apply(authoritative)
		changed, err := authoritative.Commit(ctx)
		if err != nil {
			return Result{}, err
		}
		res.FlairChanged = changed
		if changed {
			metrics.RecordFlairUpdate()
		}
	}

	res.Summary = fmt.Sprintf("%s IsNewcomer: %t, Score %d (%d), Contributions %d (%d) of %d",
		username, taggedAsNewcomer, res.CommunityScore, res.TooNewScore,
		res.CommunityAnalyzed, res.TooNewCount, res.TotalAnalyzed)

	e.registry.Record(username, res.Summary, now)
	e.log.Info(ctx, res.Summary)

	metrics.RecordEvaluation()
	if res.IsNewcomer {
		metrics.RecordNewcomerVerdict()
	}
	metrics.RecordEvaluationLatency(float64(e.now().Sub(start).Milliseconds()))

	return res, nil
}

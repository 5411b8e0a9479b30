// Package service wires the moderation pipeline together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/flairward/flairward/internal/adapters/http/api"
	"github.com/flairward/flairward/internal/adapters/mq/dispatch"
	"github.com/flairward/flairward/internal/adapters/mq/queue"
	"github.com/flairward/flairward/internal/adapters/reddit"
	"github.com/flairward/flairward/internal/adapters/store"
	"github.com/flairward/flairward/internal/audit"
	"github.com/flairward/flairward/internal/config"
	"github.com/flairward/flairward/internal/domain/debounce"
	"github.com/flairward/flairward/internal/domain/flair"
	"github.com/flairward/flairward/internal/domain/history"
	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/internal/domain/scoring"
	"github.com/flairward/flairward/pkg/logger"
	"github.com/flairward/flairward/pkg/metrics"
)

// Store bundles the persistence surface the service needs.
type Store interface {
	store.KV
	store.AuditSink
	Close() error
}

// Platform bundles the content platform surface the service needs.
type Platform interface {
	history.Source
	flair.Setter
	flair.Fetcher
	CurrentActivity(ctx context.Context) ([]model.ContentEvent, error)
}

// Service owns the moderation pipeline: live poller and rescanner feed the
// priority queue, a single dispatcher drains it through the scoring engine.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	st        Store
	ownsStore bool
	platform  Platform
	queue     *queue.PriorityQueue
	registry  *debounce.Registry
	histories *history.Cache
	engine    *scoring.Engine

	dispatcher *dispatch.Dispatcher
	rescanner  *dispatch.Rescanner
	poller     *reddit.Poller

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a preopened store. The service will not close it.
func WithStore(st Store) Option {
	return func(s *Service) {
		s.st = st
	}
}

// WithPlatform injects a content platform client. When the injected platform
// is not a *reddit.Client the live poller is not started; live events then
// only arrive through rescans and manual reflair calls.
func WithPlatform(p Platform) Option {
	return func(s *Service) {
		s.platform = p
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service for the given configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		logger: nil, // resolved after options
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	return s
}

// Start initializes and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting moderation service",
		logger.String("community", s.cfg.Community),
		logger.Bool("dryRun", s.cfg.DryRun),
	)

	if s.st == nil {
		st, err := store.Open(s.cfg.DBPath)
		if err != nil {
			return err
		}
		s.st = st
		s.ownsStore = true
	}

	if s.platform == nil {
		s.platform = reddit.NewClient(s.cfg.Community,
			reddit.WithBaseURL(s.cfg.BaseURL),
			reddit.WithUserAgent(s.cfg.UserAgent),
			reddit.WithToken(s.cfg.Token),
			reddit.WithPageSize(s.cfg.PageSize),
		)
	}

	auditor := audit.NewClient(s.st, nil)
	s.registry = debounce.NewRegistry(
		debounce.WithInterval(time.Duration(s.cfg.DebounceMinutes) * time.Minute),
	)
	s.histories = history.NewCache(s.st, s.platform, s.cfg.Community,
		history.WithStaleAfter(time.Duration(s.cfg.HistoryStaleHours)*time.Hour),
		history.WithOverlapWindow(time.Duration(s.cfg.HistoryOverlapDays)*24*time.Hour),
		history.WithEarlyBail(s.cfg.HistoryEarlyBail),
	)
	flairs := flair.NewFactory(s.platform, s.platform, auditor,
		flair.WithDryRun(s.cfg.DryRun),
	)
	s.engine = scoring.NewEngine(s.histories, flairs, auditor, s.registry, s.cfg.Community,
		scoring.WithTooNewAge(time.Duration(s.cfg.TooNewDays)*24*time.Hour),
		scoring.WithLookback(time.Duration(s.cfg.LookbackDays)*24*time.Hour),
		scoring.WithUserIgnoreList(s.cfg.UserIgnoreList),
		scoring.WithCategoryIgnoreList(s.cfg.CategoryIgnoreList),
	)

	s.queue = queue.NewPriorityQueue()
	s.rescanner = dispatch.NewRescanner(s.platform, s.queue, s.registry,
		dispatch.WithRescanInterval(time.Duration(s.cfg.RescanMinutes)*time.Minute),
	)
	s.dispatcher = dispatch.NewDispatcher(s.queue, s.engine,
		dispatch.WithWaker(s.rescanner),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.dispatcher.Run(runCtx)
	go s.rescanner.Run(runCtx)

	if client, ok := s.platform.(*reddit.Client); ok {
		s.poller = reddit.NewPoller(client, s.queue,
			reddit.WithPollInterval(time.Duration(s.cfg.PollSeconds)*time.Second),
		)
		go s.poller.Run(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "moderation service started",
		logger.Int("debounceMinutes", s.cfg.DebounceMinutes),
		logger.Int("rescanMinutes", s.cfg.RescanMinutes),
	)

	return nil
}

// Stop gracefully shuts down the pipeline.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping moderation service")

	if s.poller != nil {
		_ = s.poller.Shutdown(ctx)
	}
	_ = s.rescanner.Shutdown(ctx)
	_ = s.queue.Close()
	_ = s.dispatcher.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
	}
	if s.ownsStore {
		_ = s.st.Close()
	}

	s.started = false
	s.logger.Info(ctx, "moderation service stopped")
}

// Reflair re-evaluates one user immediately, bypassing the queue and the
// debounce gate.
func (s *Service) Reflair(ctx context.Context, username string) (scoring.Result, error) {
	return s.engine.Reflair(ctx, username, nil, nil)
}

// KnownUsernames lists users with a cached contribution history.
func (s *Service) KnownUsernames(ctx context.Context) ([]string, error) {
	names, err := s.histories.KnownUsernames(ctx)
	if err != nil {
		return nil, err
	}
	metrics.UpdateTrackedUsers(len(names))
	return names, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() api.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := api.Stats{
		Started:   s.started,
		Community: s.cfg.Community,
		DryRun:    s.cfg.DryRun,
	}

	if s.started {
		stats.LiveQueue = s.queue.LiveLen()
		stats.CatchUpQueue = s.queue.CatchUpLen()
		stats.MonitoringEpoch = s.registry.Epoch()
		stats.DebouncedUsers = s.registry.Len()
	}

	return stats
}

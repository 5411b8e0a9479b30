package reddit

import (
	"context"
	"time"

	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/pkg/logger"
)

// Default poller configuration constants.
const (
	defaultPollInterval = 15 * time.Second
	defaultSeenCapacity = 10000
)

// LiveEnqueuer accepts freshly observed content for immediate evaluation.
type LiveEnqueuer interface {
	EnqueueLive(e model.ContentEvent) bool
}

// Poller watches the community's live feeds and publishes unseen content as
// live events. Seen IDs are remembered so a slow consumer never receives the
// same content twice.
type Poller struct {
	client   *Client
	enqueuer LiveEnqueuer

	interval     time.Duration
	seen         map[string]struct{}
	seenOrder    []string
	seenCapacity int
	primed       bool

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPoller creates a poller with configuration options.
func NewPoller(client *Client, enqueuer LiveEnqueuer, opts ...PollerOption) *Poller {
	p := &Poller{
		client:       client,
		enqueuer:     enqueuer,
		interval:     defaultPollInterval,
		seen:         make(map[string]struct{}),
		seenCapacity: defaultSeenCapacity,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       nil, // resolved after options
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = logger.Get().Named("poller")
	}

	return p
}

// Run polls until ctx is canceled or Shutdown is called. The first poll only
// primes the seen set so restarts do not replay the whole feed as live work;
// the rescanner covers that backlog.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Shutdown stops the poller and waits for any in-flight poll.
func (p *Poller) Shutdown(ctx context.Context) error {
	close(p.shutdown)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return ctx.Err()
	}
}

// poll fetches the current activity snapshot and enqueues anything unseen.
func (p *Poller) poll(ctx context.Context) {
	events, err := p.client.CurrentActivity(ctx)
	if err != nil {
		p.logger.Error(ctx, "live poll failed", logger.Error(err))
		return
	}

	enqueued := 0
	for _, ev := range events {
		if _, dup := p.seen[ev.FullID]; dup {
			continue
		}
		p.remember(ev.FullID)
		if p.primed && p.enqueuer.EnqueueLive(ev) {
			enqueued++
		}
	}

	if !p.primed {
		p.primed = true
		p.logger.Info(ctx, "poller primed", logger.Int("seen", len(p.seen)))
		return
	}
	if enqueued > 0 {
		p.logger.Debug(ctx, "live events enqueued", logger.Int("events", enqueued))
	}
}

// remember records an ID, evicting oldest-first once capacity is reached.
func (p *Poller) remember(id string) {
	if len(p.seenOrder) >= p.seenCapacity {
		evict := p.seenOrder[0]
		p.seenOrder = p.seenOrder[1:]
		delete(p.seen, evict)
	}
	p.seen[id] = struct{}{}
	p.seenOrder = append(p.seenOrder, id)
}

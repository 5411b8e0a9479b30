package dispatch

import (
	"context"
	"time"

	"github.com/flairward/flairward/pkg/logger"
	"github.com/flairward/flairward/pkg/metrics"
)

// defaultRescanInterval bounds how long a flair edit can go unnoticed.
const defaultRescanInterval = 5 * time.Minute

// ActivitySource supplies the current community activity snapshot.
type ActivitySource interface {
	CurrentActivity(ctx context.Context) ([]Event, error)
}

// CatchUpEnqueuer accepts rescan events for background evaluation.
type CatchUpEnqueuer interface {
	EnqueueCatchUp(e Event) bool
}

// EpochAdvancer starts a new monitoring epoch before each rescan.
type EpochAdvancer interface {
	AdvanceEpoch() int64
}

// Rescanner periodically snapshots community activity and feeds it into the
// catch-up queue. Rescans never run closer together than the interval: a
// wake arriving before the next rescan is due is absorbed, so an idle
// dispatcher nudging once a second still yields one rescan per interval.
type Rescanner struct {
	source   ActivitySource
	enqueuer CatchUpEnqueuer
	registry EpochAdvancer

	interval time.Duration
	wake     chan struct{}

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRescanner creates a rescanner with configuration options.
func NewRescanner(source ActivitySource, enqueuer CatchUpEnqueuer, registry EpochAdvancer, opts ...RescanOption) *Rescanner {
	r := &Rescanner{
		source:   source,
		enqueuer: enqueuer,
		registry: registry,
		interval: defaultRescanInterval,
		wake:     make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   nil, // resolved after options
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logger.Get().Named("rescanner")
	}

	return r
}

// Wake nudges the rescanner. Wakes arriving before the next rescan is due
// are absorbed; pending requests collapse into a single run.
func (r *Rescanner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run performs an initial rescan and then loops until ctx is canceled or
// Shutdown is called.
func (r *Rescanner) Run(ctx context.Context) {
	defer close(r.done)

	r.rescan(ctx)
	nextAt := time.Now().Add(r.interval)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-timer.C:
		case <-r.wake:
			// The previous rescan is still warm; re-block until it is due.
			if time.Now().Before(nextAt) {
				continue
			}
		}

		r.rescan(ctx)
		nextAt = time.Now().Add(r.interval)

		// A wake that raced with the tick has already been served.
		select {
		case <-r.wake:
		default:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(r.interval)
	}
}

// Shutdown stops the rescanner and waits for any in-flight rescan.
func (r *Rescanner) Shutdown(ctx context.Context) error {
	close(r.shutdown)

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return ctx.Err()
	}
}

// rescan advances the monitoring epoch and enqueues the full activity
// snapshot as catch-up work.
func (r *Rescanner) rescan(ctx context.Context) {
	epoch := r.registry.AdvanceEpoch()
	metrics.RecordRescan()
	metrics.UpdateMonitoringEpoch(epoch)

	events, err := r.source.CurrentActivity(ctx)
	if err != nil {
		r.logger.Error(ctx, "activity snapshot failed",
			logger.Int64("epoch", epoch),
			logger.Error(err),
		)
		return
	}

	enqueued := 0
	for _, ev := range events {
		ev.CatchUp = true
		if r.enqueuer.EnqueueCatchUp(ev) {
			enqueued++
		}
	}

	r.logger.Info(ctx, "rescan enqueued",
		logger.Int64("epoch", epoch),
		logger.Int("events", enqueued),
	)
}

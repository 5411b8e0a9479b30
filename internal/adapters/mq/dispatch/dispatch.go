// Package dispatch runs the serial evaluation loop and the periodic rescanner.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/pkg/logger"
	"github.com/flairward/flairward/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultTakeTimeout      = time.Second
	defaultBacklogLogEvery  = 100
	dispatchShutdownTimeout = 10 * time.Second
)

// Event abstracts what the dispatcher reads off the queue.
type Event = model.ContentEvent

// Handler evaluates a single content event.
type Handler interface {
	HandleContent(ctx context.Context, ev Event) error
}

// Queue defines how the dispatcher receives events.
type Queue interface {
	Take(timeout time.Duration) (Event, bool)
	LiveLen() int
	CatchUpLen() int
	IsClosed() bool
}

// Waker receives idle notifications so the rescanner can run early.
type Waker interface {
	Wake()
}

// Dispatcher drains the queue on a single goroutine so evaluations for the
// same author never race each other.
type Dispatcher struct {
	queue   Queue
	handler Handler
	waker   Waker

	takeTimeout     time.Duration
	backlogLogEvery int
	handled         int

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue Queue, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:           queue,
		handler:         handler,
		takeTimeout:     defaultTakeTimeout,
		backlogLogEvery: defaultBacklogLogEvery,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
		logger:          nil, // resolved after options
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.Get().Named("dispatcher")
	}

	return d
}

// Run starts the dispatch loop until ctx is canceled or Shutdown is called.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		default:
		}

		event, ok := d.queue.Take(d.takeTimeout)
		if !ok {
			if d.queue.IsClosed() {
				return
			}
			// Idle with no backlog left means the catch-up pass finished;
			// let the rescanner start the next one early.
			if d.waker != nil && d.queue.CatchUpLen() == 0 {
				d.waker.Wake()
			}
			continue
		}

		d.processEvent(ctx, event)
	}
}

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, dispatchShutdownTimeout)
	defer cancel()

	select {
	case <-d.done:
		return nil
	case <-shutdownCtx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("dispatcher shutdown timed out: %w", shutdownCtx.Err())
	}
}

// processEvent handles a single event. Panics and errors from the handler are
// contained here so one poisoned event cannot stop the loop.
func (d *Dispatcher) processEvent(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordEventFailed()
			d.logger.Error(ctx, "panic while handling event",
				logger.String("fullID", event.FullID),
				logger.String("author", event.Author),
				logger.Any("panic", r),
			)
		}
	}()

	if err := d.handler.HandleContent(ctx, event); err != nil {
		metrics.RecordEventFailed()
		d.logger.Error(ctx, "error handling event",
			logger.String("fullID", event.FullID),
			logger.String("author", event.Author),
			logger.Error(err),
		)
		return
	}

	metrics.RecordEventHandled()
	d.handled++
	if d.backlogLogEvery > 0 && d.handled%d.backlogLogEvery == 0 {
		d.logger.Info(ctx, "dispatch progress",
			logger.Int("handled", d.handled),
			logger.Int("liveBacklog", d.queue.LiveLen()),
			logger.Int("catchUpBacklog", d.queue.CatchUpLen()),
		)
	}
}

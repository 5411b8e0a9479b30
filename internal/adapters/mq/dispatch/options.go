package dispatch

import (
	"time"

	"github.com/flairward/flairward/pkg/logger"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTakeTimeout sets how long the dispatcher blocks waiting for an event.
func WithTakeTimeout(d time.Duration) Option {
	return func(di *Dispatcher) {
		if d > 0 {
			di.takeTimeout = d
		}
	}
}

// WithWaker wires the idle notification target.
func WithWaker(w Waker) Option {
	return func(di *Dispatcher) {
		di.waker = w
	}
}

// WithBacklogLogEvery sets how many handled events pass between progress logs.
// Zero disables progress logging.
func WithBacklogLogEvery(n int) Option {
	return func(di *Dispatcher) {
		di.backlogLogEvery = n
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(di *Dispatcher) {
		di.logger = l
	}
}

// RescanOption configures a Rescanner.
type RescanOption func(*Rescanner)

// WithRescanInterval sets the interval between periodic rescans.
func WithRescanInterval(d time.Duration) RescanOption {
	return func(r *Rescanner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRescanLogger sets a custom logger for the rescanner.
func WithRescanLogger(l logger.Logger) RescanOption {
	return func(r *Rescanner) {
		r.logger = l
	}
}

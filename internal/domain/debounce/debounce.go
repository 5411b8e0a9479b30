// Package debounce tracks per-user evaluation eligibility.
//
// The registry is process-wide mutable state: it owns the monitoring epoch
// counter and a per-user record of the next time a full evaluation is
// allowed. It is explicitly constructed and passed into the dispatcher so
// tests can instantiate isolated copies.
package debounce

import (
	"sync"
	"time"
)

// Default registry configuration constants.
const (
	defaultInterval = 5 * time.Minute
)

// Verdict is the outcome of a gate lookup.
type Verdict int

// Gate outcomes.
const (
	// Evaluate means the user needs a full evaluation.
	Evaluate Verdict = iota
	// SkipDebounced means the user was evaluated too recently.
	SkipDebounced
	// SkipCatchUp means a catch-up event arrived for a user already
	// evaluated in the current epoch.
	SkipCatchUp
)

// Entry records one user's evaluation state. Entries are never removed,
// only superseded by later evaluations or epoch changes.
type Entry struct {
	Username       string
	NextEligibleAt time.Time
	LastSummary    string
	Epoch          int64
}

// Registry gates repeated evaluations of the same user.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]Entry
	epoch    int64
	interval time.Duration
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithInterval sets the debounce window between evaluations of one user.
func WithInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewRegistry creates a registry with configuration options.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]Entry),
		interval: defaultInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Gate decides whether an incoming event for username warrants a full
// evaluation. The returned entry carries the last summary for logging when
// the event is skipped.
//
// An entry from a different epoch always proceeds to evaluation; the epoch
// mismatch branch is a placeholder for future circumvention detection and
// deliberately does nothing else today.
func (r *Registry) Gate(username string, catchUp bool, now time.Time) (Verdict, Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.entries[username]
	if !ok {
		return Evaluate, Entry{}
	}

	if rec.Epoch != r.epoch {
		// TODO: detect flair circumvention across rescans here.
		return Evaluate, rec
	}

	if catchUp {
		return SkipCatchUp, rec
	}
	if !now.After(rec.NextEligibleAt) {
		return SkipDebounced, rec
	}
	return Evaluate, rec
}

// Record stores the outcome of a completed evaluation: the user becomes
// eligible again one interval from now, within the current epoch.
func (r *Registry) Record(username, summary string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[username] = Entry{
		Username:       username,
		NextEligibleAt: now.Add(r.interval),
		LastSummary:    summary,
		Epoch:          r.epoch,
	}
}

// AdvanceEpoch increments the monitoring epoch and returns the new value.
// Existing entries are logically superseded, never deleted.
func (r *Registry) AdvanceEpoch() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.epoch++
	return r.epoch
}

// Epoch returns the current monitoring epoch.
func (r *Registry) Epoch() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// Len returns the number of tracked users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

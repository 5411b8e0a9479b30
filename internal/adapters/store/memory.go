package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements KV and AuditSink in memory, for tests and dry
// runs.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]Entry // keyed by typ + "\x00" + key
	audits     []Entry
	dataPoints []DataPoint
	now        func() time.Time
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for assigned timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func compositeKey(typ, key string) string { return typ + "\x00" + key }

// Get fetches the entry for (typ, key).
func (m *MemoryStore) Get(ctx context.Context, typ, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[compositeKey(typ, key)]; ok {
		return e, nil
	}
	return Entry{Type: typ, Key: key}, nil
}

// Put upserts the value for (typ, key).
func (m *MemoryStore) Put(ctx context.Context, typ, key, value string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[compositeKey(typ, key)]
	if !ok {
		e = Entry{Type: typ, Key: key, CreatedAt: now}
	}
	e.Value = value
	e.UpdatedAt = now
	e.Existed = true
	m.entries[compositeKey(typ, key)] = e
	return e, nil
}

// Keys lists every key stored under typ.
func (m *MemoryStore) Keys(ctx context.Context, typ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for _, e := range m.entries {
		if e.Type == typ {
			keys = append(keys, e.Key)
		}
	}
	return keys, nil
}

// WriteAudit appends one audit record.
func (m *MemoryStore) WriteAudit(ctx context.Context, typ, subject, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audits = append(m.audits, Entry{Type: typ, Key: subject, Value: data, CreatedAt: m.now()})
	return nil
}

// WriteDataPoint appends one scoring data point.
func (m *MemoryStore) WriteDataPoint(ctx context.Context, p DataPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dataPoints = append(m.dataPoints, p)
	return nil
}

// Close is a no-op; it exists so MemoryStore can stand in for SQLiteStore.
func (m *MemoryStore) Close() error {
	return nil
}

// Audits returns a copy of the recorded audit entries.
func (m *MemoryStore) Audits() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.audits...)
}

// DataPoints returns a copy of the recorded scoring data points.
func (m *MemoryStore) DataPoints() []DataPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DataPoint(nil), m.dataPoints...)
}

// Package store provides the persistence contracts behind the key-value
// and audit abstractions, plus the SQLite implementation.
package store

import (
	"context"
	"time"
)

// Entry is one row of the key-value store. Existed reports whether the
// (type, key) pair was present; a Get for a missing pair returns a zero
// entry with Existed false rather than an error.
type Entry struct {
	Type      string
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Existed   bool
}

// KV provides typed key-value access. Put upserts and the store assigns
// UpdatedAt.
type KV interface {
	Get(ctx context.Context, typ, key string) (Entry, error)
	Put(ctx context.Context, typ, key, value string) (Entry, error)
	Keys(ctx context.Context, typ string) ([]string, error)
}

// DataPoint is one scoring evaluation outcome, persisted for analysis.
type DataPoint struct {
	Author            string
	FullID            string
	ShortText         string
	IsNewcomer        bool
	IsCatchUp         bool
	FlairChanged      bool
	CommunityScore    int
	TooNewScore       int
	TooNewCount       int
	RemovedScore      int
	RemovedCount      int
	CommunityAnalyzed int
	TotalAnalyzed     int
}

// AuditSink receives append-only audit records. Writes are fire-and-forget
// from the core's perspective; callers log failures and move on.
type AuditSink interface {
	WriteAudit(ctx context.Context, typ, subject, data string) error
	WriteDataPoint(ctx context.Context, p DataPoint) error
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvRecord is the kv_entries table: one value per (type, key).
type kvRecord struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"uniqueIndex:idx_kv_type_key;not null"`
	Key       string `gorm:"uniqueIndex:idx_kv_type_key;not null"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (kvRecord) TableName() string { return "kv_entries" }

// auditRecord is the append-only audit_entries table.
type auditRecord struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"index;not null"`
	Subject   string `gorm:"index"`
	Data      string
	CreatedAt time.Time
}

func (auditRecord) TableName() string { return "audit_entries" }

// dataPointRecord is the processed_content table of per-evaluation scoring
// outcomes.
type dataPointRecord struct {
	ID                string `gorm:"primaryKey"`
	Author            string `gorm:"index"`
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
	CreatedAt         time.Time
}

func (dataPointRecord) TableName() string { return "processed_content" }

// SQLiteStore implements KV and AuditSink over a gorm SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// Open establishes a SQLite connection and performs schema migrations.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrInvalidPath)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&kvRecord{}, &auditRecord{}, &dataPointRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get fetches the entry for (typ, key). A missing pair yields a zero entry
// with Existed false.
func (s *SQLiteStore) Get(ctx context.Context, typ, key string) (Entry, error) {
	var rec kvRecord
	err := s.db.WithContext(ctx).
		Where("type = ? AND key = ?", typ, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{Type: typ, Key: key}, nil
	}
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Type:      rec.Type,
		Key:       rec.Key,
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Existed:   true,
	}, nil
}

// Put upserts the value for (typ, key) and returns the stored entry with
// the database-assigned UpdatedAt.
func (s *SQLiteStore) Put(ctx context.Context, typ, key, value string) (Entry, error) {
	rec := kvRecord{
		ID:    uuid.NewString(),
		Type:  typ,
		Key:   key,
		Value: value,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return Entry{}, err
	}

	// Re-read for the authoritative timestamps after an upsert.
	return s.Get(ctx, typ, key)
}

// Keys lists every key stored under typ.
func (s *SQLiteStore) Keys(ctx context.Context, typ string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&kvRecord{}).
		Where("type = ?", typ).
		Pluck("key", &keys).Error
	return keys, err
}

// WriteAudit appends one audit record.
func (s *SQLiteStore) WriteAudit(ctx context.Context, typ, subject, data string) error {
	rec := auditRecord{
		ID:      uuid.NewString(),
		Type:    typ,
		Subject: subject,
		Data:    data,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// WriteDataPoint appends one scoring data point.
func (s *SQLiteStore) WriteDataPoint(ctx context.Context, p DataPoint) error {
	rec := dataPointRecord{
		ID:                uuid.NewString(),
		Author:            p.Author,
		FullID:            p.FullID,
		ShortText:         p.ShortText,
		IsNewcomer:        p.IsNewcomer,
		IsCatchUp:         p.IsCatchUp,
		FlairChanged:      p.FlairChanged,
		CommunityScore:    p.CommunityScore,
		TooNewScore:       p.TooNewScore,
		TooNewCount:       p.TooNewCount,
		RemovedScore:      p.RemovedScore,
		RemovedCount:      p.RemovedCount,
		CommunityAnalyzed: p.CommunityAnalyzed,
		TotalAnalyzed:     p.TotalAnalyzed,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Package records 持久化每次报告抽取的结果，并提供按报告类型的统计。
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shantu/internal/analysis/score"
	"shantu/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

// Store implements extraction storage using Gorm + SQLite.
type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("records store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&extractionModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		// WAL 下允许少量并发读，写入仍由 busy_timeout 排队
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for health checks.
func (s *Store) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("records store 未初始化")
	}
	return s.db.DB()
}

// Insert 写入一条抽取记录，ID 与 CreatedAt 为空时自动补齐，返回最终写入的记录。
func (s *Store) Insert(ctx context.Context, rec Record) (Record, error) {
	if s == nil || s.db == nil {
		return Record{}, fmt.Errorf("records store 未初始化")
	}
	if !rec.Kind.Valid() {
		return Record{}, fmt.Errorf("records: invalid kind %q", rec.Kind)
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Reference = strings.TrimSpace(rec.Reference)
	model, err := newExtractionModel(rec)
	if err != nil {
		return Record{}, err
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if s == nil || s.db == nil {
		return Record{}, fmt.Errorf("records store 未初始化")
	}
	var model extractionModel
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, err
	}
	return model.record()
}

// List returns the newest records first. An empty kind lists every kind.
func (s *Store) List(ctx context.Context, kind types.ReportKind, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("records store 未初始化")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("created_at DESC, id ASC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	var models []extractionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(models))
	for _, m := range models {
		rec, err := m.record()
		if err != nil {
			return nil, fmt.Errorf("records: decode %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LabelAverage 是单个标签在非兜底记录中的平均分。
type LabelAverage struct {
	Label   string  `json:"label"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

// KindStats 汇总某类报告的抽取质量。
type KindStats struct {
	Kind         types.ReportKind `json:"kind"`
	Reports      int64            `json:"reports"`
	Fallbacks    int64            `json:"fallbacks"`
	FallbackRate float64          `json:"fallback_rate"`
	Averages     []LabelAverage   `json:"averages"`
}

// Stats 统计 kind 的兜底率与各标签均分。兜底记录的分值是固定占位数据，不计入均分。
func (s *Store) Stats(ctx context.Context, kind types.ReportKind) (KindStats, error) {
	if s == nil || s.db == nil {
		return KindStats{}, fmt.Errorf("records store 未初始化")
	}
	if !kind.Valid() {
		return KindStats{}, fmt.Errorf("records: invalid kind %q", kind)
	}
	stats := KindStats{Kind: kind, Averages: []LabelAverage{}}
	db := s.db.WithContext(ctx).Model(&extractionModel{}).Where("kind = ?", string(kind))
	if err := db.Count(&stats.Reports).Error; err != nil {
		return KindStats{}, err
	}
	if stats.Reports == 0 {
		return stats, nil
	}
	if err := s.db.WithContext(ctx).Model(&extractionModel{}).
		Where("kind = ? AND fallback_used = ?", string(kind), true).
		Count(&stats.Fallbacks).Error; err != nil {
		return KindStats{}, err
	}
	stats.FallbackRate = decimal.NewFromInt(stats.Fallbacks).
		DivRound(decimal.NewFromInt(stats.Reports), 4).
		InexactFloat64()

	var models []extractionModel
	if err := s.db.WithContext(ctx).
		Select("id", "labels_json", "values_json").
		Where("kind = ? AND fallback_used = ?", string(kind), false).
		Find(&models).Error; err != nil {
		return KindStats{}, err
	}
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, m := range models {
		set, err := m.scores()
		if err != nil || set.Len() < 0 {
			continue
		}
		for i, label := range set.Labels {
			sums[label] = sums[label].Add(decimal.NewFromInt(int64(set.Values[i])))
			counts[label]++
		}
	}
	for _, label := range orderedLabels(kind, counts) {
		stats.Averages = append(stats.Averages, LabelAverage{
			Label:   label,
			Average: sums[label].DivRound(decimal.NewFromInt(int64(counts[label])), 2).InexactFloat64(),
			Samples: counts[label],
		})
	}
	return stats, nil
}

// orderedLabels 按词表顺序输出出现过的标签。
func orderedLabels(kind types.ReportKind, counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	seen := make(map[string]struct{}, len(counts))
	for _, label := range score.Labels(kind) {
		if counts[label] > 0 {
			out = append(out, label)
			seen[label] = struct{}{}
		}
	}
	var rest []string
	for label := range counts {
		if _, ok := seen[label]; !ok {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Package archive 保存渲染好的图表 PNG，供报告组装方按 ID 取回。
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("chart not found")

// Chart 是归档中的一张图。
type Chart struct {
	ID        string
	Kind      string
	Filename  string
	PNG       []byte
	CreatedAt time.Time
}

// Store 管理 chart_archive 表。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("archive store path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chart_archive (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			filename TEXT NOT NULL,
			png BLOB NOT NULL,
			size INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chart_archive_created ON chart_archive(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("archive schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("archive store 已关闭")
	}
	return s.db, nil
}

// Put 写入或覆盖一张图。
func (s *Store) Put(ctx context.Context, c Chart) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("archive: chart id 必填")
	}
	if len(c.PNG) == 0 {
		return fmt.Errorf("archive: chart %s is empty", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO chart_archive (id, kind, filename, png, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, filename=excluded.filename,
			png=excluded.png, size=excluded.size, created_at=excluded.created_at`,
		c.ID, c.Kind, c.Filename, c.PNG, len(c.PNG), c.CreatedAt.UnixMilli())
	return err
}

func (s *Store) Get(ctx context.Context, id string) (Chart, error) {
	db, err := s.conn()
	if err != nil {
		return Chart{}, err
	}
	var (
		c       Chart
		created int64
	)
	row := db.QueryRowContext(ctx, `SELECT id, kind, filename, png, created_at FROM chart_archive WHERE id = ?`, strings.TrimSpace(id))
	if err := row.Scan(&c.ID, &c.Kind, &c.Filename, &c.PNG, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chart{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Chart{}, err
	}
	c.CreatedAt = time.UnixMilli(created)
	return c, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM chart_archive WHERE id = ?`, strings.TrimSpace(id))
	return err
}

// Prune 删除早于 before 的图，返回删除数量。
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM chart_archive WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

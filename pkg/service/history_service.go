package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tweet-verify/config"
	"tweet-verify/pkg/db"
	"tweet-verify/pkg/model"
)

// HistoryStore 是分析记录的存储
type HistoryStore interface {
	Save(ctx context.Context, record *model.AnalysisRecord) error
	// Recent 按时间倒序返回最近 limit 条记录
	Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error)
}

// HistoryService 写入配置的存储，失败时退回内存存储
type HistoryService struct {
	primary  HistoryStore
	fallback *MemoryHistoryStore
	limit    int
	// closer 释放 primary 打开的连接
	closer func() error
}

// NewHistoryService 按配置初始化存储，初始化失败时只使用内存存储
func NewHistoryService(cfg *config.GlobalConfig) *HistoryService {
	s := &HistoryService{
		fallback: NewMemoryHistoryStore(),
		limit:    cfg.History.Limit,
	}
	primary, closer, err := openHistoryStore(cfg)
	if err != nil {
		zap.S().Warnf("历史存储 %s 初始化失败，使用内存存储: %v", cfg.History.Driver, err)
		primary = s.fallback
	}
	s.primary = primary
	s.closer = closer
	return s
}

// NewHistoryServiceWithStore 使用指定存储
func NewHistoryServiceWithStore(store HistoryStore, limit int) *HistoryService {
	return &HistoryService{
		primary:  store,
		fallback: NewMemoryHistoryStore(),
		limit:    limit,
	}
}

func openHistoryStore(cfg *config.GlobalConfig) (HistoryStore, func() error, error) {
	ctx := context.Background()
	switch cfg.History.Driver {
	case config.HistoryDriverDuckDB:
		if err := db.InitDuckDB(cfg.DuckDBConfig); err != nil {
			return nil, nil, err
		}
		store, err := NewDuckDBHistoryStore(ctx, db.GetDuckDB())
		if err != nil {
			db.CloseDuckDB()
			return nil, nil, err
		}
		if count, err := store.Count(ctx); err == nil {
			zap.S().Infof("DuckDB 中已有 %d 条分析记录", count)
		}
		return store, db.CloseDuckDB, nil
	case config.HistoryDriverMySQL:
		if err := db.InitMySQL(cfg.MySQLConfig); err != nil {
			return nil, nil, err
		}
		store, err := NewGormHistoryStore(db.GetMySQLWithContext(ctx))
		if err != nil {
			db.CloseMySQL()
			return nil, nil, err
		}
		return store, db.CloseMySQL, nil
	case config.HistoryDriverMemory:
		return NewMemoryHistoryStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("不支持的历史存储类型: %s", cfg.History.Driver)
}

// Close 关闭打开的存储连接，内存存储无需关闭
func (s *HistoryService) Close() error {
	if s.closer == nil {
		return nil
	}
	closer := s.closer
	s.closer = nil
	return closer()
}

// Save 保存记录，主存储失败时写入内存
func (s *HistoryService) Save(ctx context.Context, record *model.AnalysisRecord) error {
	if err := s.primary.Save(ctx, record); err != nil {
		zap.S().Warnf("保存分析记录失败，使用内存存储: %v", err)
		return s.fallback.Save(ctx, record)
	}
	return nil
}

// Recent 查询最近的记录，limit <= 0 时使用配置的默认条数
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = s.limit
	}
	records, err := s.primary.Recent(ctx, limit)
	if err != nil {
		zap.S().Warnf("查询分析记录失败，使用内存存储: %v", err)
		return s.fallback.Recent(ctx, limit)
	}
	return records, nil
}

// MemoryHistoryStore 是进程内存储
type MemoryHistoryStore struct {
	mu      sync.Mutex
	records []model.AnalysisRecord
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

func (m *MemoryHistoryStore) Save(_ context.Context, record *model.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *MemoryHistoryStore) Recent(_ context.Context, limit int) ([]model.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AnalysisRecord, len(m.records))
	copy(out, m.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DuckDBHistoryStore 将记录存入 DuckDB 的 analysis_history 表
type DuckDBHistoryStore struct {
	conn *sql.DB
}

// NewDuckDBHistoryStore 创建表（如不存在）
func NewDuckDBHistoryStore(ctx context.Context, conn *sql.DB) (*DuckDBHistoryStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("DuckDB 连接未初始化")
	}
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS analysis_history (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			is_fake_news BOOLEAN NOT NULL,
			confidence_score DOUBLE NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`
	if _, err := conn.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("创建表失败: %v", err)
	}
	zap.S().Debug("DuckDB 表创建成功")
	return &DuckDBHistoryStore{conn: conn}, nil
}

func (d *DuckDBHistoryStore) Save(ctx context.Context, record *model.AnalysisRecord) error {
	insertSQL := `
		INSERT INTO analysis_history (id, text, is_fake_news, confidence_score, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := d.conn.ExecContext(ctx, insertSQL,
		record.ID,
		record.Text,
		record.IsFakeNews,
		record.ConfidenceScore,
		record.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("插入数据失败: %v", err)
	}
	return nil
}

func (d *DuckDBHistoryStore) Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	query := `SELECT id, text, is_fake_news, confidence_score, created_at
		FROM analysis_history
		ORDER BY created_at DESC
		LIMIT ?`
	rows, err := d.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("查询数据失败: %v", err)
	}
	defer rows.Close()

	records := make([]model.AnalysisRecord, 0, limit)
	for rows.Next() {
		var r model.AnalysisRecord
		if err := rows.Scan(&r.ID, &r.Text, &r.IsFakeNews, &r.ConfidenceScore, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("扫描记录失败: %v", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count 返回记录总数
func (d *DuckDBHistoryStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_history").Scan(&count); err != nil {
		return 0, fmt.Errorf("查询数量失败: %v", err)
	}
	return count, nil
}

// GormHistoryStore 通过 gorm 存储记录，读请求由 dbresolver 路由到副本
type GormHistoryStore struct {
	db *gorm.DB
}

// NewGormHistoryStore 自动迁移 analysis_history 表
func NewGormHistoryStore(conn *gorm.DB) (*GormHistoryStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("MySQL 连接未初始化")
	}
	if err := conn.AutoMigrate(&model.AnalysisRecord{}); err != nil {
		return nil, fmt.Errorf("迁移 analysis_history 表失败: %v", err)
	}
	return &GormHistoryStore{db: conn}, nil
}

func (g *GormHistoryStore) Save(ctx context.Context, record *model.AnalysisRecord) error {
	return g.db.WithContext(ctx).Create(record).Error
}

func (g *GormHistoryStore) Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	var records []model.AnalysisRecord
	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

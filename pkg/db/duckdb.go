package db

import (
	"database/sql"
	"sync"

	"tweet-verify/config"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	duckDBMu sync.Mutex
	duckDB   *sql.DB
)

// InitDuckDB 初始化全局 duckdb 连接，已初始化时直接返回；CloseDuckDB 之后可以重新初始化
func InitDuckDB(cfg *config.DuckDBConfig) error {
	duckDBMu.Lock()
	defer duckDBMu.Unlock()
	if duckDB != nil {
		return nil
	}
	conn, err := OpenDuckDB(cfg.DSN())
	if err != nil {
		zap.S().Errorf("连接 duckdb 失败: %v", err)
		return err
	}
	duckDB = conn
	zap.S().Debugf("duckdb 初始化完成: %s", cfg.DSN())
	return nil
}

// OpenDuckDB 打开一个新的 duckdb 连接并测试连通性
func OpenDuckDB(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "打开 duckdb 失败")
	}
	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "duckdb 连接测试失败")
	}
	return conn, nil
}

// GetDuckDB 获取 DuckDB 连接，未初始化时返回 nil
func GetDuckDB() *sql.DB {
	duckDBMu.Lock()
	defer duckDBMu.Unlock()
	return duckDB
}

// CloseDuckDB 关闭全局 DuckDB 连接，未初始化时什么也不做
func CloseDuckDB() error {
	duckDBMu.Lock()
	defer duckDBMu.Unlock()
	if duckDB == nil {
		return nil
	}
	err := duckDB.Close()
	duckDB = nil
	if err != nil {
		return errors.Wrap(err, "关闭 duckdb 失败")
	}
	return nil
}

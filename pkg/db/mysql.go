package db

import (
	"context"
	"sync"

	"tweet-verify/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var (
	mysqlMu sync.Mutex
	mysqlDB *gorm.DB
)

// InitMySQL 初始化 MySQL 连接，配置了副本时读请求由 dbresolver 路由到副本
func InitMySQL(cfg *config.MySQLConfig) error {
	mysqlMu.Lock()
	defer mysqlMu.Unlock()
	if mysqlDB != nil {
		return nil
	}

	conn, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return errors.Wrap(err, "连接 MySQL 失败")
	}

	if len(cfg.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.Replicas))
		for _, dsn := range cfg.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if cfg.MaxOpenConns > 0 {
			resolver = resolver.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			resolver = resolver.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if err := conn.Use(resolver); err != nil {
			closeGorm(conn)
			return errors.Wrap(err, "注册 MySQL 副本失败")
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return errors.Wrap(err, "获取 MySQL 连接池失败")
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	mysqlDB = conn
	zap.S().Debugf("MySQL 初始化完成, 副本数: %d", len(cfg.Replicas))
	return nil
}

// GetMySQLWithContext 获取带上下文的 MySQL 连接
func GetMySQLWithContext(ctx context.Context) *gorm.DB {
	mysqlMu.Lock()
	defer mysqlMu.Unlock()
	if mysqlDB == nil {
		return nil
	}
	return mysqlDB.WithContext(ctx)
}

// CloseMySQL 关闭主库连接池，未初始化时什么也不做
func CloseMySQL() error {
	mysqlMu.Lock()
	defer mysqlMu.Unlock()
	if mysqlDB == nil {
		return nil
	}
	err := closeGorm(mysqlDB)
	mysqlDB = nil
	return err
}

func closeGorm(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return errors.Wrap(err, "获取 MySQL 连接池失败")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrap(err, "关闭 MySQL 失败")
	}
	return nil
}

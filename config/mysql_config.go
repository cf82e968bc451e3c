package config

import (
	"github.com/pkg/errors"
)

type MySQLConfig struct {
	DSN          string   `json:"dsn" yaml:"dsn"`                   // 主库连接串
	Replicas     []string `json:"replicas" yaml:"replicas"`         // 只读副本连接串，查询历史时使用
	MaxOpenConns int      `json:"maxOpenConns" yaml:"maxOpenConns"` // 最大连接数
	MaxIdleConns int      `json:"maxIdleConns" yaml:"maxIdleConns"` // 最大空闲连接数
}

func (m *MySQLConfig) Validate() []error {
	var errs = make([]error, 0)
	if m.DSN == "" {
		errs = append(errs, errors.New("MySQL dsn 不能为空"))
	}
	if m.MaxOpenConns < 0 || m.MaxIdleConns < 0 {
		errs = append(errs, errors.New("MySQL 连接池参数不能为负数"))
	}
	return errs
}

func NewDefaultMySQLConfig() *MySQLConfig {
	return &MySQLConfig{
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}
}

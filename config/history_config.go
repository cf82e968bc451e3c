package config

import (
	"github.com/pkg/errors"
)

const (
	HistoryDriverDuckDB = "duckdb"
	HistoryDriverMySQL  = "mysql"
	HistoryDriverMemory = "memory"
)

type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"` // analyze 命令是否记录结果
	Driver  string `json:"driver" yaml:"driver"`   // duckdb / mysql / memory
	Limit   int    `json:"limit" yaml:"limit"`     // 默认查询条数
}

func (h *HistoryConfig) Validate() []error {
	var errs = make([]error, 0)
	switch h.Driver {
	case HistoryDriverDuckDB, HistoryDriverMySQL, HistoryDriverMemory:
	default:
		errs = append(errs, errors.Errorf("不支持的历史存储类型: %q", h.Driver))
	}
	if h.Limit <= 0 {
		errs = append(errs, errors.Errorf("history.limit 必须大于 0，当前为 %d", h.Limit))
	}
	return errs
}

func NewDefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Enabled: false,
		Driver:  HistoryDriverDuckDB,
		Limit:   10,
	}
}

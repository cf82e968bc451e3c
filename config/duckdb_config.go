package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DuckDBMemoryPath 表示不落盘的内存数据库，进程退出后历史记录丢失
const DuckDBMemoryPath = ":memory:"

// DuckDBConfig 是 history.driver=duckdb 时的存储配置
type DuckDBConfig struct {
	DBPath string `json:"dbPath" yaml:"dbPath"` // 历史记录数据库文件，或 :memory:
}

// Validate 检查路径并创建所在目录
func (d *DuckDBConfig) Validate() []error {
	var errs = make([]error, 0)
	switch {
	case d.DBPath == "":
		return append(errs, errors.New("duckdb.dbPath 不能为空"))
	case d.InMemory():
		return errs
	}

	if info, err := os.Stat(d.DBPath); err == nil && info.IsDir() {
		return append(errs, errors.Errorf("duckdb.dbPath 不能是目录: %s", d.DBPath))
	}
	if err := os.MkdirAll(filepath.Dir(d.DBPath), 0755); err != nil {
		errs = append(errs, errors.Errorf("创建历史记录目录失败: %v", err))
	}
	return errs
}

// InMemory 判断是否使用内存数据库
func (d *DuckDBConfig) InMemory() bool {
	return d.DBPath == DuckDBMemoryPath
}

// DSN 返回 duckdb 驱动的连接串，内存数据库为空串
func (d *DuckDBConfig) DSN() string {
	if d.InMemory() {
		return ""
	}
	return d.DBPath
}

func NewDefaultDuckDBConfig() *DuckDBConfig {
	return &DuckDBConfig{
		DBPath: "./data/history.duckdb",
	}
}

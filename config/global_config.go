package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultConfigFilePath 是未指定 --config 时尝试读取的配置文件
const DefaultConfigFilePath = "./etc/config.yaml"

type IConfig interface {
	Validate() []error
}

type GlobalConfig struct {
	Model        *ModelConfig   `json:"model" yaml:"model"`
	History      *HistoryConfig `json:"history" yaml:"history"`
	DuckDBConfig *DuckDBConfig  `json:"duckdb" yaml:"duckdb"`
	MySQLConfig  *MySQLConfig   `json:"mysql" yaml:"mysql"`
	Server       *ServerConfig  `json:"server" yaml:"server"`
	Log          *LogConfig     `json:"log" yaml:"log"`
}

func (g *GlobalConfig) Validate() []error {
	var errs = make([]error, 0)
	if g.Model == nil || g.History == nil || g.Log == nil {
		return append(errs, errors.New("model / history / log 配置不能为空"))
	}
	for _, c := range []IConfig{g.Model, g.History, g.Log} {
		if es := c.Validate(); len(es) > 0 {
			errs = append(errs, es...)
		}
	}
	// 只有启用历史记录时才校验存储配置，避免在磁盘上创建目录
	if g.History.Enabled {
		switch g.History.Driver {
		case HistoryDriverDuckDB:
			if g.DuckDBConfig == nil {
				errs = append(errs, errors.New("DuckDB 配置未设置"))
			} else {
				errs = append(errs, g.DuckDBConfig.Validate()...)
			}
		case HistoryDriverMySQL:
			if g.MySQLConfig == nil {
				errs = append(errs, errors.New("MySQL 配置未设置"))
			} else {
				errs = append(errs, g.MySQLConfig.Validate()...)
			}
		}
	}
	return errs
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Model:        NewDefaultModelConfig(),
		History:      NewDefaultHistoryConfig(),
		DuckDBConfig: NewDefaultDuckDBConfig(),
		MySQLConfig:  NewDefaultMySQLConfig(),
		Server:       NewDefaultServerConfig(),
		Log:          NewDefaultLogConfig(),
	}
}

// TryLoadFromDisk 只读取配置文件，不受环境变量影响
func TryLoadFromDisk(configFilePath string) (*GlobalConfig, error) {
	return tryLoadFromDisk(configFilePath, false)
}

func tryLoadFromDisk(configFilePath string, withEnv bool) (*GlobalConfig, error) {
	_, err := os.Stat(configFilePath)
	if err != nil {
		return nil, err
	}
	dir, file := filepath.Split(configFilePath)
	fileType := strings.TrimPrefix(filepath.Ext(file), ".")
	if fileType == "yml" {
		fileType = "yaml"
	}
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(strings.TrimSuffix(file, filepath.Ext(file)))
	v.SetConfigType(fileType)
	if withEnv {
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	}
	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
		return nil, errors.Errorf("解析配置文件错误:%s", err.Error())
	}
	cfg := NewDefaultGlobalConfig()
	if err := v.Unmarshal(cfg, func(config *mapstructure.DecoderConfig) {
		config.TagName = fileType
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load 读取配置文件。path 为空时尝试默认路径，默认文件不存在则使用默认配置
func Load(path string) (*GlobalConfig, error) {
	return load(path, false)
}

// LoadWithEnv 同 Load，配置文件中已有的项可以被同名环境变量覆盖（如 SERVER_ADDR），只供 serve 使用
func LoadWithEnv(path string) (*GlobalConfig, error) {
	return load(path, true)
}

func load(path string, withEnv bool) (*GlobalConfig, error) {
	if path != "" {
		return tryLoadFromDisk(path, withEnv)
	}
	cfg, err := tryLoadFromDisk(DefaultConfigFilePath, withEnv)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultGlobalConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

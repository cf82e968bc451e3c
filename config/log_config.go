package config

import (
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`             // debug / info / warn / error
	Development bool   `json:"development" yaml:"development"` // 开发模式输出彩色文本日志
}

func (l *LogConfig) Validate() []error {
	var errs = make([]error, 0)
	if l.Level == "" {
		return errs
	}
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		errs = append(errs, errors.Errorf("日志级别错误: %s", l.Level))
	}
	return errs
}

// 为空时由各子命令决定默认级别
func NewDefaultLogConfig() *LogConfig {
	return &LogConfig{}
}

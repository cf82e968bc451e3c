// Package logger 初始化全局 zap 日志，日志只写到 stderr，stdout 留给 JSON 输出
package logger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init 按级别构建 logger 并替换全局 logger
func Init(level string, development bool) error {
	lvl := zapcore.WarnLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return errors.Wrapf(err, "日志级别错误: %s", level)
		}
		lvl = parsed
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "初始化日志失败")
	}
	zap.ReplaceGlobals(l)
	return nil
}

// InitDefault 在读取配置前使用 warn 级别的日志
func InitDefault() {
	if err := Init("", false); err != nil {
		zap.ReplaceGlobals(zap.NewNop())
	}
}

// Sync 刷新全局 logger 缓冲
func Sync() {
	_ = zap.L().Sync()
}

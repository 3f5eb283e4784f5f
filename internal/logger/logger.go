// Package logger 基于zap构建应用日志器。
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建应用日志器。
// dev环境默认使用console编码便于阅读，其他环境使用json编码。
func New(env, level, encoding, appName, version string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		if encoding != "" {
			cfg.Encoding = encoding
		}
	} else {
		cfg = zap.NewProductionConfig()
		if encoding != "" {
			cfg.Encoding = encoding
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	lg, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return lg.With(
		zap.String("app", appName),
		zap.String("version", version),
	), nil
}

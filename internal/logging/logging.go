// Package logging builds the zap logger shared by the CLI and the server.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/letieu/strategia/config"
)

// New returns a production logger writing JSON to stderr. verbose forces
// debug level. When cfg.Log.File is set, entries are also written to that
// file and rotated by size.
func New(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Log.File == "" {
		return zc.Build()
	}

	enc := zapcore.NewJSONEncoder(zc.EncoderConfig)
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	})
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zc.Level),
		zapcore.NewCore(enc, file, zc.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

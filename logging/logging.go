// Package logging builds the structured logger every facet accepts
// optionally (spec §9: its absence must never change behavior, only
// observability). Grounded on buildLogger's zap.Config-based
// construction in the pack, extended to tee to a rotated file when
// configured.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Level is a zapcore level name: "debug", "info", "warn", "error".
	Level string
	// Format selects zap.NewDevelopmentConfig's console encoder when
	// "console", otherwise the production JSON encoder.
	Format string
	// FilePath, if non-empty, tees output to a lumberjack-rotated file
	// alongside stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Build constructs a *zap.SugaredLogger from cfg. A zero Config yields
// an info-level, production-JSON, stderr-only logger.
func Build(cfg Config) (*zap.SugaredLogger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}

	var encCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapLevel),
	}
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), zapLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger.Sugar(), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Tracer adapts a SugaredLogger to the func(string, ...any) shape
// router.SetLogger and scheduler.SetLogger expect, so their Debug
// trace lines land as structured zap Debugf calls.
func Tracer(log *zap.SugaredLogger) func(string, ...any) {
	return func(format string, args ...any) { log.Debugf(format, args...) }
}


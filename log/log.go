// Package log builds the zap loggers the orchestration layers share. The
// command builder itself never logs; everything that spawns processes or
// touches disk receives a named child of one logger built here.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log output goes and how much of it there is.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `json:"level"`
	// File receives a rotated JSON copy of the output when set.
	File string `json:"file"`
	// JSON switches the terminal sink from console to JSON encoding.
	JSON bool `json:"json"`
	// NoTerminal suppresses the stderr sink, for service-style runs that
	// only want the file.
	NoTerminal bool     `json:"noTerminal"`
	Rotation   Rotation `json:"rotation"`
}

// Rotation bounds the size and age of the log file.
type Rotation struct {
	MaxSize    int  `json:"maxSize"` // megabytes
	MaxBackups int  `json:"maxBackups"`
	MaxAge     int  `json:"maxAge"` // days
	Compress   bool `json:"compress"`
}

// DefaultRotation keeps at most five 128 MB files for sixteen days.
var DefaultRotation = Rotation{
	MaxSize:    128,
	MaxBackups: 5,
	MaxAge:     16,
}

// New builds a logger from cfg. With neither a terminal nor a file sink the
// returned logger discards everything.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if !cfg.NoTerminal {
		enc := zapcore.NewConsoleEncoder(encCfg)
		if cfg.JSON {
			enc = zapcore.NewJSONEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level))
	}

	if cfg.File != "" {
		rotation := cfg.Rotation
		if rotation == (Rotation{}) {
			rotation = DefaultRotation
		}
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    rotation.MaxSize,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Package logging builds the prefixed loggers handed to long-running
// components. CLI commands log to stderr; serve mode can redirect to a
// size-rotated file so a daemon left running for months cannot fill
// the disk.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig tunes the rolling log file. Zero values take defaults.
type FileConfig struct {
	Path       string
	MaxSizeMB  int // rotate after this size, default 10
	MaxBackups int // rotated files to keep, default 3
	MaxAgeDays int // drop rotated files older than this, default 28
}

// New returns a prefixed logger on w with the standard timestamp flags.
func New(w io.Writer, prefix string) *log.Logger {
	return log.New(w, prefix, log.LstdFlags)
}

// NewStderr returns a prefixed logger on stderr.
func NewStderr(prefix string) *log.Logger {
	return New(os.Stderr, prefix)
}

// NewRolling returns a prefixed logger writing to a rotated file,
// creating the parent directory as needed. The caller owns the
// returned closer and closes it on shutdown.
func NewRolling(cfg FileConfig, prefix string) (*log.Logger, io.Closer, error) {
	if cfg.Path == "" {
		return nil, nil, fmt.Errorf("log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 28
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}

	return New(w, prefix), w, nil
}

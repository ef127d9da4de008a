// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-textsign.
//
// go-textsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig describes a size-rotated log file. Zero values take the
// lumberjack defaults: 100 MB per file, every backup kept forever.
type RotationConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingWriter opens a rotating log file, creating its directory.
// The caller closes the writer on shutdown.
func NewRotatingWriter(cfg RotationConfig) (io.WriteCloser, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("logging: log file name is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o750); err != nil {
		return nil, fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

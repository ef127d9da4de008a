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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "textsign.log")

	w, err := NewRotatingWriter(RotationConfig{Filename: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log, err := NewSlogAdapter(&Config{Output: w, Format: "json"})
	require.NoError(t, err)
	log.Info("server started", String("address", "127.0.0.1:8443"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"server started"`)
	assert.Contains(t, string(data), `"address":"127.0.0.1:8443"`)
}

func TestNewRotatingWriter_RequiresFilename(t *testing.T) {
	_, err := NewRotatingWriter(RotationConfig{})
	assert.Error(t, err)
}

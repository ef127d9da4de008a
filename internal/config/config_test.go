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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-textsign/pkg/crypto/rand"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textsign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8443", cfg.Address())
	assert.Equal(t, scheme.Blake3, cfg.DefaultScheme())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, rand.ModeAuto, cfg.RNGConfig().Mode)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
  read_timeout: 3s
logging:
  level: debug
  format: json
  file: /var/log/textsign.log
  max_backups: 3
keystore:
  backend: file
  path: /var/lib/textsign
ratelimit:
  enabled: true
  requests_per_min: 30
signing:
  default_scheme: ed25519
  rng: software
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset fields keep defaults")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/log/textsign.log", cfg.Logging.File)
	assert.Equal(t, 3, cfg.Logging.MaxBackups)
	assert.Equal(t, "file", cfg.Keystore.Backend)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMin)
	assert.Equal(t, scheme.Ed25519, cfg.DefaultScheme())
	assert.Equal(t, rand.ModeSoftware, cfg.RNGConfig().Mode)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeConfig(t, "signing:\n  default_scheme: rsa\n"))
	assert.ErrorIs(t, err, scheme.ErrUnknownScheme)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEXTSIGN_HOST", "10.0.0.1")
	t.Setenv("TEXTSIGN_PORT", "7000")
	t.Setenv("TEXTSIGN_LOG_LEVEL", "warn")
	t.Setenv("TEXTSIGN_LOG_FORMAT", "json")
	t.Setenv("TEXTSIGN_LOG_FILE", "/var/log/textsign.log")
	t.Setenv("TEXTSIGN_KEYSTORE_BACKEND", "file")
	t.Setenv("TEXTSIGN_KEYSTORE_PATH", "/tmp/keys")
	t.Setenv("TEXTSIGN_METRICS_ENABLED", "false")
	t.Setenv("TEXTSIGN_RATELIMIT_ENABLED", "true")
	t.Setenv("TEXTSIGN_RATELIMIT_REQUESTS_PER_MIN", "5")
	t.Setenv("TEXTSIGN_DEFAULT_SCHEME", "ED25519")
	t.Setenv("TEXTSIGN_RNG", "Software")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:7000", cfg.Address())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/log/textsign.log", cfg.Logging.File)
	assert.Equal(t, "/tmp/keys", cfg.Keystore.Path)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerMin)
	assert.Equal(t, scheme.Ed25519, cfg.DefaultScheme())
	assert.Equal(t, rand.ModeSoftware, cfg.RNGConfig().Mode)
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("TEXTSIGN_PORT", "99999")
	t.Setenv("TEXTSIGN_METRICS_ENABLED", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "invalid port"},
		{"body cap", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"log rotation", func(c *Config) { c.Logging.MaxBackups = -1 }, "rotation"},
		{"file keystore without path", func(c *Config) { c.Keystore.Backend = "file" }, "keystore path"},
		{"keystore backend", func(c *Config) { c.Keystore.Backend = "s3" }, "invalid keystore backend"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics path"},
		{"ratelimit", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.RequestsPerMin = 0 }, "requests_per_min"},
		{"scheme", func(c *Config) { c.Signing.DefaultScheme = "" }, "invalid default scheme"},
		{"rng", func(c *Config) { c.Signing.RNG = "tpm2" }, "invalid rng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

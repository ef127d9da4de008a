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

// Package config loads the textsign service configuration from YAML with
// TEXTSIGN_* environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-textsign/pkg/crypto/rand"
	"github.com/jeremyhahn/go-textsign/pkg/logging"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TEXTSIGN_"

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Keystore  KeystoreConfig  `yaml:"keystore"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Signing   SigningConfig   `yaml:"signing"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies; messages are buffered in full.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// File, when set, sends service logs to a size-rotated file instead
	// of stderr. Zero rotation values take the rotation library defaults.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// KeystoreConfig selects where generated keys are kept
type KeystoreConfig struct {
	Backend string `yaml:"backend"` // file or memory
	Path    string `yaml:"path"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RateLimitConfig controls rate limiting
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

// SigningConfig holds signing defaults
type SigningConfig struct {
	DefaultScheme string `yaml:"default_scheme"`

	// RNG selects the random source for key generation (auto or software).
	RNG string `yaml:"rng"`
}

// Default returns a configuration that validates without a file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8443,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Keystore: KeystoreConfig{
			Backend: "memory",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerMin: 600,
		},
		Signing: SigningConfig{
			DefaultScheme: scheme.Blake3.String(),
			RNG:           string(rand.ModeAuto),
		},
	}
}

// Load reads configuration from a YAML file on top of Default, then
// applies environment variable overrides and validates. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv(EnvPrefix + "HOST"); host != "" {
		cfg.Server.Host = host
	}
	if v := os.Getenv(EnvPrefix + "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			log.Printf("Warning: invalid %sPORT value %q, using %d", EnvPrefix, v, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv(EnvPrefix + "KEYSTORE_BACKEND"); v != "" {
		cfg.Keystore.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "KEYSTORE_PATH"); v != "" {
		cfg.Keystore.Path = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		} else {
			log.Printf("Warning: invalid %sMETRICS_ENABLED value %q: %v", EnvPrefix, v, err)
		}
	}
	if v := os.Getenv(EnvPrefix + "RATELIMIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RateLimit.Enabled = b
		} else {
			log.Printf("Warning: invalid %sRATELIMIT_ENABLED value %q: %v", EnvPrefix, v, err)
		}
	}
	if v := os.Getenv(EnvPrefix + "RATELIMIT_REQUESTS_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.RequestsPerMin = n
		} else {
			log.Printf("Warning: invalid %sRATELIMIT_REQUESTS_PER_MIN value %q", EnvPrefix, v)
		}
	}
	if v := os.Getenv(EnvPrefix + "DEFAULT_SCHEME"); v != "" {
		cfg.Signing.DefaultScheme = v
	}
	if v := os.Getenv(EnvPrefix + "RNG"); v != "" {
		cfg.Signing.RNG = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation settings cannot be negative")
	}

	switch c.Keystore.Backend {
	case "memory":
	case "file":
		if c.Keystore.Path == "" {
			return fmt.Errorf("keystore path is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid keystore backend: %q (must be file or memory)", c.Keystore.Backend)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %q", c.Metrics.Path)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("ratelimit requests_per_min must be positive when enabled")
	}

	if _, err := scheme.Parse(c.Signing.DefaultScheme); err != nil {
		return fmt.Errorf("invalid default scheme: %w", err)
	}

	rng, err := rand.NewResolver(c.RNGConfig())
	if err != nil {
		return fmt.Errorf("invalid rng: %w", err)
	}
	_ = rng.Close()

	return nil
}

// Address returns host:port for the listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DefaultScheme returns the parsed default scheme. It is only meaningful
// after Validate has succeeded.
func (c *Config) DefaultScheme() scheme.Scheme {
	s, err := scheme.Parse(c.Signing.DefaultScheme)
	if err != nil {
		return scheme.Blake3
	}
	return s
}

// RNGConfig returns the random source settings for rand.NewResolver.
func (c *Config) RNGConfig() *rand.Config {
	return &rand.Config{Mode: rand.Mode(strings.ToLower(c.Signing.RNG))}
}

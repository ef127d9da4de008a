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

// Package rand provides the random number source used for key generation.
//
// # Overview
//
// Key material must come from a cryptographically secure generator. The
// Resolver interface hides which generator is in use so that key
// generation code never reaches for math/rand or a fixed buffer by
// accident:
//
//	rng, _ := rand.NewResolver(rand.ModeSoftware)
//	seed, _ := rng.Rand(32)
//
// # Sources
//
//   - Auto: the best available source. This build has no hardware sources,
//     so auto resolves to software.
//   - Software: crypto/rand from the standard library.
//
// The mode comes from the signing.rng setting for the REST service and
// from --rng for text generate.
//
// # Thread Safety
//
// The software resolver is safe for concurrent use.
package rand

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrShortRead indicates the source returned fewer bytes than requested.
	ErrShortRead = errors.New("rand: short read from random source")

	// ErrUnknownMode is returned by NewResolver for modes this build lacks.
	ErrUnknownMode = errors.New("rand: unknown RNG mode")

	// ErrUnavailable indicates the source cannot currently supply bytes.
	ErrUnavailable = errors.New("rand: source unavailable")
)

// Mode specifies which RNG source to use.
type Mode string

const (
	// ModeAuto selects the best available source.
	ModeAuto Mode = "auto"

	// ModeSoftware uses crypto/rand.
	ModeSoftware Mode = "software"
)

// Config contains RNG configuration.
type Config struct {
	// Mode specifies the RNG source. Defaults to ModeAuto.
	Mode Mode
}

// Resolver is the interface key generation draws from.
type Resolver interface {
	// Rand returns n random bytes.
	Rand(n int) ([]byte, error)

	// Available returns true if this source is ready.
	Available() bool

	// Close releases any resources.
	Close() error

	// Mode reports which source backs the resolver.
	Mode() Mode
}

// NewResolver creates a resolver. config may be nil, a Mode or a *Config.
func NewResolver(config interface{}) (Resolver, error) {
	cfg := normalizeConfig(config)

	switch cfg.Mode {
	case ModeAuto, ModeSoftware:
		return &SoftwareResolver{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// normalizeConfig converts the accepted config types to *Config.
func normalizeConfig(config interface{}) *Config {
	switch v := config.(type) {
	case Mode:
		if v == "" {
			v = ModeAuto
		}
		return &Config{Mode: v}
	case *Config:
		if v == nil {
			return &Config{Mode: ModeAuto}
		}
		if v.Mode == "" {
			return &Config{Mode: ModeAuto}
		}
		return v
	default:
		return &Config{Mode: ModeAuto}
	}
}

// SoftwareResolver uses crypto/rand from the Go standard library.
type SoftwareResolver struct{}

var _ Resolver = (*SoftwareResolver)(nil)

// Rand returns n bytes from crypto/rand.
func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	return readFull(rand.Reader, n)
}

// Available always returns true; crypto/rand is always present.
func (s *SoftwareResolver) Available() bool {
	return true
}

// Close is a no-op.
func (s *SoftwareResolver) Close() error {
	return nil
}

// Mode returns ModeSoftware.
func (s *SoftwareResolver) Mode() Mode {
	return ModeSoftware
}

func readFull(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("rand: negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShortRead, err)
	}
	return buf, nil
}

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

// Package scheme defines the closed set of signing schemes supported by
// textsign. There are exactly two: a BLAKE3 keyed hash and Ed25519.
//
// Every switch over a Scheme handles both variants and returns
// ErrUnknownScheme from its default branch. Adding a variant means
// extending every such switch.
package scheme

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownScheme indicates a scheme tag outside the supported set.
var ErrUnknownScheme = errors.New("scheme: unknown scheme")

// Scheme identifies a signing scheme. The zero value is invalid.
type Scheme uint8

const (
	// Blake3 is a symmetric keyed hash (MAC) over a 32 byte shared secret.
	Blake3 Scheme = iota + 1

	// Ed25519 is the RFC 8032 asymmetric signature scheme.
	Ed25519
)

const (
	// KeySize is the fixed key length shared by both schemes.
	KeySize = 32

	// Blake3SignatureSize is the length of a BLAKE3 keyed hash tag.
	Blake3SignatureSize = 32

	// Ed25519SignatureSize is the length of an Ed25519 signature.
	Ed25519SignatureSize = 64
)

// Conventional blob names used when persisting generated keys.
const (
	Blake3KeyName        = "blake3.key"
	Ed25519SigningName   = "ed25519.signing"
	Ed25519VerifyingName = "ed25519.verifying"
)

// All returns every supported scheme in declaration order.
func All() []Scheme {
	return []Scheme{Blake3, Ed25519}
}

// Parse converts a textual tag into a Scheme. Matching is case-insensitive
// and ignores surrounding whitespace.
func Parse(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blake3":
		return Blake3, nil
	case "ed25519":
		return Ed25519, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, s)
	}
}

// MustParse is like Parse but panics on error. Intended for constants in tests.
func MustParse(s string) Scheme {
	sch, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sch
}

// String returns the canonical lower-case tag.
func (s Scheme) String() string {
	switch s {
	case Blake3:
		return "blake3"
	case Ed25519:
		return "ed25519"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the supported schemes.
func (s Scheme) Valid() bool {
	switch s {
	case Blake3, Ed25519:
		return true
	default:
		return false
	}
}

// KeySize returns the length in bytes of the scheme's key material.
func (s Scheme) KeySize() int {
	switch s {
	case Blake3, Ed25519:
		return KeySize
	default:
		return 0
	}
}

// SignatureSize returns the length in bytes of a raw signature.
func (s Scheme) SignatureSize() int {
	switch s {
	case Blake3:
		return Blake3SignatureSize
	case Ed25519:
		return Ed25519SignatureSize
	default:
		return 0
	}
}

// Symmetric reports whether the same key signs and verifies.
func (s Scheme) Symmetric() bool {
	return s == Blake3
}

// KeyNames returns the blob names of generated key material, in the order
// the generator produces them.
func (s Scheme) KeyNames() []string {
	switch s {
	case Blake3:
		return []string{Blake3KeyName}
	case Ed25519:
		return []string{Ed25519SigningName, Ed25519VerifyingName}
	default:
		return nil
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scheme) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScheme, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Set implements pflag.Value so a Scheme can back a command-line flag.
func (s *Scheme) Set(value string) error {
	return s.UnmarshalText([]byte(value))
}

// Type implements pflag.Value.
func (s *Scheme) Type() string {
	return "scheme"
}

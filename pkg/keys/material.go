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

// Package keys loads and generates the key material consumed by the
// signing and verification capabilities.
//
// Loaders read an entire byte stream and reshape it into a scheme specific
// key type. Key values are immutable: constructors copy their input and
// accessors return copies.
package keys

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"filippo.io/edwards25519"

	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/source"
)

// Blake3Key is a 32 byte shared secret for the keyed hash scheme.
type Blake3Key struct {
	key [scheme.KeySize]byte
}

// SigningKey is an Ed25519 private key held by a signer.
type SigningKey struct {
	priv ed25519.PrivateKey
}

// VerifyingKey is an Ed25519 public key held by a verifier.
type VerifyingKey struct {
	pub ed25519.PublicKey
}

// LoadBlake3Key reads r to the end and uses the first 32 bytes as the key.
// Input longer than 32 bytes is truncated; a key file may carry a trailing
// newline or other data after the key.
func LoadBlake3Key(r io.Reader) (Blake3Key, error) {
	data, err := readKey(r)
	if err != nil {
		return Blake3Key{}, err
	}
	return Blake3KeyFromBytes(data)
}

// Blake3KeyFromBytes builds a key from the first 32 bytes of b.
func Blake3KeyFromBytes(b []byte) (Blake3Key, error) {
	if len(b) < scheme.KeySize {
		return Blake3Key{}, fmt.Errorf("%w: got %d bytes, need %d",
			ErrKeyTooShort, len(b), scheme.KeySize)
	}
	var k Blake3Key
	copy(k.key[:], b[:scheme.KeySize])
	return k, nil
}

// Bytes returns a copy of the raw key.
func (k Blake3Key) Bytes() []byte {
	out := make([]byte, scheme.KeySize)
	copy(out, k.key[:])
	return out
}

// Array returns the key as a fixed size array.
func (k Blake3Key) Array() [scheme.KeySize]byte {
	return k.key
}

// LoadSigningKey reads an Ed25519 seed from r. Exactly 32 bytes are
// required.
func LoadSigningKey(r io.Reader) (SigningKey, error) {
	data, err := readKey(r)
	if err != nil {
		return SigningKey{}, err
	}
	return SigningKeyFromBytes(data)
}

// SigningKeyFromBytes builds a signing key from a 32 byte seed.
func SigningKeyFromBytes(seed []byte) (SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return SigningKey{}, fmt.Errorf("%w: ed25519 signing key must be %d bytes, got %d",
			ErrInvalidKeyEncoding, ed25519.SeedSize, len(seed))
	}
	return SigningKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns a copy of the 32 byte seed.
func (k SigningKey) Seed() []byte {
	if k.priv == nil {
		return nil
	}
	return k.priv.Seed()
}

// PrivateKey returns a copy of the expanded Ed25519 private key.
func (k SigningKey) PrivateKey() ed25519.PrivateKey {
	if k.priv == nil {
		return nil
	}
	out := make(ed25519.PrivateKey, len(k.priv))
	copy(out, k.priv)
	return out
}

// VerifyingKey derives the public half of the key pair.
func (k SigningKey) VerifyingKey() VerifyingKey {
	if k.priv == nil {
		return VerifyingKey{}
	}
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, k.priv[ed25519.SeedSize:])
	return VerifyingKey{pub: pub}
}

// IsZero reports whether the key is unset.
func (k SigningKey) IsZero() bool {
	return k.priv == nil
}

// LoadVerifyingKey reads an Ed25519 public key from r. Exactly 32 bytes
// are required and they must decode to a point on the curve.
func LoadVerifyingKey(r io.Reader) (VerifyingKey, error) {
	data, err := readKey(r)
	if err != nil {
		return VerifyingKey{}, err
	}
	return VerifyingKeyFromBytes(data)
}

// VerifyingKeyFromBytes builds a verifying key from its 32 byte encoding.
func VerifyingKeyFromBytes(b []byte) (VerifyingKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return VerifyingKey{}, fmt.Errorf("%w: ed25519 verifying key must be %d bytes, got %d",
			ErrInvalidKeyEncoding, ed25519.PublicKeySize, len(b))
	}
	if _, err := new(edwards25519.Point).SetBytes(b); err != nil {
		return VerifyingKey{}, fmt.Errorf("%w: %w", ErrInvalidKeyEncoding, err)
	}
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, b)
	return VerifyingKey{pub: pub}, nil
}

// Bytes returns a copy of the 32 byte encoding.
func (k VerifyingKey) Bytes() []byte {
	if k.pub == nil {
		return nil
	}
	out := make([]byte, len(k.pub))
	copy(out, k.pub)
	return out
}

// PublicKey returns a copy as an ed25519.PublicKey.
func (k VerifyingKey) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(k.Bytes())
}

// IsZero reports whether the key is unset.
func (k VerifyingKey) IsZero() bool {
	return k.pub == nil
}

// Equal reports whether two verifying keys are identical.
func (k VerifyingKey) Equal(other VerifyingKey) bool {
	return k.pub.Equal(other.pub)
}

func readKey(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil key reader", source.ErrSourceUnavailable)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading key: %w", source.ErrSourceUnavailable, err)
	}
	return data, nil
}

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

// Package signing produces signatures for the two supported schemes.
//
// A Signer is bound to one key when it is constructed and is safe for
// concurrent use afterwards; it holds no mutable state. Signing cannot fail
// once a valid key is in hand, so Sign has no error return.
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"io"

	"lukechampine.com/blake3"

	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
)

// Encoding is the transport encoding for signatures: URL-safe base64
// without padding, so signatures survive shells and argument parsers.
var Encoding = base64.RawURLEncoding

// Signer produces a signature over a fully buffered message.
type Signer interface {
	// Sign returns the raw signature for message.
	Sign(message []byte) []byte

	// Scheme reports which scheme the signer implements.
	Scheme() scheme.Scheme
}

// Blake3Signer computes BLAKE3 keyed hashes. Identical (key, message)
// pairs always produce identical tags.
type Blake3Signer struct {
	key [scheme.KeySize]byte
}

var _ Signer = (*Blake3Signer)(nil)

// NewBlake3Signer binds a signer to key.
func NewBlake3Signer(key keys.Blake3Key) *Blake3Signer {
	return &Blake3Signer{key: key.Array()}
}

// Sign returns the 32 byte keyed hash of message.
func (s *Blake3Signer) Sign(message []byte) []byte {
	return KeyedHash(s.key, message)
}

// Scheme returns scheme.Blake3.
func (s *Blake3Signer) Scheme() scheme.Scheme {
	return scheme.Blake3
}

// Ed25519Signer produces RFC 8032 signatures.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

var _ Signer = (*Ed25519Signer)(nil)

// NewEd25519Signer binds a signer to key.
func NewEd25519Signer(key keys.SigningKey) (*Ed25519Signer, error) {
	if key.IsZero() {
		return nil, ErrKeyRequired
	}
	return &Ed25519Signer{priv: key.PrivateKey()}, nil
}

// Sign returns the 64 byte Ed25519 signature of message.
func (s *Ed25519Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.priv, message)
}

// Scheme returns scheme.Ed25519.
func (s *Ed25519Signer) Scheme() scheme.Scheme {
	return scheme.Ed25519
}

// Public returns the verifying key paired with this signer.
func (s *Ed25519Signer) Public() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// New loads the signing key for sch from r and returns the matching
// signer.
func New(sch scheme.Scheme, r io.Reader) (Signer, error) {
	switch sch {
	case scheme.Blake3:
		key, err := keys.LoadBlake3Key(r)
		if err != nil {
			return nil, err
		}
		return NewBlake3Signer(key), nil
	case scheme.Ed25519:
		key, err := keys.LoadSigningKey(r)
		if err != nil {
			return nil, err
		}
		s, err := NewEd25519Signer(key)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", scheme.ErrUnknownScheme, sch)
	}
}

// KeyedHash returns the BLAKE3 keyed hash of message under key.
func KeyedHash(key [scheme.KeySize]byte, message []byte) []byte {
	h := blake3.New(scheme.Blake3SignatureSize, key[:])
	_, _ = h.Write(message) // hash.Hash never returns an error
	return h.Sum(nil)
}

// EncodeSignature returns the transport form of a raw signature.
func EncodeSignature(sig []byte) string {
	return Encoding.EncodeToString(sig)
}

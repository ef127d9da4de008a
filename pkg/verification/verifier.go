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

// Package verification checks signatures produced by package signing.
//
// A mismatch is reported as (false, nil). Errors are reserved for inputs
// that cannot be checked at all, such as an Ed25519 signature of the wrong
// length.
package verification

import (
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/signing"
)

// Verifier checks a raw signature against a fully buffered message.
type Verifier interface {
	// Verify reports whether signature is valid for message.
	Verify(message, signature []byte) (bool, error)

	// Scheme reports which scheme the verifier implements.
	Scheme() scheme.Scheme
}

// Blake3Verifier recomputes the keyed hash and compares it in constant
// time.
type Blake3Verifier struct {
	key [scheme.KeySize]byte
}

var _ Verifier = (*Blake3Verifier)(nil)

// NewBlake3Verifier binds a verifier to the shared key.
func NewBlake3Verifier(key keys.Blake3Key) *Blake3Verifier {
	return &Blake3Verifier{key: key.Array()}
}

// Verify returns true only when signature equals the keyed hash of
// message. A signature of the wrong length is simply not equal.
func (v *Blake3Verifier) Verify(message, signature []byte) (bool, error) {
	expected := signing.KeyedHash(v.key, message)
	return subtle.ConstantTimeCompare(expected, signature) == 1, nil
}

// Scheme returns scheme.Blake3.
func (v *Blake3Verifier) Scheme() scheme.Scheme {
	return scheme.Blake3
}

// Ed25519Verifier checks RFC 8032 signatures.
type Ed25519Verifier struct {
	pub ed25519.PublicKey
}

var _ Verifier = (*Ed25519Verifier)(nil)

// NewEd25519Verifier binds a verifier to key.
func NewEd25519Verifier(key keys.VerifyingKey) (*Ed25519Verifier, error) {
	if key.IsZero() {
		return nil, ErrKeyRequired
	}
	return &Ed25519Verifier{pub: key.PublicKey()}, nil
}

// Verify checks signature over message.
func (v *Ed25519Verifier) Verify(message, signature []byte) (bool, error) {
	if len(signature) != scheme.Ed25519SignatureSize {
		return false, fmt.Errorf("%w: ed25519 signature is %d bytes, want %d",
			ErrMalformedSignature, len(signature), scheme.Ed25519SignatureSize)
	}
	return ed25519.Verify(v.pub, message, signature), nil
}

// Scheme returns scheme.Ed25519.
func (v *Ed25519Verifier) Scheme() scheme.Scheme {
	return scheme.Ed25519
}

// New loads the verification key for sch from r: the shared key for
// Blake3, the verifying key for Ed25519.
func New(sch scheme.Scheme, r io.Reader) (Verifier, error) {
	switch sch {
	case scheme.Blake3:
		key, err := keys.LoadBlake3Key(r)
		if err != nil {
			return nil, err
		}
		return NewBlake3Verifier(key), nil
	case scheme.Ed25519:
		key, err := keys.LoadVerifyingKey(r)
		if err != nil {
			return nil, err
		}
		v, err := NewEd25519Verifier(key)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %s", scheme.ErrUnknownScheme, sch)
	}
}

// DecodeSignature parses the transport form of a signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := signing.Encoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	return sig, nil
}

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

package keys

import (
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"

	"github.com/jeremyhahn/go-textsign/pkg/crypto/rand"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
)

// Blob is one piece of generated key material and the conventional name
// it is persisted under.
type Blob struct {
	Name string
	Data []byte

	// Secret is false only for material that may be published, such as an
	// Ed25519 verifying key.
	Secret bool
}

// Generator produces fresh key material. It performs no I/O beyond reading
// its random source.
type Generator struct {
	rng rand.Resolver
}

// NewGenerator returns a generator drawing from rng. A nil rng selects
// crypto/rand.
func NewGenerator(rng rand.Resolver) *Generator {
	if rng == nil {
		rng = &rand.SoftwareResolver{}
	}
	return &Generator{rng: rng}
}

// Generate returns the key blobs for s in a fixed order: the single shared
// key for Blake3, or the signing seed followed by the verifying key for
// Ed25519.
func (g *Generator) Generate(s scheme.Scheme) ([]Blob, error) {
	switch s {
	case scheme.Blake3:
		key, err := g.draw()
		if err != nil {
			return nil, err
		}
		return []Blob{
			{Name: scheme.Blake3KeyName, Data: key, Secret: true},
		}, nil

	case scheme.Ed25519:
		seed, err := g.draw()
		if err != nil {
			return nil, err
		}
		priv := ed25519.NewKeyFromSeed(seed)
		pub := make([]byte, ed25519.PublicKeySize)
		copy(pub, priv[ed25519.SeedSize:])
		return []Blob{
			{Name: scheme.Ed25519SigningName, Data: seed, Secret: true},
			{Name: scheme.Ed25519VerifyingName, Data: pub, Secret: false},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", scheme.ErrUnknownScheme, s)
	}
}

// draw reads one key's worth of bytes and refuses an all-zero result.
func (g *Generator) draw() ([]byte, error) {
	if !g.rng.Available() {
		return nil, fmt.Errorf("keys: %w", rand.ErrUnavailable)
	}
	b, err := g.rng.Rand(scheme.KeySize)
	if err != nil {
		return nil, fmt.Errorf("keys: reading random source: %w", err)
	}
	if subtle.ConstantTimeCompare(b, make([]byte, scheme.KeySize)) == 1 {
		return nil, ErrWeakKey
	}
	return b, nil
}

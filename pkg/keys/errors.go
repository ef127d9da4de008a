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

import "errors"

var (
	// ErrKeyTooShort indicates fewer key bytes than the scheme requires.
	ErrKeyTooShort = errors.New("keys: key material too short")

	// ErrInvalidKeyEncoding indicates key bytes that do not decode into a
	// key for the scheme.
	ErrInvalidKeyEncoding = errors.New("keys: invalid key encoding")

	// ErrWeakKey indicates the random source produced all-zero key material.
	ErrWeakKey = errors.New("keys: random source produced an all-zero key")
)

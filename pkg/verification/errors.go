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

package verification

import "errors"

var (
	// ErrMalformedSignature indicates a signature that could not be decoded
	// or has the wrong length for its scheme
	ErrMalformedSignature = errors.New("verification: malformed signature")

	// ErrKeyRequired indicates a verifier was built from an unset key
	ErrKeyRequired = errors.New("verification: key is required")
)

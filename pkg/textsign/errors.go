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

package textsign

import "errors"

var (
	// ErrStdinConflict indicates the key and the message were both asked to
	// come from standard input
	ErrStdinConflict = errors.New("textsign: key and message cannot both be read from stdin")

	// ErrNoBlobs indicates Save was called with nothing to write
	ErrNoBlobs = errors.New("textsign: no key material to save")
)

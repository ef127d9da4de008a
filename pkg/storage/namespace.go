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

package storage

import (
	"fmt"
	"sort"
	"strings"
)

// KeysPrefix is the namespace that holds key material.
const KeysPrefix = "keys/"

// MaxIDLength bounds key identifiers.
const MaxIDLength = 64

// KeyDir returns the storage prefix for all blobs of the key id:
// keys/{id}/
func KeyDir(id string) string {
	return KeysPrefix + id + "/"
}

// KeyPath returns the storage path of one blob of a key:
// keys/{id}/{blob}
func KeyPath(id, blob string) string {
	return KeyDir(id) + blob
}

// ValidateID accepts identifiers made of letters, digits, '-', '_' and
// '.', not starting with '.', up to MaxIDLength characters.
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength || id[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// KeyExists reports whether any blob is stored under the key id.
func KeyExists(backend Backend, id string) (bool, error) {
	blobs, err := backend.List(KeyDir(id))
	if err != nil {
		return false, err
	}
	return len(blobs) > 0, nil
}

// ListKeys returns the distinct key IDs in the backend, sorted.
func ListKeys(backend Backend) ([]string, error) {
	entries, err := backend.List(KeysPrefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, e := range entries {
		id, _, ok := strings.Cut(strings.TrimPrefix(e, KeysPrefix), "/")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

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

// Package source opens the byte streams that feed signing and verification:
// either standard input or a named file.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stdin is the identifier that selects standard input.
const Stdin = "-"

var (
	// ErrSourceUnavailable indicates the input could not be opened or read.
	ErrSourceUnavailable = errors.New("source: unavailable")

	// ErrFileNotExist is returned by Validate for paths that do not exist.
	ErrFileNotExist = errors.New("file does not exist")
)

// Opener resolves identifiers to readable streams. The zero value reads
// standard input from os.Stdin.
type Opener struct {
	// Stdin replaces os.Stdin when non-nil.
	Stdin io.Reader
}

// Default reads the process's own standard input.
var Default = &Opener{}

// Open returns a reader for identifier. Closing the reader returned for
// Stdin does not close the underlying stream.
func (o *Opener) Open(identifier string) (io.ReadCloser, error) {
	if identifier == Stdin {
		in := o.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSourceUnavailable)
	}

	// #nosec G304 - path is supplied by the operator
	f, err := os.Open(filepath.Clean(identifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return f, nil
}

// ReadAll opens identifier and buffers its entire contents.
func (o *Opener) ReadAll(identifier string) ([]byte, error) {
	rc, err := o.Open(identifier)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, identifier, err)
	}
	return data, nil
}

// Validate accepts Stdin or a path that exists on disk.
func Validate(identifier string) error {
	if identifier == Stdin {
		return nil
	}
	if identifier == "" {
		return ErrFileNotExist
	}
	if _, err := os.Stat(identifier); err != nil {
		return ErrFileNotExist
	}
	return nil
}

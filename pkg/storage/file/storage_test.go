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

package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-textsign/pkg/storage"
)

func newStore(t *testing.T) *FileStorage {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "keystore")
	s, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
	assert.True(t, filepath.IsAbs(s.Root()))

	_, err = New("")
	assert.Error(t, err)
}

func TestPutGet(t *testing.T) {
	s := newStore(t)

	tests := []struct {
		key   string
		value []byte
	}{
		{"blake3.key", []byte{1, 2, 3}},
		{"keys/alice/ed25519.signing", make([]byte, 32)},
		{"keys/alice/ed25519.verifying", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, s.Put(tt.key, tt.value, nil))
			got, err := s.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}

	_, err := s.Get("keys/nobody/blake3.key")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	s := newStore(t)

	tests := []struct {
		key  string
		opts *storage.Options
		want os.FileMode
	}{
		{"blake3.key", nil, 0600},
		{"ed25519.signing", nil, 0600},
		{"ed25519.verifying", nil, 0644},
		{"keys/x/ed25519.verifying", nil, 0644},
		{"custom", &storage.Options{Permissions: 0640}, 0640},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, s.Put(tt.key, []byte("data"), tt.opts))
			info, err := os.Stat(filepath.Join(s.Root(), filepath.FromSlash(tt.key)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mode().Perm())
		})
	}
}

func TestNoOverwrite(t *testing.T) {
	s := newStore(t)
	opts := &storage.Options{NoOverwrite: true}

	require.NoError(t, s.Put("keys/a/blake3.key", []byte("one"), opts))
	assert.ErrorIs(t, s.Put("keys/a/blake3.key", []byte("two"), opts), storage.ErrAlreadyExists)

	got, err := s.Get("keys/a/blake3.key")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, s.Put("keys/a/blake3.key", []byte("three"), nil))
	got, err = s.Get("keys/a/blake3.key")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), got)
}

func TestDeleteListExists(t *testing.T) {
	s := newStore(t)
	for _, k := range []string{"keys/b/blake3.key", "keys/a/ed25519.signing", "top"} {
		require.NoError(t, s.Put(k, []byte("x"), nil))
	}

	keys, err := s.List("keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a/ed25519.signing", "keys/b/blake3.key"}, keys)

	ok, err := s.Exists("top")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete("top"))
	assert.ErrorIs(t, s.Delete("top"), storage.ErrNotFound)

	ok, err = s.Exists("top")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Close())
}

func TestInvalidKeys(t *testing.T) {
	s := newStore(t)
	for _, key := range []string{"", "../escape", "keys/../../etc/passwd", "/etc/passwd", "a\x00b"} {
		t.Run(key, func(t *testing.T) {
			assert.ErrorIs(t, s.Put(key, []byte("x"), nil), storage.ErrInvalidID)
			_, err := s.Get(key)
			assert.ErrorIs(t, err, storage.ErrInvalidID)
			_, err = s.Exists(key)
			assert.ErrorIs(t, err, storage.ErrInvalidID)
			assert.ErrorIs(t, s.Delete(key), storage.ErrInvalidID)
		})
	}
}

func TestValidateStorageKey(t *testing.T) {
	assert.NoError(t, validateStorageKey("keys/alice/blake3.key"))
	assert.NoError(t, validateStorageKey("file..name"))
	assert.Error(t, validateStorageKey("a/../b"))
}

func TestConcurrentAccess(t *testing.T) {
	s := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := storage.KeyPath("k"+string(rune('a'+i)), "blake3.key")
			assert.NoError(t, s.Put(key, []byte{byte(i)}, nil))
			_, err := s.Get(key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ids, err := storage.ListKeys(s)
	require.NoError(t, err)
	assert.Len(t, ids, 20)
}

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

package rest

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-textsign/pkg/ratelimit"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/storage"
	"github.com/jeremyhahn/go-textsign/pkg/storage/memory"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
	"github.com/jeremyhahn/go-textsign/pkg/verification"
)

var helloWorld = base64.StdEncoding.EncodeToString([]byte("hello world"))

func newTestServer(t *testing.T, cfg *Config) (*Server, *memory.Storage) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	store := memory.New()
	srv, err := NewServer(cfg, textsign.New(), store, nil)
	require.NoError(t, err)
	t.Cleanup(srv.limiter.Stop)
	return srv, store
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, textsign.New(), memory.New(), nil)
	assert.Error(t, err)
	_, err = NewServer(&Config{}, nil, memory.New(), nil)
	assert.Error(t, err)
	_, err = NewServer(&Config{}, textsign.New(), nil, nil)
	assert.Error(t, err)
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestListSchemesHandler(t *testing.T) {
	srv, _ := newTestServer(t, &Config{DefaultScheme: scheme.Ed25519})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/schemes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListSchemesResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ed25519", resp.Default)
	require.Len(t, resp.Schemes, 2)
	assert.Equal(t, SchemeInfo{
		Name: "blake3", Symmetric: true, KeySize: 32, SignatureSize: 32,
		KeyBlobs: []string{"blake3.key"},
	}, resp.Schemes[0])
	assert.Equal(t, 64, resp.Schemes[1].SignatureSize)
	assert.Equal(t, []string{"ed25519.signing", "ed25519.verifying"}, resp.Schemes[1].KeyBlobs)
}

func TestGenerateSignVerify(t *testing.T) {
	tests := []struct {
		scheme string
		sigLen int
	}{
		{"blake3", 43},
		{"ed25519", 86},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			srv, store := newTestServer(t, nil)
			h := srv.Handler()

			rec := do(t, h, http.MethodPost, "/api/v1/keys", GenerateKeyRequest{KeyID: "release", Scheme: tt.scheme})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var gen GenerateKeyResponse
			decodeBody(t, rec, &gen)
			assert.Equal(t, scheme.MustParse(tt.scheme).KeyNames(), gen.Blobs)

			ok, err := storage.KeyExists(store, "release")
			require.NoError(t, err)
			assert.True(t, ok)

			rec = do(t, h, http.MethodPost, "/api/v1/sign", SignRequest{KeyID: "release", Scheme: tt.scheme, Message: helloWorld})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var sig SignResponse
			decodeBody(t, rec, &sig)
			assert.Len(t, sig.Signature, tt.sigLen)

			rec = do(t, h, http.MethodPost, "/api/v1/verify", VerifyRequest{KeyID: "release", Scheme: tt.scheme, Message: helloWorld, Signature: sig.Signature})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var ver VerifyResponse
			decodeBody(t, rec, &ver)
			assert.True(t, ver.Valid)

			tampered := base64.StdEncoding.EncodeToString([]byte("hello world!"))
			rec = do(t, h, http.MethodPost, "/api/v1/verify", VerifyRequest{KeyID: "release", Scheme: tt.scheme, Message: tampered, Signature: sig.Signature})
			require.Equal(t, http.StatusOK, rec.Code)
			decodeBody(t, rec, &ver)
			assert.False(t, ver.Valid)

			if tt.scheme == "ed25519" {
				pub, err := base64.StdEncoding.DecodeString(gen.VerifyingKey)
				require.NoError(t, err)
				require.Len(t, pub, ed25519.PublicKeySize)
				raw, err := verification.DecodeSignature(sig.Signature)
				require.NoError(t, err)
				assert.True(t, ed25519.Verify(pub, []byte("hello world"), raw))
			} else {
				assert.Empty(t, gen.VerifyingKey)
			}
		})
	}
}

func TestGenerateKey_DefaultScheme(t *testing.T) {
	srv, _ := newTestServer(t, &Config{DefaultScheme: scheme.Ed25519})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/keys", GenerateKeyRequest{KeyID: "k1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var gen GenerateKeyResponse
	decodeBody(t, rec, &gen)
	assert.Equal(t, "ed25519", gen.Scheme)
	assert.NotEmpty(t, gen.VerifyingKey)
}

func TestGenerateKey_Conflict(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/keys", GenerateKeyRequest{KeyID: "dup", Scheme: "blake3"})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, s := range []string{"blake3", "ed25519"} {
		rec = do(t, h, http.MethodPost, "/api/v1/keys", GenerateKeyRequest{KeyID: "dup", Scheme: s})
		assert.Equal(t, http.StatusConflict, rec.Code, s)
		var resp ErrorResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "already_exists", resp.Kind)
	}
}

func TestGenerateKey_ConcurrentSameID(t *testing.T) {
	srv, store := newTestServer(t, nil)
	h := srv.Handler()

	const workers = 16
	bodies := make([]string, workers)
	for i := range bodies {
		s := "blake3"
		if i%2 == 1 {
			s = "ed25519"
		}
		b, err := json.Marshal(GenerateKeyRequest{KeyID: "race", Scheme: s})
		require.NoError(t, err)
		bodies[i] = string(b)
	}

	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/keys", strings.NewReader(bodies[i]))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, created)

	blobs, err := store.List(storage.KeyDir("race"))
	require.NoError(t, err)
	var blake3Blobs, ed25519Blobs int
	for _, b := range blobs {
		switch {
		case strings.HasSuffix(b, scheme.Blake3KeyName):
			blake3Blobs++
		case strings.HasSuffix(b, scheme.Ed25519SigningName), strings.HasSuffix(b, scheme.Ed25519VerifyingName):
			ed25519Blobs++
		}
	}
	assert.True(t, (blake3Blobs == 1 && ed25519Blobs == 0) || (blake3Blobs == 0 && ed25519Blobs == 2),
		"id holds blobs of one scheme, got %v", blobs)
}

func TestListKeysHandler(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/keys", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keys":[]}`, rec.Body.String())

	for _, id := range []string{"b", "a"} {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/keys", GenerateKeyRequest{KeyID: id, Scheme: "ed25519"}).Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/keys", nil)
	assert.JSONEq(t, `{"keys":["a","b"]}`, rec.Body.String())
}

func TestHandlers_Errors(t *testing.T) {
	srv, store := newTestServer(t, &Config{MaxBodyBytes: 256})
	h := srv.Handler()

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/keys", GenerateKeyRequest{KeyID: "good", Scheme: "blake3"}).Code)
	require.NoError(t, store.Put(storage.KeyPath("short", scheme.Blake3KeyName), []byte("abc"), nil))

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
		wantKind string
	}{
		{"missing key", "/api/v1/sign", SignRequest{KeyID: "nope", Scheme: "blake3", Message: helloWorld}, http.StatusNotFound, "not_found"},
		{"wrong scheme for key", "/api/v1/sign", SignRequest{KeyID: "good", Scheme: "ed25519", Message: helloWorld}, http.StatusNotFound, "not_found"},
		{"unknown scheme", "/api/v1/sign", SignRequest{KeyID: "good", Scheme: "rsa", Message: helloWorld}, http.StatusBadRequest, "unknown_scheme"},
		{"bad message", "/api/v1/sign", SignRequest{KeyID: "good", Scheme: "blake3", Message: "%%%"}, http.StatusBadRequest, "invalid_request"},
		{"missing key id", "/api/v1/sign", SignRequest{Message: helloWorld}, http.StatusBadRequest, "invalid_request"},
		{"invalid key id", "/api/v1/keys", GenerateKeyRequest{KeyID: "../etc", Scheme: "blake3"}, http.StatusBadRequest, "invalid_key_id"},
		{"unknown field", "/api/v1/keys", `{"key_id":"x","colour":"red"}`, http.StatusBadRequest, "invalid_request"},
		{"not json", "/api/v1/verify", `hello`, http.StatusBadRequest, "invalid_request"},
		{"malformed signature", "/api/v1/verify", VerifyRequest{KeyID: "good", Scheme: "blake3", Message: helloWorld, Signature: "!!"}, http.StatusBadRequest, "malformed_signature"},
		{"short key", "/api/v1/sign", SignRequest{KeyID: "short", Scheme: "blake3", Message: helloWorld}, http.StatusUnprocessableEntity, "key_too_short"},
		{"body too large", "/api/v1/sign", SignRequest{KeyID: "good", Message: strings.Repeat("A", 512)}, http.StatusRequestEntityTooLarge, "body_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, &Config{
		RateLimit: &ratelimit.Config{Enabled: true, RequestsPerMinute: 60, Burst: 1},
	})
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/schemes", nil).Code)

	rec := do(t, h, http.MethodGet, "/api/v1/schemes", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "rate_limited", resp.Kind)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// probes are not limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &Config{MetricsEnabled: true})
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "textsign_active_connections")

	srv, _ = newTestServer(t, &Config{MetricsEnabled: false})
	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodGet, "/metrics", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodOptions, "/api/v1/sign", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

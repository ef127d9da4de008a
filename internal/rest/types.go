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

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SchemeInfo describes one supported scheme.
type SchemeInfo struct {
	Name          string   `json:"name"`
	Symmetric     bool     `json:"symmetric"`
	KeySize       int      `json:"key_size"`
	SignatureSize int      `json:"signature_size"`
	KeyBlobs      []string `json:"key_blobs"`
}

// ListSchemesResponse is returned by GET /api/v1/schemes.
type ListSchemesResponse struct {
	Schemes []SchemeInfo `json:"schemes"`
	Default string       `json:"default"`
}

// ListKeysResponse is returned by GET /api/v1/keys.
type ListKeysResponse struct {
	Keys []string `json:"keys"`
}

// GenerateKeyRequest is the body of POST /api/v1/keys.
type GenerateKeyRequest struct {
	KeyID  string `json:"key_id"`
	Scheme string `json:"scheme,omitempty"`
}

// GenerateKeyResponse describes stored key material. VerifyingKey is the
// standard base64 Ed25519 public key and is empty for BLAKE3.
type GenerateKeyResponse struct {
	KeyID        string   `json:"key_id"`
	Scheme       string   `json:"scheme"`
	Blobs        []string `json:"blobs"`
	VerifyingKey string   `json:"verifying_key,omitempty"`
}

// SignRequest is the body of POST /api/v1/sign.
type SignRequest struct {
	KeyID   string `json:"key_id"`
	Scheme  string `json:"scheme,omitempty"`
	Message string `json:"message"`
}

// SignResponse carries the URL-safe unpadded signature.
type SignResponse struct {
	KeyID     string `json:"key_id"`
	Scheme    string `json:"scheme"`
	Signature string `json:"signature"`
}

// VerifyRequest is the body of POST /api/v1/verify.
type VerifyRequest struct {
	KeyID     string `json:"key_id"`
	Scheme    string `json:"scheme,omitempty"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// VerifyResponse reports whether the signature matched.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

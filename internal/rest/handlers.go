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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/jeremyhahn/go-textsign/pkg/health"
	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/logging"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/storage"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
)

// HandlerContext holds shared dependencies for HTTP handlers.
type HandlerContext struct {
	svc           *textsign.Service
	store         storage.Backend
	defaultScheme scheme.Scheme
	maxBodyBytes  int64
	logger        logging.Logger

	// keysMu makes the exists check and the save in GenerateKeyHandler
	// one step, so an id never holds blobs from two schemes.
	keysMu sync.Mutex

	// HealthChecker backs the /health/* probes. Nil means always healthy.
	HealthChecker *health.Checker
}

// NewHandlerContext creates a new handler context.
func NewHandlerContext(svc *textsign.Service, store storage.Backend, defaultScheme scheme.Scheme, maxBodyBytes int64, log logging.Logger) *HandlerContext {
	if log == nil {
		log = logging.NewNop()
	}
	return &HandlerContext{
		svc:           svc,
		store:         store,
		defaultScheme: defaultScheme,
		maxBodyBytes:  maxBodyBytes,
		logger:        log,
	}
}

// HealthHandler handles GET /health requests.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

// ListSchemesHandler handles GET /api/v1/schemes requests.
func (h *HandlerContext) ListSchemesHandler(w http.ResponseWriter, r *http.Request) {
	resp := ListSchemesResponse{Default: h.defaultScheme.String()}
	for _, s := range scheme.All() {
		resp.Schemes = append(resp.Schemes, SchemeInfo{
			Name:          s.String(),
			Symmetric:     s.Symmetric(),
			KeySize:       s.KeySize(),
			SignatureSize: s.SignatureSize(),
			KeyBlobs:      s.KeyNames(),
		})
	}
	writeJSON(w, resp, http.StatusOK)
}

// ListKeysHandler handles GET /api/v1/keys requests.
func (h *HandlerContext) ListKeysHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := storage.ListKeys(h.store)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list keys", logging.Error(err))
		handleError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, ListKeysResponse{Keys: ids}, http.StatusOK)
}

// GenerateKeyHandler handles POST /api/v1/keys requests.
func (h *HandlerContext) GenerateKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateKeyRequest
	if err := h.decode(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := checkKeyID(req.KeyID); err != nil {
		handleError(w, err)
		return
	}
	sch, err := h.resolveScheme(req.Scheme)
	if err != nil {
		handleError(w, err)
		return
	}

	blobs, err := h.generateKey(r, req.KeyID, sch)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := GenerateKeyResponse{KeyID: req.KeyID, Scheme: sch.String()}
	for _, b := range blobs {
		resp.Blobs = append(resp.Blobs, b.Name)
		if b.Name == scheme.Ed25519VerifyingName {
			resp.VerifyingKey = base64.StdEncoding.EncodeToString(b.Data)
		}
	}

	h.logger.InfoContext(r.Context(), "Key generated",
		logging.String("key_id", req.KeyID), logging.String("scheme", sch.String()))
	writeJSON(w, resp, http.StatusCreated)
}

func (h *HandlerContext) generateKey(r *http.Request, id string, sch scheme.Scheme) ([]keys.Blob, error) {
	h.keysMu.Lock()
	defer h.keysMu.Unlock()

	exists, err := storage.KeyExists(h.store, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("key %q: %w", id, storage.ErrAlreadyExists)
	}

	blobs, err := h.svc.Generate(r.Context(), sch)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to generate key",
			logging.String("key_id", id), logging.Error(err))
		return nil, err
	}
	if err := h.svc.Save(blobs, h.store, storage.KeyDir(id)); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to store key",
			logging.String("key_id", id), logging.Error(err))
		return nil, err
	}
	return blobs, nil
}

// SignHandler handles POST /api/v1/sign requests.
func (h *HandlerContext) SignHandler(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := h.decode(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	sch, key, msg, err := h.prepare(req.KeyID, req.Scheme, req.Message, true)
	if err != nil {
		handleError(w, err)
		return
	}

	sig, err := h.svc.SignBytes(r.Context(), sch, key, msg)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, SignResponse{KeyID: req.KeyID, Scheme: sch.String(), Signature: sig}, http.StatusOK)
}

// VerifyHandler handles POST /api/v1/verify requests. A signature that
// does not match is a successful request with valid=false.
func (h *HandlerContext) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := h.decode(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	sch, key, msg, err := h.prepare(req.KeyID, req.Scheme, req.Message, false)
	if err != nil {
		handleError(w, err)
		return
	}

	ok, err := h.svc.VerifyBytes(r.Context(), sch, key, msg, req.Signature)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, VerifyResponse{Valid: ok}, http.StatusOK)
}

// prepare resolves the scheme, loads the stored key blob the operation
// needs and decodes the message.
func (h *HandlerContext) prepare(keyID, schemeName, message string, signing bool) (scheme.Scheme, []byte, []byte, error) {
	if err := checkKeyID(keyID); err != nil {
		return 0, nil, nil, err
	}
	sch, err := h.resolveScheme(schemeName)
	if err != nil {
		return 0, nil, nil, err
	}

	blob := scheme.Blake3KeyName
	if sch == scheme.Ed25519 {
		blob = scheme.Ed25519VerifyingName
		if signing {
			blob = scheme.Ed25519SigningName
		}
	}
	key, err := h.store.Get(storage.KeyPath(keyID, blob))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("key %q (%s): %w", keyID, sch, err)
	}

	msg, err := base64.StdEncoding.DecodeString(message)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return sch, key, msg, nil
}

func (h *HandlerContext) resolveScheme(name string) (scheme.Scheme, error) {
	if name == "" {
		return h.defaultScheme, nil
	}
	return scheme.Parse(name)
}

// decode reads a single JSON object from a size-capped body.
func (h *HandlerContext) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func checkKeyID(id string) error {
	if id == "" {
		return ErrMissingKeyID
	}
	return storage.ValidateID(id)
}

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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/storage"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
	"github.com/jeremyhahn/go-textsign/pkg/verification"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingKeyID   = errors.New("missing key_id")
	ErrInvalidMessage = errors.New("message is not valid base64")
	ErrBodyTooLarge   = errors.New("request body too large")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrInternalError  = errors.New("internal server error")
)

// mapErrorToStatusCode maps errors to HTTP status codes.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrMissingKeyID),
		errors.Is(err, ErrInvalidMessage),
		errors.Is(err, scheme.ErrUnknownScheme),
		errors.Is(err, verification.ErrMalformedSignature),
		errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, textsign.ErrStdinConflict):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, keys.ErrKeyTooShort),
		errors.Is(err, keys.ErrInvalidKeyEncoding):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorKind names err for the response body.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrMissingKeyID),
		errors.Is(err, ErrInvalidMessage):
		return "invalid_request"
	case errors.Is(err, storage.ErrInvalidID):
		return "invalid_key_id"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return textsign.ErrorKind(err)
	}
}

// writeError writes an error response to the client. Internal errors are
// reported without detail.
func writeError(w http.ResponseWriter, err error, statusCode int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Kind:  errorKind(err),
		Code:  statusCode,
	}
	if statusCode == http.StatusInternalServerError {
		resp.Error = ErrInternalError.Error()
		resp.Kind = "internal"
	}
	writeJSON(w, resp, statusCode)
}

// writeErrorWithMessage writes an error response with a custom message.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   err.Error(),
		Kind:    errorKind(err),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// handleError maps the error to a status code and writes the error response.
func handleError(w http.ResponseWriter, err error) {
	writeError(w, err, mapErrorToStatusCode(err))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

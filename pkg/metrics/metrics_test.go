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

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	Enable()
	counter := OperationsTotal.WithLabelValues(OpSign, "blake3", StatusSuccess)
	before := testutil.ToFloat64(counter)

	RecordOperation(OpSign, "blake3", StatusSuccess, 0.002)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordError(t *testing.T) {
	Enable()
	counter := ErrorsTotal.WithLabelValues(OpVerify, "ed25519", "malformed_signature")
	before := testutil.ToFloat64(counter)

	RecordError(OpVerify, "ed25519", "malformed_signature")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordVerification(t *testing.T) {
	Enable()
	valid := VerificationsTotal.WithLabelValues("blake3", ResultValid)
	invalid := VerificationsTotal.WithLabelValues("blake3", ResultInvalid)
	beforeValid, beforeInvalid := testutil.ToFloat64(valid), testutil.ToFloat64(invalid)

	RecordVerification("blake3", true)
	RecordVerification("blake3", false)
	RecordVerification("blake3", false)

	assert.Equal(t, beforeValid+1, testutil.ToFloat64(valid))
	assert.Equal(t, beforeInvalid+2, testutil.ToFloat64(invalid))
}

func TestDisable(t *testing.T) {
	counter := OperationsTotal.WithLabelValues(OpGenerate, "blake3", StatusSuccess)
	before := testutil.ToFloat64(counter)

	Disable()
	defer Enable()
	assert.False(t, IsEnabled())

	RecordOperation(OpGenerate, "blake3", StatusSuccess, 0.1)
	RecordError(OpGenerate, "blake3", "x")
	RecordVerification("blake3", true)
	RecordMessageSize(OpSign, 10)
	RecordHTTPRequest("GET", "200", 0.1)

	assert.Equal(t, before, testutil.ToFloat64(counter))
}

func TestHTTPMiddleware(t *testing.T) {
	Enable()
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodPost, "418")
	before := testutil.ToFloat64(counter)

	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK) // ignored
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sign", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(ActiveConnections))
}

func TestHTTPMiddleware_ImplicitOK(t *testing.T) {
	Enable()
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "200")
	before := testutil.ToFloat64(counter)

	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	Enable()
	RecordOperation(OpSign, "ed25519", StatusSuccess, 0.001)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "textsign_operations_total"))
}

func TestResourceCollector(t *testing.T) {
	Enable()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc := NewResourceCollector(ctx, time.Hour)
	done := make(chan struct{})
	go func() {
		rc.Start()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(Goroutines) > 0
	}, time.Second, 10*time.Millisecond)

	rc.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

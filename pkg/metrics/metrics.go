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

// Package metrics provides Prometheus instrumentation for textsign.
// Counters and histograms are registered with the default registry at init
// and are no-ops while collection is disabled.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all textsign metrics
	Namespace = "textsign"

	// Label names
	LabelOperation  = "operation"
	LabelScheme     = "scheme"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelResult     = "result"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Verification results
	ResultValid   = "valid"
	ResultInvalid = "invalid"

	// Operation names
	OpSign     = "sign"
	OpVerify   = "verify"
	OpGenerate = "generate"
	OpSave     = "save"
)

var (
	// OperationsTotal counts sign, verify and generate calls by scheme and
	// status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of textsign operations by type, scheme, and status",
		},
		[]string{LabelOperation, LabelScheme, LabelStatus},
	)

	// OperationDuration tracks the duration of operations in seconds,
	// including key loading and message buffering.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of textsign operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelOperation, LabelScheme},
	)

	// ErrorsTotal counts failures by error kind, for example
	// "key_too_short" or "malformed_signature".
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, scheme, and error type",
		},
		[]string{LabelOperation, LabelScheme, LabelErrorType},
	)

	// VerificationsTotal counts completed verifications by outcome.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "verifications_total",
			Help:      "Total number of completed verifications by scheme and result",
		},
		[]string{LabelScheme, LabelResult},
	)

	// MessageBytes observes the size of signed and verified messages.
	MessageBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "message_bytes",
			Help:      "Size of signed and verified messages in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{LabelOperation},
	)

	// ActiveConnections tracks in-flight HTTP requests.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// Goroutines tracks the current number of goroutines.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records one operation with its duration in seconds.
//
// Example:
//
//	start := time.Now()
//	sig, err := svc.Sign(ctx, scheme.Blake3, "key", "-")
//	status := metrics.StatusSuccess
//	if err != nil {
//	    status = metrics.StatusError
//	}
//	metrics.RecordOperation(metrics.OpSign, "blake3", status, time.Since(start).Seconds())
func RecordOperation(operation, scheme, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, scheme, status).Inc()
	OperationDuration.WithLabelValues(operation, scheme).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
func RecordError(operation, scheme, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, scheme, errorType).Inc()
}

// RecordVerification records the outcome of a verification that completed
// without error.
func RecordVerification(scheme string, valid bool) {
	if !enabled.Load() {
		return
	}
	result := ResultInvalid
	if valid {
		result = ResultValid
	}
	VerificationsTotal.WithLabelValues(scheme, result).Inc()
}

// RecordMessageSize observes the size of a buffered message.
func RecordMessageSize(operation string, n int) {
	if !enabled.Load() {
		return
	}
	MessageBytes.WithLabelValues(operation).Observe(float64(n))
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}

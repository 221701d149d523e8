// Copyright (c) 2025 TaskVault Project
//
// This file is part of go-taskvault.
//
// go-taskvault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@taskvault.dev for commercial licensing options.

// Package metrics provides Prometheus instrumentation for vault operations:
// cipher and key-service operation counters, latency histograms, error
// counters, and the escrow unlock audit counter required for every use of
// the deployment escrow secret.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all taskvault metrics
	Namespace = "taskvault"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpGenerateKeyPair = "generate_keypair"
	OpEncrypt         = "encrypt"
	OpDecrypt         = "decrypt"
	OpRawContentKey   = "raw_content_key"
	OpGrantContentKey = "grant_content_key"
	OpSignup          = "signup"
	OpLogin           = "login"
	OpChangePassword  = "change_password"
)

var (
	// OperationsTotal tracks the total number of vault operations by type and
	// status. Use RecordOperation to increment with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of vault operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the duration of vault operations in seconds.
	// Buckets span fast symmetric field encryption through multi-second RSA
	// keypair generation.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of vault operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal tracks the total number of errors by operation and error
	// type. Error types should be specific (e.g. "fingerprint_mismatch",
	// "missing_grant", "decryption_failed").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of vault operation errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// EscrowUnlocksTotal counts every reveal of the deployment escrow
	// passphrase by the operation that required it. This counter is the
	// metrics half of the escrow audit trail; the structured log event with
	// the user id is the other half.
	EscrowUnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "escrow_unlocks_total",
			Help:      "Total number of escrow passphrase uses by operation",
		},
		[]string{LabelOperation},
	)

	// SessionEntries gauges the number of live session passphrase cache
	// entries.
	SessionEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "session_entries",
			Help:      "Number of live session passphrase cache entries",
		},
	)
)

// RecordOperation increments the operations counter for the given operation
// and status.
func RecordOperation(operation, status string) {
	OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordError increments the error counter for the given operation and
// error type, and records the operation as failed.
func RecordError(operation, errorType string) {
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
	OperationsTotal.WithLabelValues(operation, StatusError).Inc()
}

// RecordEscrowUnlock increments the escrow audit counter for the operation
// that consumed the escrow passphrase.
func RecordEscrowUnlock(operation string) {
	EscrowUnlocksTotal.WithLabelValues(operation).Inc()
}

// TimeOperation returns a function that records the elapsed time for the
// operation when invoked. Use with defer:
//
//	defer metrics.TimeOperation(metrics.OpGenerateKeyPair)()
func TimeOperation(operation string) func() {
	start := time.Now()
	return func() {
		OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the AssetDNA
// service.
//
// # Description
//
// Metrics cover the three write-heavy surfaces: batch ingestion, BOM
// snapshot appends, and change-report computation, plus a generic HTTP
// request counter fed by middleware.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "assetdna"

// Metrics holds all Prometheus metrics for the service.
//
// Initialize once at startup via InitMetrics().
type Metrics struct {
	// RequestsTotal counts HTTP requests by route and status class.
	// Labels: route, status
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request latency by route.
	// Labels: route
	RequestDurationSeconds *prometheus.HistogramVec

	// ImportRecordsTotal counts ingested records by outcome.
	// Labels: outcome (created, updated, failed)
	ImportRecordsTotal *prometheus.CounterVec

	// ImportDurationSeconds measures full-batch ingest latency.
	ImportDurationSeconds prometheus.Histogram

	// SnapshotsAppendedTotal counts appended BOM snapshots.
	// Labels: method (api, file_upload, backfill)
	SnapshotsAppendedTotal *prometheus.CounterVec

	// ReportsGeneratedTotal counts change reports generated.
	ReportsGeneratedTotal prometheus.Counter
}

// Default is the singleton instance of Metrics. Initialized by
// InitMetrics().
var Default *Metrics

// InitMetrics creates and registers all Prometheus metrics.
//
// Call once at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *Metrics {
	Default = &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds by route",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"route"},
		),

		ImportRecordsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_records_total",
				Help:      "Total ingested records by outcome",
			},
			[]string{"outcome"},
		),

		ImportDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "import_duration_seconds",
				Help:      "Batch ingest duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),

		SnapshotsAppendedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "snapshots_appended_total",
				Help:      "Total BOM snapshots appended by import method",
			},
			[]string{"method"},
		),

		ReportsGeneratedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reports_generated_total",
				Help:      "Total change reports generated",
			},
		),
	}
	return Default
}

// RecordImport adds one batch's outcome counts.
func (m *Metrics) RecordImport(created, updated, failed int, seconds float64) {
	m.ImportRecordsTotal.WithLabelValues("created").Add(float64(created))
	m.ImportRecordsTotal.WithLabelValues("updated").Add(float64(updated))
	m.ImportRecordsTotal.WithLabelValues("failed").Add(float64(failed))
	m.ImportDurationSeconds.Observe(seconds)
}

// RecordSnapshot counts one appended snapshot.
func (m *Metrics) RecordSnapshot(method string) {
	m.SnapshotsAppendedTotal.WithLabelValues(method).Inc()
}

// RecordReport counts one generated change report.
func (m *Metrics) RecordReport() {
	m.ReportsGeneratedTotal.Inc()
}

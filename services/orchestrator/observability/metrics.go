// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the RAG pipeline.
//
// Metrics include request counters by endpoint and status, error counters
// by type, per-stage latency histograms (retrieval, generation, total),
// a histogram of documents retrieved per question, and a gauge of
// in-flight requests. Metrics are exposed via the /metrics endpoint.
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "coursefaq"

const ragSubsystem = "rag"

// RAGMetrics holds all Prometheus metrics for the question-answering
// pipeline. Initialize once at startup via InitMetrics().
type RAGMetrics struct {
	// RequestsTotal counts pipeline requests.
	// Labels: endpoint (ask, bootstrap, ingest), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by type.
	// Labels: endpoint, error_code (validation, search_error, llm_error, internal)
	ErrorsTotal *prometheus.CounterVec

	// StageDurationSeconds measures latency per pipeline stage.
	// Labels: stage (retrieval, generation, total)
	StageDurationSeconds *prometheus.HistogramVec

	// DocumentsRetrieved measures how many FAQ snippets each retrieval returned.
	DocumentsRetrieved prometheus.Histogram

	// ActiveRequests tracks in-flight ask requests.
	ActiveRequests prometheus.Gauge
}

// DefaultMetrics is the singleton instance of RAGMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *RAGMetrics

// InitMetrics creates and registers all Prometheus metrics. Calling it
// again returns the existing instance, so tests and embedded usage do not
// trip duplicate registration.
func InitMetrics() *RAGMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}

	DefaultMetrics = &RAGMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: ragSubsystem,
				Name:      "requests_total",
				Help:      "Total number of pipeline requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: ragSubsystem,
				Name:      "errors_total",
				Help:      "Total pipeline errors by endpoint and error type",
			},
			[]string{"endpoint", "error_code"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: ragSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Latency per pipeline stage in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage"},
		),

		DocumentsRetrieved: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: ragSubsystem,
				Name:      "documents_retrieved",
				Help:      "Number of FAQ snippets returned per retrieval",
				Buckets:   []float64{0, 1, 2, 3, 4, 5},
			},
		),

		ActiveRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: ragSubsystem,
				Name:      "active_requests",
				Help:      "Number of ask requests currently being processed",
			},
		),
	}

	return DefaultMetrics
}

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeSearch indicates a retrieval failure against the index.
	ErrorCodeSearch ErrorCode = "search_error"

	// ErrorCodeLLM indicates an LLM API failure.
	ErrorCodeLLM ErrorCode = "llm_error"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// Endpoint represents a pipeline endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointAsk is the question-answering endpoint.
	EndpointAsk Endpoint = "ask"

	// EndpointBootstrap is the course-data load endpoint.
	EndpointBootstrap Endpoint = "bootstrap"

	// EndpointIngest is the ad-hoc document ingestion endpoint.
	EndpointIngest Endpoint = "ingest"
)

// Pipeline stages for StageDurationSeconds.
const (
	StageRetrieval  = "retrieval"
	StageGeneration = "generation"
	StageTotal      = "total"
)

// RecordRequest records a completed request.
func (m *RAGMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a categorized error.
func (m *RAGMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func (m *RAGMetrics) ObserveStage(stage string, seconds float64) {
	m.StageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// ObserveDocuments records how many snippets a retrieval returned.
func (m *RAGMetrics) ObserveDocuments(count int) {
	m.DocumentsRetrieved.Observe(float64(count))
}

// RequestStarted increments the in-flight gauge.
func (m *RAGMetrics) RequestStarted() {
	m.ActiveRequests.Inc()
}

// RequestEnded decrements the in-flight gauge.
func (m *RAGMetrics) RequestEnded() {
	m.ActiveRequests.Dec()
}

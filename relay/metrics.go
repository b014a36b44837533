// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are registered on a registry owned by one Service, so tests
// can build many services in one process.
type metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionsCreated prometheus.Counter
	conflicts       *prometheus.CounterVec
	bundlesIssued   *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talkanova_relay_requests_total",
			Help: "Relay API requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talkanova_relay_request_duration_seconds",
			Help:    "Relay API request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "talkanova_relay_sessions_created_total",
			Help: "Peer sessions requested.",
		}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talkanova_relay_signal_conflicts_total",
			Help: "Offers and answers rejected because their round was already written.",
		}, []string{"type"}),
		bundlesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talkanova_relay_bundles_issued_total",
			Help: "Key bundles fetched, by whether a one-time pre-key was included.",
		}, []string{"one_time_pre_key"}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records every request under the mux pattern that served
// it.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package metrics wraps the responder's HTTP handler with request-rate,
// in-flight, and latency instrumentation, exported for scraping rather than
// pushed to a statsd daemon.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMonitor wraps an http.Handler, recording request rate, response
// codes, in-flight connections, and latency as Prometheus series.
type HTTPMonitor struct {
	clk                 clock.Clock
	handler             http.Handler
	connectionsInFlight int64

	requests    *prometheus.CounterVec
	inFlight    prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// NewHTTPMonitor returns a new initialized HTTPMonitor registered under
// registerer, tagging every series with service for multi-binary dashboards.
func NewHTTPMonitor(registerer prometheus.Registerer, clk clock.Clock, handler http.Handler, service string) *HTTPMonitor {
	requests := promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
		Name:        "ocsp_http_requests_total",
		Help:        "Count of HTTP requests served, labeled by method and response status code.",
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"method", "code"})

	inFlight := promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
		Name:        "ocsp_http_requests_in_flight",
		Help:        "Number of HTTP requests currently being served.",
		ConstLabels: prometheus.Labels{"service": service},
	})

	latency := promauto.With(registerer).NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ocsp_http_request_duration_seconds",
		Help:        "HTTP request latency in seconds, labeled by method and response status code.",
		ConstLabels: prometheus.Labels{"service": service},
		Buckets:     prometheus.DefBuckets,
	}, []string{"method", "code"})

	return &HTTPMonitor{
		clk:      clk,
		handler:  handler,
		requests: requests,
		inFlight: inFlight,
		latency:  latency,
	}
}

// statusCapturingWriter records the status code the wrapped handler wrote,
// defaulting to 200 the way net/http does when WriteHeader is never called.
type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (h *HTTPMonitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.connectionsInFlight, 1)
	h.inFlight.Inc()
	started := h.clk.Now()

	sw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
	h.handler.ServeHTTP(sw, r)

	atomic.AddInt64(&h.connectionsInFlight, -1)
	h.inFlight.Dec()

	code := http.StatusText(sw.status)
	if code == "" {
		code = "unknown"
	}
	elapsed := h.clk.Now().Sub(started).Seconds()
	h.requests.WithLabelValues(r.Method, code).Inc()
	h.latency.WithLabelValues(r.Method, code).Observe(elapsed)
}

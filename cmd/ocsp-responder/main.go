// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command ocsp-responder serves RFC 6960 OCSP responses over HTTP, per
// spec §6: POST with Content-Type application/ocsp-request, or GET with
// the request DER base64url-encoded in the last path segment.
package main

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/bseddon/ocsp-responder/certinfo"
	"github.com/bseddon/ocsp-responder/cmd"
	alog "github.com/bseddon/ocsp-responder/log"
	"github.com/bseddon/ocsp-responder/metrics"
	"github.com/bseddon/ocsp-responder/ocsp"
	"github.com/bseddon/ocsp-responder/registry"
	"github.com/bseddon/ocsp-responder/store"
)

const maxRequestBytes = 10 * 1024 // RFC 6960 DER OCSP requests are tiny; guard against abusive bodies.

var tracer oteltrace.Tracer = otel.Tracer("ocsp-responder")

// initTracing wires an OTLP/gRPC exporter behind the global tracer provider
// when an endpoint is configured, so tracer.Start in ServeHTTP produces
// real exported spans instead of running against the default no-op
// provider. With no endpoint it returns a no-op shutdown and leaves the
// global provider untouched.
func initTracing(ctx context.Context, endpoint string) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", "ocsp-responder"),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("ocsp-responder")
	return tp.Shutdown, nil
}

// config is the on-disk JSON configuration for this binary, built from the
// shared cmd.OCSPResponderConfig plus the fields that don't generalize to
// crl-build or ca-admin.
type config struct {
	OCSPResponder cmd.OCSPResponderConfig
	Syslog        cmd.SyslogConfig
}

// responderServer holds everything the HTTP handler needs per request:
// the loaded issuer registry, the revocation store (deduplicated when
// store.dedupeHits is set), and the
// operator-configured cache ceiling and response TTL.
type responderServer struct {
	registry *registry.Registry
	store    store.Store
	clk      clock.Clock
	logger   *alog.AuditLogger
	ttl      time.Duration
	maxAge   *time.Duration

	lookupErrors *prometheus.CounterVec
}

func newResponderServer(reg *registry.Registry, st store.Store, clk clock.Clock, logger *alog.AuditLogger, ttl time.Duration, maxAge *time.Duration, registerer prometheus.Registerer) *responderServer {
	lookupErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocsp_lookup_errors_total",
		Help: "Count of OCSP requests that resolved to an error response, labeled by error kind.",
	}, []string{"kind"})
	registerer.MustRegister(lookupErrors)
	return &responderServer{registry: reg, store: st, clk: clk, logger: logger, ttl: ttl, maxAge: maxAge, lookupErrors: lookupErrors}
}

func (s *responderServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ocsp.Serve")
	defer span.End()

	requestDER, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	respDER, producedAt, nextUpdate := s.handle(ctx, requestDER)
	s.writeResponse(w, respDER, producedAt, nextUpdate)
}

// readRequest extracts the DER request bytes per spec §6's HTTP contract,
// writing a 400 or 405 directly (these never reach the OCSP error mapper,
// since they are transport-level framing failures, not OCSP-level ones).
func (s *responderServer) readRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	switch r.Method {
	case http.MethodPost:
		if ct := r.Header.Get("Content-Type"); ct != "application/ocsp-request" {
			http.Error(w, "unsupported content type", http.StatusBadRequest)
			return nil, false
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
		if err != nil {
			http.Error(w, "error reading request body", http.StatusBadRequest)
			return nil, false
		}
		if len(body) == 0 || len(body) > maxRequestBytes {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return nil, false
		}
		return body, true

	case http.MethodGet:
		// A GET request may have been forwarded with extra leading slashes
		// before the base64url segment; only the last path segment is
		// decoded, so any number of them is tolerated.
		segment := r.URL.Path
		if idx := strings.LastIndex(segment, "/"); idx >= 0 {
			segment = segment[idx+1:]
		}
		segment = strings.TrimLeft(segment, "/")
		if segment == "" {
			http.Error(w, "missing request", http.StatusBadRequest)
			return nil, false
		}
		body, err := base64.RawURLEncoding.DecodeString(segment)
		if err != nil {
			// Tolerate standard base64url padding too.
			body, err = base64.URLEncoding.DecodeString(segment)
			if err != nil {
				http.Error(w, "invalid base64 request", http.StatusBadRequest)
				return nil, false
			}
		}
		if len(body) == 0 || len(body) > maxRequestBytes {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return nil, false
		}
		return body, true

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
}

// handle runs the request through parse -> lookup -> resolve -> build,
// returning the DER response body and, for successful responses, the
// timestamps the cache headers are computed from.
func (s *responderServer) handle(ctx context.Context, requestDER []byte) (respDER []byte, producedAt time.Time, nextUpdate time.Time) {
	now := s.clk.Now()

	parsed, err := ocsp.ParseRequest(requestDER)
	if err != nil {
		s.logLookupError("parse", err)
		return ocsp.MapError(err), time.Time{}, time.Time{}
	}

	entry, err := s.registry.Lookup(parsed.CertID.IssuerKeyHash)
	if err != nil {
		s.logLookupError("unknown_issuer", err)
		return ocsp.MapError(err), time.Time{}, time.Time{}
	}

	record, err := s.store.Fetch(parsed.CertID.SerialHex())
	var status ocsp.Status
	if err != nil {
		if err == ocsp.ErrNotFound {
			status = ocsp.Status{Kind: ocsp.Unknown}
		} else {
			s.logLookupError("store", err)
			return ocsp.MapError(err), time.Time{}, time.Time{}
		}
	} else {
		status, err = ocsp.Resolve(record, now)
		if err != nil {
			s.logLookupError("resolve", err)
			return ocsp.MapError(err), time.Time{}, time.Time{}
		}
	}

	respDER, err = ocsp.BuildSuccessResponse(parsed.CertID, status, now, s.ttl, entry.Signer)
	if err != nil {
		s.logLookupError("build", err)
		return ocsp.MapError(err), time.Time{}, time.Time{}
	}
	return respDER, now, now.Add(s.ttl)
}

func (s *responderServer) logLookupError(kind string, err error) {
	s.lookupErrors.WithLabelValues(kind).Inc()
	s.logger.Info(fmt.Sprintf("ocsp lookup failed (%s): %s", kind, err))
}

func (s *responderServer) writeResponse(w http.ResponseWriter, body []byte, producedAt, nextUpdate time.Time) {
	w.Header().Set("Content-Type", "application/ocsp-response")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	tag := sha1.Sum(body)
	w.Header().Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("%x", tag)))

	if !producedAt.IsZero() {
		w.Header().Set("Last-Modified", producedAt.UTC().Format(http.TimeFormat))
		w.Header().Set("Expires", nextUpdate.UTC().Format(http.TimeFormat))
		cc, stale := ocsp.CacheControl(producedAt, nextUpdate, s.maxAge)
		w.Header().Set("Cache-Control", cc)
		if stale {
			s.logger.Warning("serving OCSP response with nextUpdate already in the past")
		}
	} else {
		w.Header().Set("Cache-Control", "max-age=0,public,no-transform,must-revalidate")
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// openStore picks the revocation backing store from the config's
// StoreConfig, preferring the SQL backend when a DB connect string is
// configured (spec §6's Store collaborator, §12).
func openStore(cfg cmd.StoreConfig) (store.Store, error) {
	if cfg.DBConnect != "" {
		return store.NewSQLStore(string(cfg.DBConnect))
	}
	if cfg.File != "" {
		return &store.FileStore{Path: cfg.File}, nil
	}
	return nil, fmt.Errorf("store config has neither file nor dbConnect set")
}

func main() {
	configFile := flag.String("config", "", "File path to the configuration file for this service")
	flag.Parse()
	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	var c config
	err := cmd.ReadConfigFile(*configFile, &c)
	cmd.FailOnError(err, "reading config file")
	err = cmd.ValidateConfig(c.OCSPResponder)
	cmd.FailOnError(err, "validating config")

	stats, logger := cmd.StatsAndLogging(c.Syslog)
	logger.Info(cmd.VersionString())

	shutdownTracing, err := initTracing(context.Background(), c.OCSPResponder.Tracing.OTLPEndpoint)
	cmd.FailOnError(err, "initializing tracing")

	clk := cmd.Clock()

	reg, err := registry.Load(c.OCSPResponder.Registry, certinfo.X509Collaborator{})
	cmd.FailOnError(err, "loading responder registry")
	logger.Info(fmt.Sprintf("loaded %d issuer(s) into the responder registry", reg.Len()))

	backingStore, err := openStore(c.OCSPResponder.Store)
	cmd.FailOnError(err, "opening revocation store")
	var st store.Store = backingStore
	if c.OCSPResponder.Store.DedupeHits {
		st = store.Dedupe(backingStore)
	}

	ttl := c.OCSPResponder.TTL.Duration
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	var maxAge *time.Duration
	if c.OCSPResponder.MaxAge != nil {
		d := c.OCSPResponder.MaxAge.Duration
		maxAge = &d
	}

	server := newResponderServer(reg, st, clk, logger, ttl, maxAge, stats)
	monitored := metrics.NewHTTPMonitor(stats, clk, server, "ocsp-responder")

	mux := http.NewServeMux()
	mux.Handle("/", monitored)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    c.OCSPResponder.ListenAddress,
		Handler: mux,
	}

	done := make(chan bool)
	go cmd.CatchSignals(logger, func() {
		shutdownTimeout := c.OCSPResponder.ShutdownStopTimeout.Duration
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
		if err := shutdownTracing(ctx); err != nil {
			logger.Warning(fmt.Sprintf("shutting down trace exporter: %s", err))
		}
		done <- true
	})

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		cmd.FailOnError(err, "running HTTP server")
	}

	<-done
}

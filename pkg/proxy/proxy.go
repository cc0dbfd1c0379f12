// Package proxy implements the gateway HTTP surface: it forwards frontend
// API requests to the resolved backend, attaching the computed auth headers.
package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/agentgate/agentgate/pkg/deployment"
	"github.com/agentgate/agentgate/pkg/endpoint"
	"github.com/agentgate/agentgate/pkg/errors"
	"github.com/agentgate/agentgate/pkg/logger"
	"github.com/agentgate/agentgate/pkg/networking"
)

// requestIDHeader carries the correlation id to the backend.
const requestIDHeader = "X-Request-Id"

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderSource computes the headers for an outbound backend request.
// *auth.HeaderProvider is the production implementation.
type HeaderSource interface {
	Headers(ctx context.Context) (map[string]string, error)
}

// Gateway forwards frontend requests to the backend selected by the
// deployment configuration. It holds no mutable state after construction,
// so concurrent requests share it safely.
type Gateway struct {
	cfg       *deployment.Config
	headers   HeaderSource
	endpoints *endpoint.Builder
	transport http.RoundTripper
	log       *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTransport overrides the outbound transport. Intended for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.transport = rt
	}
}

// WithLogger overrides the injected logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		g.log = l
	}
}

// NewGateway creates a Gateway for the given deployment configuration.
func NewGateway(cfg *deployment.Config, headers HeaderSource, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:       cfg,
		headers:   headers,
		endpoints: endpoint.NewBuilder(cfg),
		transport: networking.NewHttpClientBuilder().BuildTransport(),
		log:       logger.Get(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Router returns the HTTP handler exposing the gateway API.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(g.requestID)
	r.Use(g.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", g.forward(endpoint.OperationQuery, false))
		r.Post("/streamQuery", g.forward(endpoint.OperationStreamQuery, true))
		r.HandleFunc("/sessions", g.forward(endpoint.OperationSessions, false))
		r.HandleFunc("/sessions/*", g.forward(endpoint.OperationSessions, false))
	})

	return r
}

// forward builds a handler that proxies the inbound request to the backend
// URL resolved for the given operation kind. Streaming operations flush the
// response as it arrives so SSE events are not buffered.
func (g *Gateway) forward(op endpoint.Operation, stream bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logicalPath := strings.TrimPrefix(r.URL.Path, "/api")

		target, err := g.endpoints.BuildURL(op, logicalPath)
		if err != nil {
			g.writeError(w, r, err)
			return
		}

		targetURL, err := url.Parse(target)
		if err != nil {
			g.writeError(w, r, errors.NewConfigurationError("invalid backend URL "+target, err))
			return
		}

		headers, err := g.headers.Headers(r.Context())
		if err != nil {
			g.writeError(w, r, err)
			return
		}

		var flushInterval time.Duration
		if stream {
			// Negative means flush immediately after each write.
			flushInterval = -1
		}

		rp := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				out := pr.Out
				out.URL = targetURL
				out.URL.RawQuery = pr.In.URL.RawQuery
				out.Host = targetURL.Host
				for k, v := range headers {
					out.Header.Set(k, v)
				}
				if id, ok := pr.In.Context().Value(requestIDKey).(string); ok {
					out.Header.Set(requestIDHeader, id)
				}
			},
			Transport:     g.transport,
			FlushInterval: flushInterval,
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				g.writeError(w, r, errors.NewTransportError("backend request failed", err))
			},
		}

		rp.ServeHTTP(w, r)
	}
}

// requestID assigns a correlation id to each request, reusing an inbound
// X-Request-Id when the caller supplied one.
func (g *Gateway) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gateway) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		id, _ := r.Context().Value(requestIDKey).(string)
		g.log.Info("request handled",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

// writeError maps resolver error kinds to HTTP responses: configuration
// errors are server faults, auth and transport failures are upstream faults.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsAuthentication(err), errors.IsTransport(err):
		status = http.StatusBadGateway
	case errors.IsConfiguration(err):
		status = http.StatusInternalServerError
	}

	id, _ := r.Context().Value(requestIDKey).(string)
	g.log.Error("request failed",
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err.Error(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

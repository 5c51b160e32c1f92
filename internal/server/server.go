// Package server is the backend HTTP service the voice client talks to.
// It exposes POST /extract_context and POST /get_recipes, plus /healthz
// and /metrics for operators.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammamikhairi/recipevoice/internal/backend"
	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Route patterns for the operator endpoints.
const (
	PathHealth  = "/healthz"
	PathMetrics = "/metrics"
)

// maxRequestBody caps how much of a request body is read.
const maxRequestBody = 1 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Option configures the Server.
type Option func(*Server)

// WithTimeouts sets the HTTP read and write timeouts. Retrieval can take a
// while when nutrition is estimated, so the write timeout should be
// generous.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithRateLimit limits requests per client IP on the API routes. A rate
// of zero disables limiting.
func WithRateLimit(rate int, window time.Duration) Option {
	return func(s *Server) {
		if rate > 0 {
			s.limiter = NewRateLimiter(rate, window)
		}
	}
}

// WithSources lists the recipe source names reported by /healthz.
func WithSources(names []string) Option {
	return func(s *Server) { s.sources = names }
}

// Server serves the extraction and retrieval API.
type Server struct {
	addr      string
	extractor domain.ContextExtractor
	retriever domain.RecipeRetriever
	log       *logger.Logger

	mux     *http.ServeMux
	limiter *RateLimiter
	checks  map[string]HealthCheck
	sources []string

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu     sync.Mutex
	server *http.Server
}

// New creates a server listening on addr once Run is called.
func New(addr string, extractor domain.ContextExtractor, retriever domain.RecipeRetriever, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		extractor:    extractor,
		retriever:    retriever,
		log:          log,
		mux:          http.NewServeMux(),
		checks:       make(map[string]HealthCheck),
		readTimeout:  10 * time.Second,
		writeTimeout: 90 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}

	s.mux.HandleFunc("POST "+backend.PathExtractContext, s.limit(s.handleExtractContext))
	s.mux.HandleFunc("POST "+backend.PathGetRecipes, s.limit(s.handleGetRecipes))
	s.mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	s.mux.Handle("GET "+PathMetrics, promhttp.Handler())
	return s
}

// Handler returns the full handler chain, middleware included.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = cors(h)
	h = s.observe(h)
	h = requestID(h)
	h = s.recoverPanics(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("server: graceful shutdown failed, forcing close: %v", err)
		if err := srv.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(next)
}

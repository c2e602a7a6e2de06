// Package server exposes the GHAS aggregations over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/locktivity/ghas-metrics/internal/collector"
	"github.com/locktivity/ghas-metrics/internal/logging"
)

// Metrics is the aggregation surface the routes depend on.
type Metrics interface {
	DependabotSummary(ctx context.Context, org string) (*collector.DependabotSummary, error)
	Coverage(ctx context.Context, org string) ([]collector.RepoCoverage, error)
	PushProtection(ctx context.Context, org string) *collector.PushProtectionStats
	MTTR(ctx context.Context, org string, since time.Time) *collector.MttrResult
	Committers(ctx context.Context, org string) *collector.GhasCommitters
}

var _ Metrics = (*collector.Collector)(nil)

// Options configures a Server.
type Options struct {
	BasePath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the metrics routes.
type Server struct {
	metrics Metrics
	logger  *log.Logger
	opts    Options

	// lifetime bounds aggregations detached from their requests; it ends
	// when the server shuts down.
	lifetime context.Context
}

// New creates a server. A nil logger discards output.
func New(metrics Metrics, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		lifetime: context.Background(),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	api := chi.NewRouter()
	api.Route("/org/{org}", func(r chi.Router) {
		r.Use(validOrg)
		r.Get("/dependabot", s.handleDependabot)
		r.Get("/mttr", s.handleMTTR)
		r.Get("/summary", s.handleSummary)
		r.Get("/coverage", s.handleCoverage)
		r.Get("/push-protection", s.handlePushProtection)
		r.Get("/committers", s.handleCommitters)
	})

	if s.opts.BasePath == "" || s.opts.BasePath == "/" {
		r.Mount("/", api)
	} else {
		r.Mount(s.opts.BasePath, api)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. In-flight aggregations are cancelled once shutdown starts.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lifetime, stop := context.WithCancel(context.Background())
	defer stop()
	s.lifetime = lifetime

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr, "base_path", s.opts.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	stop()

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// detach returns a context that survives the caller disconnecting, so an
// aggregation still completes and populates the cache, but ends with the
// server.
func (s *Server) detach(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	stop := context.AfterFunc(s.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Package server exposes the streaming transcription service over HTTP.
//
// The main endpoint is GET /v1/stream, a WebSocket that accepts raw audio
// frames and returns transcription results as JSON text messages. Liveness,
// readiness, and Prometheus metrics are served alongside on the same
// listener. Each accepted stream owns one [session.Session]; the server only
// shuttles frames between the socket and the session's channels.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scrivano/scrivano/internal/config"
	"github.com/scrivano/scrivano/internal/health"
	"github.com/scrivano/scrivano/internal/observe"
	"github.com/scrivano/scrivano/internal/recording"
	"github.com/scrivano/scrivano/pkg/provider/stt"
)

// defaultDrainTimeout is how long live sessions get to flush their buffered
// audio after a shutdown signal before they are cancelled outright.
const defaultDrainTimeout = 5 * time.Second

// Server ties the WebSocket ingress, health endpoints, and metrics endpoint
// together and manages the lifecycle of live transcription sessions.
type Server struct {
	cfg     config.ServerConfig
	tr      stt.Transcriber
	log     *slog.Logger
	metrics *observe.Metrics

	archiver     *recording.Archiver
	sttOpts      stt.Options
	checkers     []health.Checker
	drainTimeout time.Duration

	// sessions tracks live stream handlers for the drain phase.
	sessions sync.WaitGroup

	// lifecycle is cancelled to force-stop sessions that outlive the drain.
	lifecycle       context.Context
	cancelLifecycle context.CancelFunc
}

// Option configures a Server during construction.
type Option func(*Server)

// WithLogger sets the base logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics overrides the metric instruments (tests use a manual reader).
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithArchiver enables per-session WAV archiving.
func WithArchiver(a *recording.Archiver) Option {
	return func(s *Server) { s.archiver = a }
}

// WithTranscribeOptions overrides the decoding options handed to each session.
func WithTranscribeOptions(opts stt.Options) Option {
	return func(s *Server) { s.sttOpts = opts }
}

// WithHealthCheckers registers readiness checks served on /readyz.
func WithHealthCheckers(checkers ...health.Checker) Option {
	return func(s *Server) { s.checkers = checkers }
}

// WithDrainTimeout overrides the shutdown drain window.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.drainTimeout = d
		}
	}
}

// New creates a Server around the given transcriber.
func New(cfg config.ServerConfig, tr stt.Transcriber, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		tr:           tr,
		log:          slog.Default(),
		sttOpts:      stt.DefaultOptions(),
		drainTimeout: defaultDrainTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.lifecycle, s.cancelLifecycle = context.WithCancel(context.Background())
	return s
}

// Handler returns the full HTTP handler: stream endpoint, health probes, and
// Prometheus metrics, wrapped in the tracing/metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(s.checkers...).Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

// Run serves until ctx is cancelled, then drains: the listener stops
// accepting, live sessions get [WithDrainTimeout] to flush their buffers, and
// stragglers are cancelled. Run returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", srv.Addr, "tls", s.cfg.TLS != nil)
		if s.cfg.TLS != nil {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown requested, draining sessions", "timeout", s.drainTimeout)

	// Stop accepting new connections. WebSocket connections are hijacked and
	// unaffected by Shutdown; the drain below handles those.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown incomplete", "error", err)
	}

	drained := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(s.drainTimeout):
		s.log.Warn("drain timeout exceeded, cancelling remaining sessions")
		s.cancelLifecycle()
		<-drained
	}
	s.cancelLifecycle()

	s.log.Info("server stopped")
	return nil
}

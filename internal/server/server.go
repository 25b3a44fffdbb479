// Package server exposes the processing facade over HTTP so a dashboard can
// use the worker as a local sidecar.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aatumaykin/ssrworker/internal/config"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/processing"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

// Backend is the pool as seen by the server. *workers.Pool implements it.
type Backend interface {
	processing.Runner
	Stats() workers.Stats
}

// Options configure optional server features.
type Options struct {
	// Views is the list returned by GET /v1/views.
	Views []string
	// Registry enables GET /metrics when set.
	Registry *prometheus.Registry
}

// Server serves the HTTP API.
type Server struct {
	cfg     config.ServerConfig
	backend Backend
	opts    Options
	logger  *logger.Logger
	engine  *gin.Engine
	http    *http.Server
}

// New builds the router. Nothing listens until Serve.
func New(cfg config.ServerConfig, backend Backend, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		cfg:     cfg,
		backend: backend,
		opts:    opts,
		logger:  log,
	}
	s.engine = s.routes()
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))

	router.GET("/health", s.health)
	if s.opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.Use(bodyLimit(s.cfg.MaxBodyBytes()))
	{
		v1.POST("/parse", s.parse)
		v1.POST("/transform", s.transform)
		v1.POST("/filter", s.filter)
		v1.GET("/views", s.listViews)
		v1.GET("/stats", s.stats)
	}

	return router
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("http server listening", logger.Field{Key: "addr", Value: ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

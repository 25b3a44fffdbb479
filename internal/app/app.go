// Package app wires the process-wide services: the execution pool, the
// processors built on it, the metrics registry and the scheduled pool
// report. The pool is created lazily on first use and never recreated.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aatumaykin/ssrworker/internal/config"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/processing"
	"github.com/aatumaykin/ssrworker/internal/views"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config *config.Config
	logger *logger.Logger

	// Metrics; nil when disabled
	registry *prometheus.Registry
	poolProm *workers.PrometheusMetrics

	// Background task execution
	poolOnce sync.Once
	pool     *workers.Pool
	poolErr  error

	// Scheduled pool report
	reporter *Reporter

	// Thread-safety
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a new App instance with the provided configuration and logger.
// Nothing is started until Start or the first Pool call.
func New(cfg *config.Config, log *logger.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Nop()
	}

	a := &App{
		config: cfg,
		logger: log,
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.poolProm = workers.InitPrometheusMetrics(cfg.Metrics.Namespace, a.registry)
	}

	return a
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Pool returns the shared execution pool, creating it on first call.
func (a *App) Pool() (*workers.Pool, error) {
	a.poolOnce.Do(func() {
		opts := []workers.Option{}
		if a.poolProm != nil {
			opts = append(opts, workers.WithPrometheus(a.poolProm))
		}

		a.pool, a.poolErr = workers.NewPool(workers.Config{
			Size:        a.config.Pool.Size,
			TaskTimeout: a.config.Pool.TaskTimeout(),
			StrictViews: a.config.Processing.StrictViews,
		}, a.logger.With(logger.Field{Key: "component", Value: "pool"}), opts...)
		if a.poolErr != nil {
			a.poolErr = fmt.Errorf("failed to create execution pool: %w", a.poolErr)
		}
	})
	return a.pool, a.poolErr
}

// NewProcessor returns a processor bound to the shared pool.
func (a *App) NewProcessor() (*processing.Processor, error) {
	pool, err := a.Pool()
	if err != nil {
		return nil, err
	}
	return processing.New(pool, a.logger.With(logger.Field{Key: "component", Value: "processor"})), nil
}

// ViewNames lists the views executors understand.
func (a *App) ViewNames() []string {
	return views.NewRegistry(a.config.Processing.StrictViews).Names()
}

// Start creates the pool and starts the scheduled report when configured.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("app already started")
	}

	pool, err := a.Pool()
	if err != nil {
		return err
	}

	if schedule := a.config.Metrics.ReportSchedule; schedule != "" {
		reporter, err := NewReporter(schedule, pool, a.logger.With(logger.Field{Key: "component", Value: "reporter"}))
		if err != nil {
			return err
		}
		reporter.Start(ctx)
		a.reporter = reporter
	}

	a.started = true
	a.logger.InfoCtx(ctx, "application started",
		logger.Field{Key: "executors", Value: pool.Size()},
		logger.Field{Key: "metrics", Value: a.registry != nil})
	return nil
}

package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/ssrworker/internal/config"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

// StatsSource is what the reporter reads. *workers.Pool implements it.
type StatsSource interface {
	Stats() workers.Stats
	Metrics() workers.PoolMetrics
}

// Reporter logs pool state on a cron schedule.
type Reporter struct {
	cron    *cron.Cron
	source  StatsSource
	logger  *logger.Logger
	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewReporter validates the schedule and registers the report job.
func NewReporter(schedule string, source StatsSource, log *logger.Logger) (*Reporter, error) {
	r := &Reporter{
		cron:   cron.New(cron.WithParser(config.ScheduleParser)),
		source: source,
		logger: log,
	}

	if _, err := r.cron.AddFunc(schedule, r.report); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule until Stop or until ctx is cancelled.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true
	r.done = make(chan struct{})
	r.cron.Start()

	done := r.done
	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-done:
		}
	}()
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	r.started = false
	close(r.done)
	<-r.cron.Stop().Done()
}

func (r *Reporter) report() {
	s := r.source.Stats()
	m := r.source.Metrics()

	var avgMs int64
	if settled := m.TasksCompleted + m.TasksFailed; settled > 0 {
		avgMs = m.TotalDuration.Milliseconds() / int64(settled)
	}

	r.logger.Info("pool stats",
		logger.Field{Key: "executors", Value: s.Executors},
		logger.Field{Key: "idle", Value: s.Idle},
		logger.Field{Key: "queued", Value: s.Queued},
		logger.Field{Key: "in_flight", Value: s.InFlight},
		logger.Field{Key: "submitted", Value: m.TasksSubmitted},
		logger.Field{Key: "completed", Value: m.TasksCompleted},
		logger.Field{Key: "failed", Value: m.TasksFailed},
		logger.Field{Key: "rejected", Value: m.TasksRejected},
		logger.Field{Key: "avg_duration_ms", Value: avgMs})
}

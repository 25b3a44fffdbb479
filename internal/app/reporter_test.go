package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

type staticSource struct {
	stats   workers.Stats
	metrics workers.PoolMetrics
}

func (s staticSource) Stats() workers.Stats         { return s.stats }
func (s staticSource) Metrics() workers.PoolMetrics { return s.metrics }

func TestReporter_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.log")
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	source := staticSource{
		stats: workers.Stats{Executors: 4, Idle: 3, Queued: 0, InFlight: 1},
		metrics: workers.PoolMetrics{
			TasksSubmitted: 10,
			TasksCompleted: 8,
			TasksFailed:    2,
			TotalDuration:  500 * time.Millisecond,
		},
	}

	r, err := NewReporter("@every 1h", source, log)
	require.NoError(t, err)
	r.report()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"pool stats"`)
	assert.Contains(t, out, `"executors":4`)
	assert.Contains(t, out, `"in_flight":1`)
	assert.Contains(t, out, `"avg_duration_ms":50`)
}

func TestReporter_InvalidSchedule(t *testing.T) {
	_, err := NewReporter("sometimes", staticSource{}, logger.Nop())
	assert.Error(t, err)
}

func TestReporter_StartStop(t *testing.T) {
	r, err := NewReporter("*/5 * * * *", staticSource{}, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	r.Start(ctx)
	r.Stop()
	r.Stop()

	// restart, then stop through the context
	r.Start(ctx)
	cancel()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return !r.started
	}, time.Second, 5*time.Millisecond)
}

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ssrworker/internal/config"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/protocol"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Pool.Size = 2
	return cfg
}

func TestApp_PoolIsShared(t *testing.T) {
	a := New(testConfig(), logger.Nop())
	t.Cleanup(func() { _ = a.Shutdown() })

	p1, err := a.Pool()
	require.NoError(t, err)
	p2, err := a.Pool()
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 2, p1.Size())
	assert.Nil(t, a.Registry())
}

func TestApp_NewProcessor(t *testing.T) {
	a := New(testConfig(), logger.Nop())
	t.Cleanup(func() { _ = a.Shutdown() })

	proc, err := a.NewProcessor()
	require.NoError(t, err)

	records := []protocol.Record{
		{"genomeID": "G1", "motif": "AT"},
		{"genomeID": "G2", "motif": "CAG"},
	}
	out, err := proc.Filter(context.Background(), records, map[string]any{"motif": "ag"}, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "G2", out[0]["genomeID"])
}

func TestApp_Metrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "ssrtest"

	a := New(cfg, logger.Nop())
	t.Cleanup(func() { _ = a.Shutdown() })
	require.NotNil(t, a.Registry())

	pool, err := a.Pool()
	require.NoError(t, err)
	_, err = pool.Run(context.Background(), protocol.NewFilterTask(nil, nil, ""))
	require.NoError(t, err)

	families, err := a.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ssrtest_pool_executors"])
	assert.True(t, names["ssrtest_pool_tasks_total"])
	assert.True(t, names["go_goroutines"])
}

func TestApp_StartAndShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.ReportSchedule = "@every 1h"

	a := New(cfg, logger.Nop())
	require.NoError(t, a.Start(context.Background()))
	assert.Error(t, a.Start(context.Background()))

	pool, err := a.Pool()
	require.NoError(t, err)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())

	assert.True(t, pool.Stats().Terminated)

	// the pool is never recreated
	again, err := a.Pool()
	require.NoError(t, err)
	assert.Same(t, pool, again)

	_, err = again.Run(context.Background(), protocol.NewFilterTask(nil, nil, ""))
	assert.ErrorIs(t, err, workers.ErrPoolTerminated)
}

func TestApp_ShutdownBeforePool(t *testing.T) {
	a := New(testConfig(), logger.Nop())
	require.NoError(t, a.Shutdown())

	_, err := a.Pool()
	assert.ErrorIs(t, err, workers.ErrPoolTerminated)

	_, err = a.NewProcessor()
	assert.ErrorIs(t, err, workers.ErrPoolTerminated)
}

func TestApp_StartInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.ReportSchedule = "not a schedule"

	a := New(cfg, logger.Nop())
	t.Cleanup(func() { _ = a.Shutdown() })

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report schedule")
}

func TestApp_ViewNames(t *testing.T) {
	a := New(nil, nil)
	names := a.ViewNames()
	assert.Contains(t, names, "summary")
	assert.Contains(t, names, "reference_comparison")
	assert.IsNonDecreasing(t, names)
}

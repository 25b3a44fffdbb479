package processing

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ssrworker/internal/columnar"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/protocol"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

type countingRunner struct {
	calls atomic.Int32
	run   func(ctx context.Context, task protocol.Task) (any, error)
}

func (r *countingRunner) Run(ctx context.Context, task protocol.Task) (any, error) {
	r.calls.Add(1)
	if r.run != nil {
		return r.run(ctx, task)
	}
	return nil, nil
}

func newPoolProcessor(t *testing.T) *Processor {
	t.Helper()
	pool, err := workers.NewPool(workers.Config{Size: 2}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Terminate)
	return New(pool, logger.Nop())
}

func fixture() []protocol.Record {
	return []protocol.Record{
		{"genomeID": "G1", "category": "Clade I", "country": "India", "motif": "AT", "GC_per": 40.0},
		{"genomeID": "G2", "category": "Clade II", "country": "Peru", "motif": "AT", "GC_per": 45.5},
		{"genomeID": "G3", "category": "Clade I", "country": "Indonesia", "motif": "GGC", "GC_per": 39.0},
	}
}

func encodeFixture(t *testing.T) []byte {
	t.Helper()
	buf, err := columnar.Encode(fixture(), []columnar.Column{
		{Name: "genomeID", Type: columnar.String},
		{Name: "category", Type: columnar.String},
		{Name: "country", Type: columnar.String},
		{Name: "motif", Type: columnar.String},
		{Name: "GC_per", Type: columnar.Float64},
	})
	require.NoError(t, err)
	return buf
}

func TestProcessor_ParseBuffer(t *testing.T) {
	p := newPoolProcessor(t)
	buf := encodeFixture(t)

	tests := []struct {
		name  string
		input any
	}{
		{name: "bytes", input: buf},
		{name: "reader", input: bytes.NewReader(buf)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := p.ParseBuffer(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, fixture(), records)

			state := p.State()
			assert.Equal(t, records, state.Data)
			assert.False(t, state.Busy)
			assert.NoError(t, state.Err)
		})
	}
}

func TestProcessor_ParseBufferBypassesPool(t *testing.T) {
	runner := &countingRunner{}
	p := New(runner, logger.Nop())

	records, err := p.ParseBuffer(context.Background(), fixture())
	require.NoError(t, err)
	assert.Equal(t, fixture(), records)

	plain := []map[string]any{{"genomeID": "G9"}}
	records, err = p.ParseBuffer(context.Background(), plain)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Record{{"genomeID": "G9"}}, records)
	assert.Equal(t, records, p.State().Data)

	records, err = p.ParseBuffer(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)

	assert.Zero(t, runner.calls.Load())
}

func TestProcessor_ParseBufferErrors(t *testing.T) {
	p := newPoolProcessor(t)

	_, err := p.ParseBuffer(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnsupportedInput)
	assert.ErrorIs(t, p.State().Err, ErrUnsupportedInput)

	_, err = p.ParseBuffer(context.Background(), iotest.ErrReader(errors.New("disk gone")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")

	_, err = p.ParseBuffer(context.Background(), []byte("definitely not arrow"))
	require.Error(t, err)
	assert.True(t, workers.IsTaskError(err))

	state := p.State()
	assert.Equal(t, err, state.Err)
	assert.False(t, state.Busy)
	assert.Nil(t, state.Data)

	// a later success clears the error
	_, err = p.ParseBuffer(context.Background(), encodeFixture(t))
	require.NoError(t, err)
	assert.NoError(t, p.State().Err)
}

func TestProcessor_Transform(t *testing.T) {
	p := newPoolProcessor(t)

	value, err := p.Transform(context.Background(), fixture(), "category_country", "")
	require.NoError(t, err)
	rows, err := protocol.AsRecords(value)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	value, err = p.Transform(context.Background(), fixture(), "no_such_view", "")
	require.NoError(t, err)
	rows, err = protocol.AsRecords(value)
	require.NoError(t, err)
	assert.Equal(t, fixture(), rows)

	_, err = p.Transform(context.Background(), fixture(), "reference_comparison", "")
	require.Error(t, err)
	assert.Equal(t, err, p.State().Err)
}

func TestProcessor_Filter(t *testing.T) {
	p := newPoolProcessor(t)
	input := fixture()

	out, err := p.Filter(context.Background(), input, map[string]any{"country": "IND"}, "GC_per:asc")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "G3", out[0]["genomeID"])
	assert.Equal(t, "G1", out[1]["genomeID"])

	out, err = p.Filter(context.Background(), input, map[string]any{"motif": []any{"GGC"}}, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "G3", out[0]["genomeID"])

	_, err = p.Filter(context.Background(), input, nil, "GC_per:sideways")
	require.Error(t, err)
	assert.Error(t, p.State().Err)

	// input untouched
	assert.Equal(t, fixture(), input)
}

func TestProcessor_BusyWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	runner := &countingRunner{run: func(ctx context.Context, task protocol.Task) (any, error) {
		close(entered)
		<-release
		return []protocol.Record{}, nil
	}}
	p := New(runner, logger.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := p.Filter(context.Background(), fixture(), nil, "")
		done <- err
	}()

	<-entered
	assert.True(t, p.State().Busy)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("filter did not return")
	}
	assert.False(t, p.State().Busy)
}

func TestProcessor_PoolTerminated(t *testing.T) {
	pool, err := workers.NewPool(workers.Config{Size: 2}, logger.Nop())
	require.NoError(t, err)
	pool.Terminate()

	p := New(pool, logger.Nop())
	_, err = p.Transform(context.Background(), fixture(), "summary", "")
	assert.ErrorIs(t, err, workers.ErrPoolTerminated)
	assert.ErrorIs(t, p.State().Err, workers.ErrPoolTerminated)
}

// stagedRunner blocks transforms until released and fails every filter.
func stagedRunner(boom error) (*countingRunner, chan struct{}, chan struct{}) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	runner := &countingRunner{run: func(ctx context.Context, task protocol.Task) (any, error) {
		if task.Kind == protocol.KindFilter {
			return nil, boom
		}
		entered <- struct{}{}
		<-release
		return "ok", nil
	}}
	return runner, entered, release
}

func transformAsync(p *Processor) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := p.Transform(context.Background(), fixture(), "summary", "")
		done <- err
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("transform did not return")
	}
}

func TestProcessor_ErrorKeptUntilLaterSuccess(t *testing.T) {
	boom := errors.New("boom")
	runner, entered, release := stagedRunner(boom)
	p := New(runner, logger.Nop())

	_, err := p.Filter(context.Background(), fixture(), nil, "")
	require.ErrorIs(t, err, boom)

	done := transformAsync(p)
	<-entered

	state := p.State()
	assert.True(t, state.Busy)
	assert.ErrorIs(t, state.Err, boom)

	close(release)
	waitDone(t, done)
	assert.NoError(t, p.State().Err)
}

func TestProcessor_LateSuccessKeepsNewerError(t *testing.T) {
	boom := errors.New("boom")
	runner, entered, release := stagedRunner(boom)
	p := New(runner, logger.Nop())

	done := transformAsync(p)
	<-entered

	_, err := p.Filter(context.Background(), fixture(), nil, "")
	require.ErrorIs(t, err, boom)

	close(release)
	waitDone(t, done)

	state := p.State()
	assert.False(t, state.Busy)
	assert.ErrorIs(t, state.Err, boom)
}

// Package processing is the consumer-facing facade over the execution pool.
// A Processor builds tasks, runs them on the pool and keeps the state a
// consumer binds to: the last parsed data, a busy flag and the last error.
package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// ErrUnsupportedInput is returned by ParseBuffer for inputs it cannot parse.
var ErrUnsupportedInput = errors.New("unsupported input type")

// Runner executes a task and waits for its value. *workers.Pool implements it.
type Runner interface {
	Run(ctx context.Context, task protocol.Task) (any, error)
}

// State is what a consumer observes. Err is the outcome of the most recently
// started call that has finished: a failure stays visible until a call
// started after it succeeds, and an older call finishing late never
// overwrites the outcome of a newer one. Data follows the same rule.
type State struct {
	Data []protocol.Record
	Busy bool
	Err  error
}

// Processor is safe for concurrent use. Busy stays true while any of its
// calls is in flight.
type Processor struct {
	runner Runner
	logger *logger.Logger

	mu       sync.RWMutex
	data     []protocol.Record
	err      error
	inFlight int

	seq     uint64
	dataSeq uint64
	errSeq  uint64
}

// New creates a Processor that runs tasks on runner.
func New(runner Runner, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{
		runner: runner,
		logger: log,
	}
}

// State returns a snapshot of the processor state.
func (p *Processor) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return State{
		Data: p.data,
		Busy: p.inFlight > 0,
		Err:  p.err,
	}
}

// ParseBuffer decodes a columnar payload into records and stores them as the
// current data. input may be []byte, an io.Reader, or records that were
// already decoded; decoded records skip the pool. A nil input yields nil.
func (p *Processor) ParseBuffer(ctx context.Context, input any) ([]protocol.Record, error) {
	var buf []byte

	switch v := input.(type) {
	case nil:
		return nil, nil
	case []protocol.Record:
		p.setData(p.next(), v)
		return v, nil
	case []map[string]any:
		records := make([]protocol.Record, len(v))
		for i, m := range v {
			records[i] = protocol.Record(m)
		}
		p.setData(p.next(), records)
		return records, nil
	case []byte:
		buf = v
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			err = fmt.Errorf("failed to read input: %w", err)
			p.setErr(p.next(), err)
			return nil, err
		}
		buf = data
	default:
		err := fmt.Errorf("%w: %T", ErrUnsupportedInput, input)
		p.setErr(p.next(), err)
		return nil, err
	}

	value, seq, err := p.run(ctx, protocol.NewParseTask(buf))
	if err != nil {
		return nil, err
	}

	records, err := protocol.AsRecords(value)
	if err != nil {
		p.setErr(seq, err)
		return nil, err
	}

	p.setData(seq, records)
	return records, nil
}

// Transform runs the named view over records. The shape of the value
// depends on the view.
func (p *Processor) Transform(ctx context.Context, records []protocol.Record, view, referenceKey string) (any, error) {
	value, seq, err := p.run(ctx, protocol.NewTransformTask(records, view, referenceKey))
	if err != nil {
		return nil, err
	}
	p.setErr(seq, nil)
	return value, nil
}

// Filter keeps the records matching every predicate, optionally sorted by a
// "column:asc|desc" spec.
func (p *Processor) Filter(ctx context.Context, records []protocol.Record, predicates map[string]any, sort string) ([]protocol.Record, error) {
	value, seq, err := p.run(ctx, protocol.NewFilterTask(records, predicates, sort))
	if err != nil {
		return nil, err
	}

	out, err := protocol.AsRecords(value)
	p.setErr(seq, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// run tracks busy state around one pool call and records a failure. On
// success the caller settles the returned sequence number.
func (p *Processor) run(ctx context.Context, task protocol.Task) (any, uint64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	p.inFlight++
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	start := time.Now()
	value, err := p.runner.Run(ctx, task)

	p.mu.Lock()
	p.inFlight--
	if err != nil {
		p.setErrLocked(seq, err)
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.WarnCtx(ctx, "processing task failed",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "task_kind", Value: task.Kind},
			logger.Field{Key: "error", Value: err.Error()})
		return nil, 0, err
	}

	p.logger.DebugCtx(ctx, "processing task completed",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_kind", Value: task.Kind},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})

	return value, seq, nil
}

// next numbers a call that settles without the pool.
func (p *Processor) next() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.seq
}

func (p *Processor) setData(seq uint64, records []protocol.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq > p.dataSeq {
		p.data = records
		p.dataSeq = seq
	}
	p.setErrLocked(seq, nil)
}

func (p *Processor) setErr(seq uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setErrLocked(seq, err)
}

func (p *Processor) setErrLocked(seq uint64, err error) {
	if seq > p.errSeq {
		p.err = err
		p.errSeq = seq
	}
}

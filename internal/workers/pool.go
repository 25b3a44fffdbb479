package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/ssrworker/internal/executor"
	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// Pool dispatches tasks to a fixed set of executors. A task waits in the
// FIFO queue until an executor is idle; each executor runs one task at a
// time; results are matched to callers by task id.
type Pool struct {
	mu          sync.Mutex
	executors   []*executor.Executor
	idle        []int
	isIdle      []bool
	queue       []*pending
	pending     map[string]*pending
	inFlight    map[int]*pending
	terminated  bool
	events      chan executor.Event
	done        chan struct{}
	wg          sync.WaitGroup
	codec       *protocol.Codec
	logger      *logger.Logger
	metrics     PoolMetrics
	prom        *PrometheusMetrics
	taskTimeout time.Duration
}

type options struct {
	handler executor.Handler
	prom    *PrometheusMetrics
	codec   *protocol.Codec
}

// Option customizes a Pool.
type Option func(*options)

// WithHandler replaces the executor operations, mostly for tests.
func WithHandler(h executor.Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithPrometheus exports pool state through m.
func WithPrometheus(m *PrometheusMetrics) Option {
	return func(o *options) { o.prom = m }
}

// WithCodec sets the codec used across the executor boundary.
func WithCodec(c *protocol.Codec) Option {
	return func(o *options) { o.codec = c }
}

// NewPool creates the executors and starts them. All executors begin idle.
func NewPool(cfg Config, log *logger.Logger, opts ...Option) (*Pool, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.codec == nil {
		c, err := protocol.NewCodec()
		if err != nil {
			return nil, fmt.Errorf("create codec: %w", err)
		}
		o.codec = c
	}
	if o.handler == nil {
		o.handler = executor.NewOperations(cfg.StrictViews)
	}
	if log == nil {
		log = logger.Nop()
	}

	size := cfg.Size
	if size <= 0 {
		size = DefaultSize()
	}

	p := &Pool{
		executors:   make([]*executor.Executor, size),
		idle:        make([]int, 0, size),
		isIdle:      make([]bool, size),
		pending:     make(map[string]*pending),
		inFlight:    make(map[int]*pending),
		events:      make(chan executor.Event, size),
		done:        make(chan struct{}),
		codec:       o.codec,
		logger:      log,
		prom:        o.prom,
		taskTimeout: cfg.TaskTimeout,
	}

	for i := range p.executors {
		ex := executor.New(i, o.handler, p.codec, p.events, log)
		ex.Start()
		p.executors[i] = ex
		p.idle = append(p.idle, i)
		p.isIdle[i] = true
	}

	p.wg.Add(1)
	go p.listen()

	p.logger.Info("execution pool started",
		logger.Field{Key: "executors", Value: size},
		logger.Field{Key: "task_timeout", Value: cfg.TaskTimeout.String()})

	p.prom.observeState(p.statsLocked())

	return p, nil
}

// Size returns the number of executors.
func (p *Pool) Size() int {
	return len(p.executors)
}

// Submit enqueues task and returns a channel that receives exactly one
// Reply. The task is dispatched immediately when an executor is idle.
// Cancelling ctx before dispatch removes the task from the queue only when
// the caller goes through Run; a cancelled ctx is also observed right
// before dispatch and by the executor.
func (p *Pool) Submit(ctx context.Context, task protocol.Task) <-chan Reply {
	if ctx == nil {
		ctx = context.Background()
	}

	taskCtx, cancel := context.WithCancel(ctx)
	entry := &pending{
		task:      task,
		ctx:       taskCtx,
		cancel:    cancel,
		reply:     make(chan Reply, 1),
		executor:  -1,
		submitted: time.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.TasksSubmitted++

	if p.terminated {
		p.settleLocked(entry, Reply{Err: ErrPoolTerminated}, statusRejected)
		return entry.reply
	}

	if _, dup := p.pending[task.ID]; dup {
		p.settleLocked(entry, Reply{Err: fmt.Errorf("%w: %s", ErrDuplicateTaskID, task.ID)}, statusRejected)
		return entry.reply
	}

	p.pending[task.ID] = entry
	p.queue = append(p.queue, entry)

	p.logger.DebugCtx(ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_kind", Value: task.Kind},
		logger.Field{Key: "queued", Value: len(p.queue)})

	p.dispatchLocked()
	p.prom.observeState(p.statsLocked())

	return entry.reply
}

// Run submits task and waits for its reply. The configured task timeout
// applies on top of ctx. When ctx ends while the task is still queued the
// task is withdrawn; a dispatched task is left to finish and its result is
// discarded.
func (p *Pool) Run(ctx context.Context, task protocol.Task) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	reply := p.Submit(ctx, task)

	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-ctx.Done():
		p.withdraw(task.ID, ctx.Err())
		select {
		case r := <-reply:
			return r.Value, r.Err
		default:
			return nil, ctx.Err()
		}
	}
}

// Stats returns a snapshot of the pool state.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *Pool) statsLocked() Stats {
	return Stats{
		Executors:  len(p.executors),
		Idle:       len(p.idle),
		Queued:     len(p.queue),
		InFlight:   len(p.inFlight),
		Terminated: p.terminated,
	}
}

// Terminate rejects every queued and in-flight task with ErrPoolTerminated,
// cancels their contexts and stops all executors. Later submissions are
// rejected. Terminate is idempotent.
func (p *Pool) Terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true

	queued, inFlight := len(p.queue), len(p.inFlight)
	for _, entry := range p.queue {
		p.settleLocked(entry, Reply{Err: ErrPoolTerminated}, statusRejected)
	}
	for _, entry := range p.inFlight {
		p.settleLocked(entry, Reply{Err: ErrPoolTerminated}, statusRejected)
	}
	p.queue = nil
	p.idle = nil
	clear(p.inFlight)
	clear(p.pending)
	p.prom.observeState(p.statsLocked())
	p.mu.Unlock()

	close(p.done)
	for _, ex := range p.executors {
		ex.Terminate()
	}
	p.wg.Wait()

	p.logger.Info("execution pool terminated",
		logger.Field{Key: "rejected_queued", Value: queued},
		logger.Field{Key: "rejected_in_flight", Value: inFlight})
}

// withdraw removes a still-queued task and settles it with err.
func (p *Pool) withdraw(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.pending[id]
	if !ok || entry.executor >= 0 {
		return
	}
	for i, q := range p.queue {
		if q == entry {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	p.settleLocked(entry, Reply{Err: err}, statusRejected)
	p.prom.observeState(p.statsLocked())
}

// dispatchLocked hands queued tasks to idle executors in FIFO order.
// Caller holds p.mu.
func (p *Pool) dispatchLocked() {
	for len(p.idle) > 0 && len(p.queue) > 0 {
		entry := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]

		if err := entry.ctx.Err(); err != nil {
			p.settleLocked(entry, Reply{Err: err}, statusRejected)
			continue
		}

		data, err := p.codec.EncodeTask(entry.task)
		if err != nil {
			p.settleLocked(entry, Reply{Err: fmt.Errorf("encode task: %w", err)}, statusFailure)
			continue
		}

		id := p.idle[0]
		p.idle = p.idle[1:]
		p.isIdle[id] = false

		if err := p.executors[id].Post(entry.ctx, data); err != nil {
			p.logger.Warn("executor refused task",
				logger.Field{Key: "executor_id", Value: id},
				logger.Field{Key: "task_id", Value: entry.task.ID},
				logger.Field{Key: "error", Value: err.Error()})
			// it will report back when its current work ends
			p.queue = append([]*pending{entry}, p.queue...)
			continue
		}

		entry.executor = id
		entry.dispatched = time.Now()
		p.inFlight[id] = entry

		p.logger.DebugCtx(entry.ctx, "task dispatched",
			logger.Field{Key: "task_id", Value: entry.task.ID},
			logger.Field{Key: "executor_id", Value: id},
			logger.Field{Key: "wait_ms", Value: entry.dispatched.Sub(entry.submitted).Milliseconds()})
	}
}

// markIdleLocked returns an executor to the idle set once.
func (p *Pool) markIdleLocked(id int) {
	if id < 0 || id >= len(p.isIdle) || p.isIdle[id] {
		return
	}
	p.isIdle[id] = true
	p.idle = append(p.idle, id)
}

// settleLocked delivers the reply and forgets the task. Caller holds p.mu.
func (p *Pool) settleLocked(entry *pending, r Reply, status string) {
	if entry.settled {
		return
	}
	entry.settled = true

	if cur, ok := p.pending[entry.task.ID]; ok && cur == entry {
		delete(p.pending, entry.task.ID)
	}
	if entry.executor >= 0 {
		if cur, ok := p.inFlight[entry.executor]; ok && cur == entry {
			delete(p.inFlight, entry.executor)
		}
	}

	p.recordLocked(entry, status)
	entry.reply <- r
	entry.cancel()
}

// Package executor implements the background executors of the execution
// pool. An executor is a goroutine that owns no shared state: it receives one
// encoded task per message, runs it, and emits exactly one encoded result.
// Failures inside a task, panics included, become failure results; the
// executor stays alive for the next task.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/ssrworker/internal/logger"
	"github.com/aatumaykin/ssrworker/internal/protocol"
)

var (
	// ErrTerminated is returned by Post after Terminate.
	ErrTerminated = errors.New("executor terminated")
	// ErrBusy is returned by Post while a task is still being processed.
	ErrBusy = errors.New("executor busy")
)

// Event is what an executor emits: either an encoded result message or a
// low-level fault that is not attributable to a task id.
type Event struct {
	Executor int
	Message  []byte
	Fault    error
}

type message struct {
	ctx  context.Context
	data []byte
}

// Executor processes one task at a time on its own goroutine.
type Executor struct {
	id      int
	handler Handler
	codec   *protocol.Codec
	logger  *logger.Logger
	inbox   chan message
	events  chan<- Event
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New creates an executor that reports to events. Call Start before Post.
func New(id int, handler Handler, codec *protocol.Codec, events chan<- Event, log *logger.Logger) *Executor {
	return &Executor{
		id:      id,
		handler: handler,
		codec:   codec,
		logger:  log.With(logger.Field{Key: "executor_id", Value: id}),
		inbox:   make(chan message, 1),
		events:  events,
		done:    make(chan struct{}),
	}
}

// ID returns the executor's index in its pool.
func (e *Executor) ID() int {
	return e.id
}

// Start launches the executor goroutine.
func (e *Executor) Start() {
	e.wg.Add(1)
	go e.loop()
}

// Post hands an encoded task to the executor. It never blocks.
func (e *Executor) Post(ctx context.Context, data []byte) error {
	select {
	case <-e.done:
		return ErrTerminated
	default:
	}

	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case e.inbox <- message{ctx: ctx, data: data}:
		return nil
	default:
		return ErrBusy
	}
}

// Terminate stops the executor. A task in progress finishes but its result
// is dropped. Terminate is idempotent and waits for the goroutine to exit.
func (e *Executor) Terminate() {
	e.once.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
}

func (e *Executor) loop() {
	defer e.wg.Done()

	e.logger.Debug("executor started")

	for {
		select {
		case msg := <-e.inbox:
			e.process(msg)
		case <-e.done:
			e.logger.Debug("executor stopped")
			return
		}
	}
}

func (e *Executor) process(msg message) {
	task, err := e.codec.DecodeTask(msg.data)
	if err != nil {
		e.emit(Event{Executor: e.id, Fault: err})
		return
	}

	start := time.Now()
	result := e.execute(msg.ctx, task)

	data, err := e.codec.EncodeResult(result)
	if err != nil {
		// the value could not be copied out; report that instead
		data, err = e.codec.EncodeResult(protocol.Failure(task.ID, err))
		if err != nil {
			e.emit(Event{Executor: e.id, Fault: err})
			return
		}
	}

	e.logger.DebugCtx(msg.ctx, "task executed",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_kind", Value: task.Kind},
		logger.Field{Key: "outcome", Value: result.Outcome},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})

	e.emit(Event{Executor: e.id, Message: data})
}

// execute runs the handler and converts errors and panics into failures.
func (e *Executor) execute(ctx context.Context, task protocol.Task) (result protocol.Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during task execution: %v", r)
			e.logger.ErrorCtx(ctx, "task panic recovered", err,
				logger.Field{Key: "task_id", Value: task.ID})
			result = protocol.Failure(task.ID, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return protocol.Failure(task.ID, err)
	}

	value, err := e.handler.Handle(ctx, task)
	if err != nil {
		return protocol.Failure(task.ID, err)
	}
	return protocol.Success(task.ID, value)
}

func (e *Executor) emit(ev Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

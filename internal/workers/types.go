// Package workers provides the execution pool: a fixed set of background
// executors, a FIFO queue of tasks waiting for an idle executor, and the
// bookkeeping that delivers every executor result to the caller that
// submitted the task, matched by task id.
package workers

import (
	"context"
	"errors"
	"time"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

var (
	// ErrPoolTerminated rejects tasks that were queued, in flight or
	// submitted when the pool was torn down.
	ErrPoolTerminated = errors.New("pool terminated")
	// ErrUnknownWorkerError is used when an executor reports a failure
	// without a message.
	ErrUnknownWorkerError = errors.New("unknown worker error")
	// ErrWorkerFault rejects the task an executor was running when it
	// emitted a low-level fault.
	ErrWorkerFault = errors.New("worker fault")
	// ErrDuplicateTaskID rejects a task whose id is already outstanding.
	ErrDuplicateTaskID = errors.New("duplicate task id")
)

// TaskError is a failure reported by an executor for a specific task.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return e.Message
}

// Reply is delivered exactly once on the channel returned by Submit.
type Reply struct {
	Value any
	Err   error
}

// PoolMetrics tracks execution counters for the pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TasksRejected  uint64
	TotalDuration  time.Duration
}

// Stats is a point-in-time view of the pool state.
type Stats struct {
	Executors  int  `json:"executors"`
	Idle       int  `json:"idle"`
	Queued     int  `json:"queued"`
	InFlight   int  `json:"in_flight"`
	Terminated bool `json:"terminated"`
}

// Config holds pool construction parameters.
type Config struct {
	// Size is the executor count; zero or less derives it from the number
	// of CPUs via SizeFor.
	Size int
	// TaskTimeout bounds Run; zero means no timeout.
	TaskTimeout time.Duration
	// StrictViews makes unknown view names fail instead of passing through.
	StrictViews bool
}

// Constants for pool sizing
const (
	MinPoolSize  = 2
	MaxPoolSize  = 8
	sizeFraction = 0.7
)

// pending is one outstanding task. executor is -1 while the task is queued.
type pending struct {
	task       protocol.Task
	ctx        context.Context
	cancel     context.CancelFunc
	reply      chan Reply
	executor   int
	submitted  time.Time
	dispatched time.Time
	settled    bool
}

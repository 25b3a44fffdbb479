package workers

import (
	"errors"
	"fmt"

	"github.com/aatumaykin/ssrworker/internal/executor"
	"github.com/aatumaykin/ssrworker/internal/logger"
)

// listen consumes executor events until the pool is terminated.
func (p *Pool) listen() {
	defer p.wg.Done()

	for {
		select {
		case ev := <-p.events:
			p.handleEvent(ev)
		case <-p.done:
			return
		}
	}
}

func (p *Pool) handleEvent(ev executor.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return
	}

	if ev.Fault != nil {
		p.faultLocked(ev.Executor, ev.Fault)
	} else {
		p.resultLocked(ev)
	}

	p.dispatchLocked()
	p.prom.observeState(p.statsLocked())
}

// faultLocked rejects whatever the executor was running and puts it back
// into service.
func (p *Pool) faultLocked(id int, fault error) {
	entry := p.inFlight[id]
	delete(p.inFlight, id)
	p.markIdleLocked(id)

	fields := []logger.Field{
		{Key: "executor_id", Value: id},
		{Key: "error", Value: fault.Error()},
	}
	if entry != nil {
		fields = append(fields, logger.Field{Key: "task_id", Value: entry.task.ID})
	}
	p.logger.Warn("executor fault", fields...)

	if entry != nil {
		p.settleLocked(entry, Reply{Err: fmt.Errorf("%w: %v", ErrWorkerFault, fault)}, statusFailure)
	}
}

func (p *Pool) resultLocked(ev executor.Event) {
	res, err := p.codec.DecodeResult(ev.Message)
	if err != nil {
		p.faultLocked(ev.Executor, fmt.Errorf("decode result: %w", err))
		return
	}

	current := p.inFlight[ev.Executor]
	if current != nil && current.task.ID != res.ID {
		// late result of a task settled earlier; the executor has moved on
		p.logger.Debug("dropping stale result",
			logger.Field{Key: "executor_id", Value: ev.Executor},
			logger.Field{Key: "task_id", Value: res.ID})
		return
	}

	delete(p.inFlight, ev.Executor)
	p.markIdleLocked(ev.Executor)

	entry, ok := p.pending[res.ID]
	if !ok {
		p.logger.Debug("result for unknown task",
			logger.Field{Key: "executor_id", Value: ev.Executor},
			logger.Field{Key: "task_id", Value: res.ID})
		return
	}

	if res.OK() {
		p.settleLocked(entry, Reply{Value: res.Value}, statusSuccess)
		return
	}

	var reason error = ErrUnknownWorkerError
	if res.Message != "" {
		reason = &TaskError{TaskID: res.ID, Message: res.Message}
	}
	p.logger.DebugCtx(entry.ctx, "task failed",
		logger.Field{Key: "task_id", Value: res.ID},
		logger.Field{Key: "error", Value: reason.Error()})
	p.settleLocked(entry, Reply{Err: reason}, statusFailure)
}

// IsTaskError reports whether err is a failure reported by an executor.
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}

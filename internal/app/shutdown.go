package app

import "github.com/aatumaykin/ssrworker/internal/workers"

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Stops the scheduled report (if running)
//  2. Terminates the execution pool (if it was created)
//
// The pool is not recreated afterwards: later tasks are rejected with
// workers.ErrPoolTerminated. Shutdown is idempotent.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return nil
	}
	a.stopped = true

	if a.reporter != nil {
		a.reporter.Stop()
		a.reporter = nil
	}

	// Make sure a concurrent first Pool call cannot create a pool after this.
	a.poolOnce.Do(func() { a.poolErr = workers.ErrPoolTerminated })
	if a.pool != nil {
		a.pool.Terminate()
	}

	a.logger.Info("application stopped")
	return nil
}

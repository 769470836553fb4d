package worker

import "errors"

var (
	// ErrEmpty is returned by Queue.Get when no item arrives within the
	// given timeout. It is expected and recoverable; the caller decides
	// whether to retry.
	ErrEmpty = errors.New("queue is empty")

	// ErrPoolStopped is returned by Pool.Start after Stop has been
	// called. It is never retried automatically.
	ErrPoolStopped = errors.New("pool is stopped")

	// ErrShutdownTimeout is returned by Pool.Shutdown when the workers
	// do not exit within the given timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrBatchEmpty is returned by Batch.Wait when no jobs are
	// outstanding.
	ErrBatchEmpty = errors.New("batch has no outstanding jobs")

	// ErrPanic wraps a panic recovered from a job body or group hook.
	// Use errors.Is to detect it on Job.Wait results.
	ErrPanic = errors.New("panic in job function")
)

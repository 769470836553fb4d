package worker

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Func is a job body. It carries no context: the pool never cancels a
// body once it is running, so long-running bodies that need to stop
// early must observe their own stop flag.
//
// Type parameters:
//   - R: The result type
type Func[R any] func() (R, error)

// Job is a handle to a unit of deferred work: the body, a result slot,
// and a completion signal. It is created by Pool.Start and completed by
// whichever worker runs it.
//
// Type parameters:
//   - R: The result type
type Job[R any] struct {
	id   uuid.UUID
	fn   Func[R]
	done *Queue[struct{}]

	// result and err are written by the executing worker strictly
	// before finish signals completion; Wait reads them only after
	// consuming the signal.
	result R
	err    error

	waitMu    sync.Mutex
	delivered bool
}

func newJob[R any](fn Func[R], cooperative bool) *Job[R] {
	return &Job[R]{
		id:   uuid.New(),
		fn:   fn,
		done: NewQueue[struct{}](WithCooperative(cooperative)),
	}
}

// ID returns the job's correlation id, as used in pool log output.
func (j *Job[R]) ID() uuid.UUID {
	return j.id
}

// Wait blocks until the job has been scheduled, run, and finished, then
// returns the captured result or error. Calling Wait before the job has
// been picked up by a worker is legal and simply blocks until then.
// Repeated Waits return the same outcome without blocking again.
func (j *Job[R]) Wait() (R, error) {
	j.waitMu.Lock()
	defer j.waitMu.Unlock()
	if !j.delivered {
		_, _ = j.done.Get(Forever)
		j.delivered = true
	}
	return j.result, j.err
}

// run executes the body at most once, capturing either the return value
// or the error. A panic in the body is converted to an error wrapping
// ErrPanic; nothing escapes this call.
func (j *Job[R]) run() {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			j.result = zero
			j.err = panicError(r)
		}
	}()
	j.result, j.err = j.fn()
}

// fail overwrites the job's outcome with a group hook failure.
func (j *Job[R]) fail(err error) {
	var zero R
	j.result = zero
	j.err = err
}

// finish signals completion, unblocking exactly one Wait. It is called
// exactly once, after run and after any group hook that must be
// observed before the caller proceeds.
func (j *Job[R]) finish() {
	j.done.Put(struct{}{})
}

func panicError(v any) error {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return fmt.Errorf("%w: %v\nstack trace:\n%s", ErrPanic, v, buf[:n])
}

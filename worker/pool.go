package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pool owns a fixed number of persistent workers pulling jobs from one
// shared queue. Jobs submitted with Start return immediately with a
// handle; results are collected later through Job.Wait or a Batch.
//
// A pool of size zero runs jobs inline on the caller's goroutine, so
// the same call sites work in concurrent and serial configurations.
//
// Group begin/end hooks, when set, bracket each burst of jobs a worker
// dequeues without blocking in between. This lets a pool amortize an
// expensive bracketing operation, such as opening and committing a
// database transaction or flushing buffered messages to a remote
// server, across however many jobs happened to be ready at once.
//
// Type parameters:
//   - R: The result type produced by job bodies and group hooks
type Pool[R any] struct {
	size        int
	cooperative bool
	limiter     *rate.Limiter
	logger      *slog.Logger
	queue       *Queue[*Job[R]]
	workers     errgroup.Group

	mu         sync.Mutex
	stopped    bool
	groupBegin Func[R]
	groupEnd   Func[R]
}

// NewPool creates a pool and starts size workers. size must be >= 0;
// zero selects inline execution. Workers run until Stop is called.
func NewPool[R any](size int, opts ...Option) *Pool[R] {
	cfg := newConfig(opts...)
	p := &Pool[R]{
		size:        size,
		cooperative: cfg.cooperative,
		limiter:     cfg.rateLimiter,
		logger:      cfg.logger,
	}
	if size > 0 {
		p.queue = NewQueue[*Job[R]](WithCooperative(cfg.cooperative))
		for range size {
			p.workers.Go(p.worker)
		}
	}
	return p
}

// Start submits a job for execution and returns its handle. The call
// never blocks on job execution: for a sized pool the job is enqueued,
// and for a zero-size pool it runs inline and the returned job is
// already finished. Start fails with ErrPoolStopped once Stop has been
// called.
func (p *Pool[R]) Start(fn Func[R]) (*Job[R], error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolStopped
	}
	job := newJob(fn, p.cooperative)
	if p.size > 0 {
		// Enqueue under the lock so a racing Stop cannot slot its
		// sentinels ahead of a job that was already accepted.
		p.queue.Put(job)
		p.mu.Unlock()
		return job, nil
	}
	p.mu.Unlock()

	begin, end := p.hooks()
	if begin != nil {
		if _, err := p.runHook(begin); err != nil {
			job.fail(err)
			job.finish()
			return job, nil
		}
	}
	p.throttle()
	job.run()
	p.observe(job)
	if end != nil {
		if _, err := p.runHook(end); err != nil {
			job.fail(err)
			job.finish()
			return job, nil
		}
	}
	job.finish()
	return job, nil
}

// Stop stops the pool. No new jobs are accepted, and one sentinel per
// worker is enqueued so each worker exits after the jobs already queued
// ahead of it. Stop does not wait for workers to drain; callers that
// need drain completion should use Shutdown or track their own jobs.
func (p *Pool[R]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.size == 0 {
		p.groupBegin = nil
		p.groupEnd = nil
	}
	p.mu.Unlock()
	for range p.size {
		p.queue.Put(nil)
	}
}

// Shutdown stops the pool and waits for all workers to exit, up to
// timeout. Jobs enqueued before Shutdown still complete. Returns
// ErrShutdownTimeout if the workers are still running when the timeout
// expires.
func (p *Pool[R]) Shutdown(timeout time.Duration) error {
	p.Stop()
	if p.size == 0 {
		return nil
	}
	done := make(chan struct{})
	go func() {
		_ = p.workers.Wait()
		close(done)
	}()
	expire := time.NewTimer(timeout)
	defer expire.Stop()
	select {
	case <-done:
		return nil
	case <-expire.C:
		return ErrShutdownTimeout
	}
}

// SetGroupBegin sets the hook run once before the first job of each
// burst. A nil fn clears the hook. If the hook fails, the bodies of the
// burst's jobs are skipped and every job surfaces the hook's error.
func (p *Pool[R]) SetGroupBegin(fn Func[R]) {
	p.mu.Lock()
	p.groupBegin = fn
	p.mu.Unlock()
}

// SetGroupEnd sets the hook run once after the last job of each burst.
// A nil fn clears the hook. While an end hook is set, job completion is
// deferred until the hook has run, so a Wait on any job in the burst
// cannot return before the hook's side effect (such as a commit) is
// done. If the hook fails, every job in the burst surfaces its error.
func (p *Pool[R]) SetGroupEnd(fn Func[R]) {
	p.mu.Lock()
	p.groupEnd = fn
	p.mu.Unlock()
}

// QSize returns the number of jobs waiting in the pool's queue.
func (p *Pool[R]) QSize() int {
	if p.size == 0 {
		return 0
	}
	return p.queue.QSize()
}

// Batch creates a batch bound to this pool. Batches start multiple jobs
// and wait for them all at once, in submission order.
func (p *Pool[R]) Batch() *Batch[R] {
	return &Batch[R]{pool: p}
}

// worker runs until it dequeues a nil sentinel. Each blocking dequeue
// opens a burst: the begin hook runs first, then as many jobs as can be
// dequeued without blocking, then the end hook. When an end hook is
// set, finishing every job in the burst is deferred until the hook has
// run so callers never observe a result the hook has not sealed.
func (p *Pool[R]) worker() error {
	for {
		job, err := p.queue.Get(Forever)
		if err != nil {
			continue
		}
		if job == nil {
			return nil
		}
		begin, end := p.hooks()
		if begin != nil {
			if _, err := p.runHook(begin); err != nil {
				job.fail(err)
				job.finish()
				continue
			}
		}
		var (
			burst []*Job[R]
			stop  bool
		)
		for {
			p.throttle()
			job.run()
			p.observe(job)
			if end == nil {
				job.finish()
			} else {
				burst = append(burst, job)
			}
			next, err := p.queue.Get(0)
			if err != nil {
				break
			}
			if next == nil {
				stop = true
				break
			}
			job = next
		}
		if end != nil {
			_, endErr := p.runHook(end)
			for _, done := range burst {
				if endErr != nil {
					done.fail(endErr)
				}
				done.finish()
			}
		}
		if stop {
			return nil
		}
	}
}

// hooks snapshots the group hooks for one burst.
func (p *Pool[R]) hooks() (begin, end Func[R]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.groupBegin, p.groupEnd
}

// runHook executes a group hook with the same capture semantics as a
// job body: the error is returned, never raised, and panics become
// errors wrapping ErrPanic.
func (p *Pool[R]) runHook(fn Func[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			p.logger.Error("group hook panicked", "error", err)
		}
	}()
	return fn()
}

// throttle blocks until the rate limiter admits one more job body.
func (p *Pool[R]) throttle() {
	if p.limiter == nil {
		return
	}
	if err := p.limiter.Wait(context.Background()); err != nil {
		p.logger.Warn("rate limiter wait failed", "error", err)
	}
}

// observe logs unmanaged failures. Job errors belong to the caller and
// surface through Wait; only recovered panics are worth a log line.
func (p *Pool[R]) observe(job *Job[R]) {
	if job.err != nil && errors.Is(job.err, ErrPanic) {
		p.logger.Error("job panicked", "job", job.id, "error", job.err)
	}
}

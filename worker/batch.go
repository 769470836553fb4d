package worker

import "sync"

// Batch aggregates jobs submitted to one pool so a caller can start
// several and collect all the results together. Jobs are waited on in
// submission order regardless of the order in which workers complete
// them.
//
// Type parameters:
//   - R: The result type
type Batch[R any] struct {
	pool *Pool[R]

	mu   sync.Mutex
	jobs []*Job[R]
}

// Start submits a job on the batch's pool and tracks its handle.
// Fails with ErrPoolStopped if the pool is no longer accepting work.
func (b *Batch[R]) Start(fn Func[R]) error {
	job, err := b.pool.Start(fn)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.jobs = append(b.jobs, job)
	b.mu.Unlock()
	return nil
}

// Wait removes the oldest outstanding job and waits for its result.
// Fails with ErrBatchEmpty when no jobs are outstanding.
func (b *Batch[R]) Wait() (R, error) {
	b.mu.Lock()
	if len(b.jobs) == 0 {
		b.mu.Unlock()
		var zero R
		return zero, ErrBatchEmpty
	}
	job := b.jobs[0]
	b.jobs = b.jobs[1:]
	b.mu.Unlock()
	return job.Wait()
}

// WaitAll waits for every outstanding job in submission order and
// returns their results. If a job failed, WaitAll stops at that slot
// and returns the results collected so far along with that job's
// error; jobs after the failed slot remain outstanding and can still
// be waited on.
func (b *Batch[R]) WaitAll() ([]R, error) {
	var results []R
	for {
		b.mu.Lock()
		remaining := len(b.jobs)
		b.mu.Unlock()
		if remaining == 0 {
			return results, nil
		}
		result, err := b.Wait()
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
}

// Len returns the number of jobs not yet waited on.
func (b *Batch[R]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.jobs)
}

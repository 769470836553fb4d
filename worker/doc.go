// Package worker provides a pool of persistent workers that execute
// deferred jobs and return future-like handles, with optional cross-job
// grouping for transactional batching.
//
// The primary types are Pool[R], which owns a fixed number of workers
// pulling jobs from a shared blocking queue, and Job[R], a handle whose
// Wait method blocks until the job has run and returns its result or
// error. Batch[R] aggregates several jobs submitted to one pool so the
// caller can collect all results together.
//
// # Basic Usage
//
//	pool := worker.NewPool[int](4)
//	defer pool.Stop()
//
//	job, err := pool.Start(func() (int, error) {
//	    return expensiveComputation(), nil
//	})
//	if err != nil {
//	    // pool was stopped
//	}
//	result, err := job.Wait()
//
// # Grouping
//
// Pools can bracket bursts of jobs with group begin/end hooks. A burst
// is the contiguous run of jobs a worker dequeues without blocking in
// between. The begin hook runs once before the first job of a burst and
// the end hook once after the last job that was ready, so an expensive
// bracketing operation is amortized across however many jobs happened
// to be queued. The canonical use is transactional grouping: begin
// issues BEGIN, jobs issue statements, end issues COMMIT, and no Wait
// on a job in the burst returns before the commit has completed.
//
//	pool.SetGroupBegin(func() (int, error) { _, err := conn.Exec("BEGIN"); return 0, err })
//	pool.SetGroupEnd(func() (int, error) { _, err := conn.Exec("COMMIT"); return 0, err })
//
// # Batches
//
//	batch := pool.Batch()
//	batch.Start(func() (int, error) { return 1, nil })
//	batch.Start(func() (int, error) { return 2, nil })
//	results, err := batch.WaitAll() // [1 2], in submission order
//
// # Queues
//
// Queue[T] is the blocking FIFO the pool is built on and is usable
// directly. It supports any mix of producers and consumers, bounded and
// unbounded waits, and non-blocking polls via Get(0). Construction
// selects one of two wait backings: the default backing blocks on a
// native mutex and condition variable, while WithCooperative(true)
// selects a channel-token backing that plays well with select-driven
// callers. Both backings serve any caller; the option exists so a
// process committed to one scheduling style pays for exactly that.
//
// # Inline Execution
//
// A pool of size zero runs every job synchronously on the caller's own
// goroutine inside Start, including the group hooks. This degenerate
// mode keeps call sites identical between concurrent and serial
// configurations.
package worker

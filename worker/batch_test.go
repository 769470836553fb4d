package worker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/svckit/svckit/worker"
)

func TestBatch_WaitAllSubmissionOrder(t *testing.T) {
	p := worker.NewPool[int](4)
	defer func() { _ = p.Shutdown(time.Second) }()

	batch := p.Batch()
	for i := range 5 {
		if err := batch.Start(func() (int, error) {
			// Later jobs finish earlier, so completion order differs
			// from submission order.
			time.Sleep(time.Duration(5-i) * 10 * time.Millisecond)
			return i, nil
		}); err != nil {
			t.Fatalf("start failed: %v", err)
		}
	}

	results, err := batch.WaitAll()
	if err != nil {
		t.Fatalf("waitall failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, result := range results {
		if result != i {
			t.Errorf("slot %d: expected %d, got %d", i, i, result)
		}
	}
	if batch.Len() != 0 {
		t.Errorf("expected drained batch, %d jobs left", batch.Len())
	}
}

func TestBatch_WaitOnEmpty(t *testing.T) {
	p := worker.NewPool[int](1)
	defer func() { _ = p.Shutdown(time.Second) }()

	batch := p.Batch()
	if _, err := batch.Wait(); !errors.Is(err, worker.ErrBatchEmpty) {
		t.Errorf("expected ErrBatchEmpty, got %v", err)
	}
}

func TestBatch_ErrorSurfacesAtItsSlot(t *testing.T) {
	p := worker.NewPool[int](2)
	defer func() { _ = p.Shutdown(time.Second) }()

	boom := errors.New("slot 2 failed")
	batch := p.Batch()
	for i := range 5 {
		if err := batch.Start(func() (int, error) {
			if i == 2 {
				return 0, boom
			}
			return i, nil
		}); err != nil {
			t.Fatalf("start failed: %v", err)
		}
	}

	results, err := batch.WaitAll()
	if !errors.Is(err, boom) {
		t.Fatalf("expected slot error, got %v", err)
	}
	// Results before the failed slot were already collected.
	if len(results) != 2 {
		t.Fatalf("expected 2 results before the failure, got %d", len(results))
	}
	for i, result := range results {
		if result != i {
			t.Errorf("slot %d: expected %d, got %d", i, i, result)
		}
	}

	// Jobs after the failed slot remain waitable.
	rest, err := batch.WaitAll()
	if err != nil {
		t.Fatalf("resumed waitall failed: %v", err)
	}
	if len(rest) != 2 || rest[0] != 3 || rest[1] != 4 {
		t.Errorf("expected remaining results [3 4], got %v", rest)
	}
}

func TestBatch_FIFOWait(t *testing.T) {
	p := worker.NewPool[string](2)
	defer func() { _ = p.Shutdown(time.Second) }()

	batch := p.Batch()
	for _, s := range []string{"first", "second"} {
		if err := batch.Start(func() (string, error) { return s, nil }); err != nil {
			t.Fatalf("start failed: %v", err)
		}
	}

	first, err := batch.Wait()
	if err != nil || first != "first" {
		t.Errorf("expected 'first', got %q (%v)", first, err)
	}
	second, err := batch.Wait()
	if err != nil || second != "second" {
		t.Errorf("expected 'second', got %q (%v)", second, err)
	}
}

func TestBatch_StartOnStoppedPool(t *testing.T) {
	p := worker.NewPool[int](1)
	batch := p.Batch()
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if err := batch.Start(func() (int, error) { return 0, nil }); !errors.Is(err, worker.ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

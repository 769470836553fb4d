package worker

import (
	"sync"
	"time"
)

// Forever may be passed as the timeout to Queue.Get to block until an
// item arrives. Any negative timeout behaves the same way.
const Forever time.Duration = -1

// Queue is a blocking FIFO usable by any mix of producers and
// consumers. Items are stored in an ordered buffer guarded by a short
// mutex; blocking is handled separately through wake tokens so that the
// buffer lock is never held across a wait.
//
// The token protocol keeps at most one wake outstanding per non-empty
// transition: Put sends a token only when one is owed, and a consumer
// that pops an item forwards a token if more items remain so the next
// waiter can proceed. A consumer woken after another consumer drained
// the buffer retries rather than returning a zero item.
//
// Type parameters:
//   - T: The item type
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	needWake bool
	sig      signaler
}

// NewQueue creates an empty queue. The wait backing is chosen by
// WithCooperative; other options are ignored.
func NewQueue[T any](opts ...Option) *Queue[T] {
	cfg := newConfig(opts...)
	q := &Queue[T]{
		needWake: true,
	}
	if cfg.cooperative {
		q.sig = newChanSignaler()
	} else {
		q.sig = newCondSignaler()
	}
	return q
}

// Put appends an item to the queue. It never blocks and never fails.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	wake := q.needWake
	q.needWake = false
	q.mu.Unlock()
	if wake {
		q.sig.wake()
	}
}

// Get removes and returns the oldest item, blocking until one is
// available. A timeout of Forever (or any negative value) blocks
// indefinitely, zero polls without blocking, and a positive timeout
// bounds the wait. ErrEmpty is returned when the timeout expires; a
// timed-out Get does not consume or lose any pending item.
func (q *Queue[T]) Get(timeout time.Duration) (T, error) {
	var zero T
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		wait := timeout
		if timeout > 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return zero, ErrEmpty
			}
		}
		if err := q.sig.sleep(wait); err != nil {
			return zero, err
		}
		q.mu.Lock()
		q.needWake = true
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.sig.wake()
			}
			return item, nil
		}
		q.mu.Unlock()
		// Spurious wake: another consumer took the item first.
	}
}

// QSize returns the number of buffered items. The value is advisory
// and may be stale the instant it is read.
func (q *Queue[T]) QSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// signaler delivers wake tokens from producers to blocked consumers.
// Implementations must make wake non-blocking and must leave an
// undelivered token pending when sleep times out.
type signaler interface {
	wake()
	sleep(timeout time.Duration) error
}

// condSignaler parks consumers on a condition variable with a token
// counter. Bounded waits use a timer that broadcasts on expiry; each
// waiter rechecks its own deadline after every wakeup.
type condSignaler struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tokens int
}

func newCondSignaler() *condSignaler {
	s := &condSignaler{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *condSignaler) wake() {
	s.mu.Lock()
	s.tokens++
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *condSignaler) sleep(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timeout == 0 {
		if s.tokens == 0 {
			return ErrEmpty
		}
		s.tokens--
		return nil
	}
	if timeout < 0 {
		for s.tokens == 0 {
			s.cond.Wait()
		}
		s.tokens--
		return nil
	}
	deadline := time.Now().Add(timeout)
	expire := time.AfterFunc(timeout, s.cond.Broadcast)
	defer expire.Stop()
	for s.tokens == 0 {
		if !time.Now().Before(deadline) {
			return ErrEmpty
		}
		s.cond.Wait()
	}
	s.tokens--
	return nil
}

// chanSignaler parks consumers on a buffered channel so that waits are
// select-compatible. The channel holds at most one token; a dropped
// token is safe because the pending token wakes a consumer that
// forwards again while items remain.
type chanSignaler struct {
	tokens chan struct{}
}

func newChanSignaler() *chanSignaler {
	return &chanSignaler{
		tokens: make(chan struct{}, 1),
	}
}

func (s *chanSignaler) wake() {
	select {
	case s.tokens <- struct{}{}:
	default:
	}
}

func (s *chanSignaler) sleep(timeout time.Duration) error {
	if timeout < 0 {
		<-s.tokens
		return nil
	}
	if timeout == 0 {
		select {
		case <-s.tokens:
			return nil
		default:
			return ErrEmpty
		}
	}
	expire := time.NewTimer(timeout)
	defer expire.Stop()
	select {
	case <-s.tokens:
		return nil
	case <-expire.C:
		return ErrEmpty
	}
}

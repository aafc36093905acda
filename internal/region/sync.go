// Package region holds the single shared-state instance passed by pointer
// to every actor, along with the synchronization primitives that protect
// its fields.
package region

import (
	"context"
	"sync/atomic"
)

// Sem is a counting semaphore built on a buffered channel of struct{},
// the idiomatic Go substitute for a POSIX semaphore. A capacity-1 Sem
// doubles as a mutex; its TryAcquire gives the non-blocking try-lock
// semantics telemetry's best-effort snapshotting depends on.
type Sem struct {
	ch atomic.Pointer[chan struct{}]
}

// NewSem creates a semaphore with the given capacity and initial count.
// initial tokens are pre-loaded so the first `initial` Acquire calls
// succeed without blocking.
func NewSem(capacity, initial int) *Sem {
	s := &Sem{}
	s.reset(capacity, initial)
	return s
}

func (s *Sem) reset(capacity, initial int) {
	ch := make(chan struct{}, capacity)
	for i := 0; i < initial; i++ {
		ch <- struct{}{}
	}
	s.ch.Store(&ch)
}

// Acquire blocks until a token is available or ctx is done. A token is
// taken from the channel, not posted to it: NewSem(1, 1) preloads one
// token so the first Acquire succeeds immediately, mirroring
// AcquireWait's receive-based pairing with ReleaseWait.
func (s *Sem) Acquire(ctx context.Context) error {
	ch := *s.ch.Load()
	select {
	case <-ch:
		return nil
	default:
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AcquireWait blocks on the token channel directly (empty/full semantics,
// where the channel itself carries the tokens rather than being a mutex
// guard). Used by Sem instances configured as counting semaphores rather
// than binary mutexes; see Ring for the producer/consumer usage.
func (s *Sem) AcquireWait(ctx context.Context) error {
	ch := *s.ch.Load()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquireWait attempts a non-blocking take from the token channel.
func (s *Sem) TryAcquireWait() bool {
	ch := *s.ch.Load()
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// ReleaseWait posts a token back onto the channel (non-blocking; callers
// must not post more tokens than the channel's capacity).
func (s *Sem) ReleaseWait() {
	ch := *s.ch.Load()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// TryAcquire attempts a non-blocking lock (binary semaphore usage).
func (s *Sem) TryAcquire() bool {
	ch := *s.ch.Load()
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Release releases the mutex-style lock (binary semaphore usage),
// posting the token back so the next Acquire/TryAcquire succeeds.
func (s *Sem) Release() {
	ch := *s.ch.Load()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Reset reinitializes the semaphore in place with a fresh channel,
// discarding any pending tokens or blocked waiters. Supervisor-only: the
// caller must have already terminated every actor that might be blocked
// on this semaphore, or a respawned actor will race a stale waiter.
func (s *Sem) Reset(capacity, initial int) {
	s.reset(capacity, initial)
}

// RWSem is a reader/writer lock built from two Sems and a reader count,
// exactly the classic discipline: a reader takes `read`, increments the
// counter, takes `write` on the 0->1 edge, then releases `read`; a writer
// takes `write` directly. No starvation guarantee — a steady stream of
// readers can defer a writer indefinitely, which this workload accepts.
type RWSem struct {
	read    *Sem
	write   *Sem
	counter atomic.Int32
}

// NewRWSem creates a new reader/writer lock in the unlocked state.
func NewRWSem() *RWSem {
	return &RWSem{
		read:  NewSem(1, 1),
		write: NewSem(1, 1),
	}
}

// RLock acquires the lock for reading.
func (rw *RWSem) RLock(ctx context.Context) error {
	if err := rw.read.Acquire(ctx); err != nil {
		return err
	}
	if rw.counter.Add(1) == 1 {
		if err := rw.write.Acquire(ctx); err != nil {
			rw.counter.Add(-1)
			rw.read.Release()
			return err
		}
	}
	rw.read.Release()
	return nil
}

// RUnlock releases a reader's hold on the lock.
func (rw *RWSem) RUnlock(ctx context.Context) error {
	if err := rw.read.Acquire(ctx); err != nil {
		return err
	}
	if rw.counter.Add(-1) == 0 {
		rw.write.Release()
	}
	rw.read.Release()
	return nil
}

// Lock acquires the lock for writing.
func (rw *RWSem) Lock(ctx context.Context) error {
	return rw.write.Acquire(ctx)
}

// Unlock releases a writer's hold on the lock.
func (rw *RWSem) Unlock() {
	rw.write.Release()
}

// Reset reinitializes both underlying semaphores and zeroes the reader
// count. Supervisor-only, called only after every actor has been
// terminated so no torn lock is ever observed.
func (rw *RWSem) Reset() {
	rw.read.Reset(1, 1)
	rw.write.Reset(1, 1)
	rw.counter.Store(0)
}

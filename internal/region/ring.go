package region

import (
	"context"
	"time"
)

// Ring is the bounded NMEA character ring buffer. Capacity N defaults to
// 1280 (spec-mandated, configurable via Config.RingCapacity). The classic
// three-semaphore bounded-buffer discipline: mutex guards the buffer and
// indices, empty counts free slots, full counts pending characters. A
// producer takes empty, writes under mutex, advances writeIdx, posts full.
// A consumer takes full, reads under mutex, advances readIdx, posts empty.
// Each side advances only its own index.
type Ring struct {
	mutex *Sem
	empty *Sem
	full  *Sem

	capacity int
	buf      []byte
	readIdx  int
	writeIdx int
}

// NewRing creates a ring buffer of the given capacity.
func NewRing(capacity int) *Ring {
	return &Ring{
		mutex:    NewSem(1, 1),
		empty:    NewSem(capacity, capacity),
		full:     NewSem(capacity, 0),
		capacity: capacity,
		buf:      make([]byte, capacity),
	}
}

// Put writes one character, blocking until a slot frees up or ctx is done.
// Used by the GPS producer, which times its empty-wait per spec.
func (r *Ring) Put(ctx context.Context, b byte) error {
	if err := r.empty.AcquireWait(ctx); err != nil {
		return err
	}
	r.mutex.Acquire(context.Background())
	r.buf[r.writeIdx] = b
	r.writeIdx = (r.writeIdx + 1) % r.capacity
	r.mutex.Release()
	r.full.ReleaseWait()
	return nil
}

// PutTimeout is Put with a deadline expressed as a duration, matching the
// producer's per-character 1-second empty-wait timeout.
func (r *Ring) PutTimeout(b byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Put(ctx, b)
}

// Get reads one character, blocking until one is available or ctx is done.
// Used by Telemetry, the ring's sole consumer.
func (r *Ring) Get(ctx context.Context) (byte, error) {
	if err := r.full.AcquireWait(ctx); err != nil {
		return 0, err
	}
	r.mutex.Acquire(context.Background())
	b := r.buf[r.readIdx]
	r.readIdx = (r.readIdx + 1) % r.capacity
	r.mutex.Release()
	r.empty.ReleaseWait()
	return b, nil
}

// GetTimeout is Get with a deadline expressed as a duration, matching
// telemetry's 5-second GPS-drain timeout.
func (r *Ring) GetTimeout(timeout time.Duration) (byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Get(ctx)
}

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Reset reinitializes the ring's synchronization primitives in place,
// preserving the buffer contents and indices — the supervisor's
// deadlock-recovery operation. Only safe to call once every actor that
// might be blocked on this ring has been terminated.
func (r *Ring) Reset() {
	pending := r.pendingLocked()
	r.mutex.Reset(1, 1)
	r.empty.Reset(r.capacity, r.capacity-pending)
	r.full.Reset(r.capacity, pending)
}

// pendingLocked returns the number of unread characters currently in the
// buffer, derived from the index distance rather than semaphore state
// (which Reset is about to discard). Equal indices mean either an empty
// or a full ring; only in that case is the full semaphore consulted, and
// any token left on it means full. Not safe for concurrent use with
// Put/Get; callers must ensure all actors are stopped first.
func (r *Ring) pendingLocked() int {
	if r.writeIdx > r.readIdx {
		return r.writeIdx - r.readIdx
	}
	if r.writeIdx < r.readIdx {
		return r.capacity - r.readIdx + r.writeIdx
	}
	if len(*r.full.ch.Load()) > 0 {
		return r.capacity
	}
	return 0
}

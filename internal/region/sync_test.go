package region

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemMutexAcquireRelease(t *testing.T) {
	s := NewSem(1, 1)
	require.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire(), "second acquire should fail while held")
	s.Release()
	assert.True(t, s.TryAcquire())
}

func TestSemAcquireBlocksUntilRelease(t *testing.T) {
	s := NewSem(1, 1)
	require.True(t, s.TryAcquire())

	done := make(chan struct{})
	go func() {
		ctx := context.Background()
		_ = s.Acquire(ctx)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Acquire should not have succeeded while locked")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not succeed after release")
	}
}

func TestSemAcquireRespectsContext(t *testing.T) {
	s := NewSem(1, 1)
	require.True(t, s.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSemCountingWaitRelease(t *testing.T) {
	s := NewSem(4, 0)
	assert.False(t, s.TryAcquireWait(), "no tokens initially")

	s.ReleaseWait()
	s.ReleaseWait()
	assert.True(t, s.TryAcquireWait())
	assert.True(t, s.TryAcquireWait())
	assert.False(t, s.TryAcquireWait())
}

func TestSemReset(t *testing.T) {
	s := NewSem(1, 1)
	require.True(t, s.TryAcquire()) // now held

	s.Reset(1, 1)
	assert.True(t, s.TryAcquire(), "reset should produce a fresh, unlocked semaphore")
}

func TestRWSemConcurrentReaders(t *testing.T) {
	rw := NewRWSem()
	ctx := context.Background()

	require.NoError(t, rw.RLock(ctx))
	require.NoError(t, rw.RLock(ctx))

	writeAcquired := make(chan struct{})
	go func() {
		_ = rw.Lock(ctx)
		close(writeAcquired)
	}()

	select {
	case <-writeAcquired:
		t.Fatal("writer should not acquire while readers hold the lock")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, rw.RUnlock(ctx))
	require.NoError(t, rw.RUnlock(ctx))

	select {
	case <-writeAcquired:
	case <-time.After(time.Second):
		t.Fatal("writer did not acquire after readers released")
	}
	rw.Unlock()
}

func TestRWSemWriterExclusive(t *testing.T) {
	rw := NewRWSem()
	ctx := context.Background()

	require.NoError(t, rw.Lock(ctx))

	readAcquired := make(chan struct{})
	go func() {
		_ = rw.RLock(ctx)
		close(readAcquired)
	}()

	select {
	case <-readAcquired:
		t.Fatal("reader should not acquire while writer holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	rw.Unlock()
	select {
	case <-readAcquired:
	case <-time.After(time.Second):
		t.Fatal("reader did not acquire after writer released")
	}
}

func TestRWSemReset(t *testing.T) {
	rw := NewRWSem()
	ctx := context.Background()
	require.NoError(t, rw.Lock(ctx)) // leave it held

	rw.Reset()

	// A fresh lock should be immediately writable again.
	require.NoError(t, rw.Lock(ctx))
	rw.Unlock()
}

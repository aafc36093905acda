package region

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPutGetRoundTrip(t *testing.T) {
	r := NewRing(4)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 'A'))
	require.NoError(t, r.Put(ctx, 'B'))

	b, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('A'), b)

	b, err = r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('B'), b)
}

func TestRingBlocksWhenFull(t *testing.T) {
	r := NewRing(2)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, '1'))
	require.NoError(t, r.Put(ctx, '2'))

	done := make(chan error, 1)
	go func() {
		done <- r.Put(ctx, '3')
	}()

	select {
	case <-done:
		t.Fatal("Put should block when ring is full")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := r.Get(ctx)
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock after a Get freed a slot")
	}
}

func TestRingGetTimesOutWhenEmpty(t *testing.T) {
	r := NewRing(4)
	_, err := r.GetTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRingPutTimesOutWhenFull(t *testing.T) {
	r := NewRing(1)
	require.NoError(t, r.Put(context.Background(), 'X'))

	err := r.PutTimeout('Y', 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRingWrapsAroundIndices(t *testing.T) {
	r := NewRing(3)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, 'A'))
	require.NoError(t, r.Put(ctx, 'B'))
	a, _ := r.Get(ctx)
	assert.Equal(t, byte('A'), a)

	// writeIdx wraps from 2 -> 0 here.
	require.NoError(t, r.Put(ctx, 'C'))
	require.NoError(t, r.Put(ctx, 'D'))

	b, _ := r.Get(ctx)
	c, _ := r.Get(ctx)
	d, _ := r.Get(ctx)
	assert.Equal(t, []byte{'B', 'C', 'D'}, []byte{b, c, d})
}

func TestRingResetPreservesPendingCount(t *testing.T) {
	r := NewRing(4)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, 'A'))
	require.NoError(t, r.Put(ctx, 'B'))

	r.Reset()

	b, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('A'), b)

	b, err = r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('B'), b)

	// The ring should now report empty, so a further Get should time out.
	_, err = r.GetTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

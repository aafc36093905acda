package actor

import (
	"context"
	"testing"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBattery(t *testing.T, cfg BatteryConfig) (*Battery, *region.Region, *droned.MockObserver) {
	t.Helper()
	r := region.New(region.Config{RingCapacity: 16})
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError})
	obs := droned.NewMockObserver()
	b := NewBattery(r, logger, obs, cfg)
	b.lastAdjust = time.Now().Add(-time.Hour)
	return b, r, obs
}

func TestBatteryChargesWhileCharging(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b, r, _ := newTestBattery(t, cfg)
	ctx := context.Background()
	r.Battery.Store(50)
	require.NoError(t, r.Action.Store(ctx, region.Charge))

	require.NoError(t, b.tick(ctx))

	assert.Equal(t, uint32(51), r.Battery.Load())
}

func TestBatteryChargeSaturatesAtMax(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b, r, _ := newTestBattery(t, cfg)
	ctx := context.Background()
	r.Battery.Store(droned.BatteryChargeMax)
	require.NoError(t, r.Action.Store(ctx, region.Charge))

	require.NoError(t, b.tick(ctx))

	assert.Equal(t, uint32(droned.BatteryChargeMax), r.Battery.Load())
}

func TestBatteryDrainsWhileNotCharging(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b, r, _ := newTestBattery(t, cfg)
	ctx := context.Background()
	r.Battery.Store(50)
	require.NoError(t, r.Action.Store(ctx, region.Fly))

	require.NoError(t, b.tick(ctx))

	assert.Equal(t, uint32(49), r.Battery.Load())
}

func TestBatteryForcesAbortBelowThreshold(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b, r, obs := newTestBattery(t, cfg)
	ctx := context.Background()
	r.Battery.Store(14)
	require.NoError(t, r.Action.Store(ctx, region.Fly))

	require.NoError(t, b.tick(ctx))

	action, err := r.Action.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, region.Abort, action)
	assert.Equal(t, 1, obs.CallCounts()["abort"])
}

func TestBatteryDoesNotReAbortWhenAlreadyAborted(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b, r, obs := newTestBattery(t, cfg)
	ctx := context.Background()
	r.Battery.Store(10)
	require.NoError(t, r.Action.Store(ctx, region.Abort))

	require.NoError(t, b.tick(ctx))

	assert.Equal(t, 0, obs.CallCounts()["abort"])
}

func TestBatteryDepletedReturnsError(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b, r, _ := newTestBattery(t, cfg)
	ctx := context.Background()
	r.Battery.Store(0)
	require.NoError(t, r.Action.Store(ctx, region.Abort))

	err := b.tick(ctx)
	require.Error(t, err)
	assert.True(t, droned.IsCode(err, droned.CodeLowBattery))
}

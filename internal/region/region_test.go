package region

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegionDefaults(t *testing.T) {
	r := New(Config{
		OperatorAddr:   netip.MustParseAddr("127.0.0.1"),
		DroneAddr:      netip.MustParseAddr("127.0.0.1"),
		TelemetryPort:  9000,
		FlightCtrlPort: 9001,
	})

	assert.Equal(t, uint32(100), r.Battery.Load())
	action, err := r.Action.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, action)
	assert.Equal(t, defaultRingCapacity, r.GPS.Capacity())
}

func TestNewRegionCustomRingCapacity(t *testing.T) {
	r := New(Config{RingCapacity: 16})
	assert.Equal(t, 16, r.GPS.Capacity())
}

func TestRegionHeartbeat(t *testing.T) {
	r := New(Config{})
	assert.Equal(t, uint32(0), r.HeartbeatValue(RoleBattery))

	r.Heartbeat(RoleBattery)
	r.Heartbeat(RoleBattery)
	assert.Equal(t, uint32(2), r.HeartbeatValue(RoleBattery))
	assert.Equal(t, uint32(0), r.HeartbeatValue(RoleTelemetry), "heartbeats are independent per role")
}

func TestHandleTableAssignAndCurrent(t *testing.T) {
	tbl := NewHandleTable()

	h1 := tbl.Assign(RoleAccelerometer)
	assert.Equal(t, uint64(1), h1.Generation)
	assert.True(t, tbl.IsCurrent(h1))

	h2 := tbl.Assign(RoleAccelerometer)
	assert.Equal(t, uint64(2), h2.Generation)
	assert.False(t, tbl.IsCurrent(h1), "stale handle must no longer be current after respawn")
	assert.True(t, tbl.IsCurrent(h2))
}

func TestRegionResetLocksPreservesData(t *testing.T) {
	r := New(Config{RingCapacity: 8})
	ctx := context.Background()

	require.NoError(t, r.Action.Store(ctx, Fly))
	require.NoError(t, r.Accel.Store(ctx, 1, 2, 3))
	require.NoError(t, r.PWM.Store(ctx, [4]float64{0.5, 0.5, 0.5, 0.5}))
	r.Battery.Store(42)

	r.ResetLocks()

	action, err := r.Action.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Fly, action)

	x, y, z, err := r.Accel.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)
	assert.Equal(t, 3.0, z)

	motors, err := r.PWM.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0.5, 0.5, 0.5, 0.5}, motors)

	assert.Equal(t, uint32(42), r.Battery.Load())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "battery", RoleBattery.String())
	assert.Equal(t, "accelerometer", RoleAccelerometer.String())
	assert.Equal(t, "flight", RoleFlightController.String())
	assert.Equal(t, "gps", RoleGPSProducer.String())
	assert.Equal(t, "telemetry", RoleTelemetry.String())
}

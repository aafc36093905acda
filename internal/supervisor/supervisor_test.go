package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/actor"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Region = region.Config{RingCapacity: 64}
	cfg.Battery.TickInterval = time.Millisecond
	cfg.Accelerometer.TickInterval = time.Millisecond
	cfg.FlightCtrl.TickInterval = time.Millisecond
	cfg.GPS.SampleInterval = 50 * time.Millisecond
	cfg.GPS.PutTimeout = 5 * time.Millisecond
	cfg.Telemetry.TickInterval = 5 * time.Millisecond
	cfg.Telemetry.DialAddr = ""
	cfg.Watchdog.TickInterval = 5 * time.Millisecond
	cfg.Watchdog.StallThreshold = 200 * time.Millisecond
	cfg.RespawnBackoff = time.Millisecond
	return cfg
}

func TestSupervisorSpawnsAllActorsAndAdvancesHeartbeats(t *testing.T) {
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError})
	s := New(fastTestConfig(), logger, droned.NewMockObserver())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	for role := region.Role(0); role < region.RoleCount; role++ {
		assert.Greater(t, s.Region().HeartbeatValue(role), uint32(0), "role %s should have ticked", role)
	}
}

func TestSupervisorRespawnsCrashedActor(t *testing.T) {
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError})
	obs := droned.NewMockObserver()
	cfg := fastTestConfig()
	s := New(cfg, logger, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = s.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)

	handle := s.Region().Handles.Current(region.RoleBattery)
	before := handle.Generation

	s.mu.Lock()
	s.running[region.RoleBattery]()
	delete(s.running, region.RoleBattery)
	s.mu.Unlock()
	s.exits <- childExit{handle: handle, err: context.DeadlineExceeded}
	time.Sleep(20 * time.Millisecond)

	after := s.Region().Handles.Current(region.RoleBattery).Generation
	assert.Greater(t, after, before, "a crashed actor's generation should advance on respawn")
	assert.Greater(t, obs.CallCounts()["respawn"], 0)
}

func TestSupervisorIgnoresStaleExit(t *testing.T) {
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError})
	s := New(fastTestConfig(), logger, droned.NewMockObserver())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = s.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)

	stale := region.Handle{Role: region.RoleBattery, Generation: 0}
	current := s.Region().Handles.Current(region.RoleBattery).Generation
	s.exits <- childExit{handle: stale, err: context.DeadlineExceeded}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, current, s.Region().Handles.Current(region.RoleBattery).Generation)
}

func TestSupervisorRecoveryResetsLocksAndRespawns(t *testing.T) {
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError})
	obs := droned.NewMockObserver()
	s := New(fastTestConfig(), logger, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = s.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)

	genBefore := s.Region().Handles.Current(region.RoleFlightController).Generation
	s.RequestRecovery()
	time.Sleep(30 * time.Millisecond)

	genAfter := s.Region().Handles.Current(region.RoleFlightController).Generation
	assert.Greater(t, genAfter, genBefore)
	assert.Greater(t, obs.CallCounts()["lockReset"], 0)
}

func TestSupervisorBuildActorCoversAllRoles(t *testing.T) {
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError})
	s := New(fastTestConfig(), logger, droned.NewMockObserver())

	roles := []region.Role{
		region.RoleBattery,
		region.RoleAccelerometer,
		region.RoleFlightController,
		region.RoleGPSProducer,
		region.RoleTelemetry,
		region.RoleWatchdog,
	}
	for _, role := range roles {
		a := s.buildActor(role)
		require.NotNil(t, a)
		assert.Equal(t, role, a.Role())
	}
}

var _ actor.Actor = (*actor.Battery)(nil)

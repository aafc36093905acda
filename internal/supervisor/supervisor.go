// Package supervisor implements the droned process-level parent: it
// creates the shared region, spawns one goroutine per actor in place of
// the teacher's one-thread-per-queue Runner, and reacts to exits and
// watchdog escalations the way the teacher's queue.Runner reacts to
// io_uring completions — a context-driven loop selecting over typed
// event channels instead of spinning.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/actor"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
)

// childExit reports that a spawned actor's Run method returned, carrying
// enough identity to recognize whether the exit is still relevant (a
// stale goroutine from an earlier generation must not trigger a
// respawn for the generation that has already replaced it).
type childExit struct {
	handle region.Handle
	err    error
}

// Config bundles everything the supervisor needs to build the region and
// every actor's tunables. RespawnBackoff guards against respawn storms
// when an actor fails immediately on every attempt.
type Config struct {
	Region         region.Config
	Battery        actor.BatteryConfig
	Accelerometer  actor.AccelerometerConfig
	FlightCtrl     actor.FlightControllerConfig
	GPS            actor.GPSConfig
	Telemetry      actor.TelemetryConfig
	Watchdog       actor.WatchdogConfig
	RespawnBackoff time.Duration
}

// DefaultConfig returns the spec's actor timings bundled together, with
// FlightCtrl's and Telemetry's dial/listen addresses left for the caller
// to fill in from the resolved network configuration.
func DefaultConfig() Config {
	return Config{
		Battery:        actor.DefaultBatteryConfig(),
		Accelerometer:  actor.DefaultAccelerometerConfig(),
		FlightCtrl:     actor.DefaultFlightControllerConfig(),
		GPS:            actor.DefaultGPSConfig(),
		Telemetry:      actor.DefaultTelemetryConfig(),
		Watchdog:       actor.DefaultWatchdogConfig(),
		RespawnBackoff: 250 * time.Millisecond,
	}
}

// Supervisor owns the shared region's lifecycle: creation, spawning one
// goroutine per actor, respawning on crash, and resetting synchronization
// primitives on a watchdog-reported stall once every actor has stopped.
type Supervisor struct {
	cfg      Config
	region   *region.Region
	logger   *logging.Logger
	observer droned.Observer

	mu      sync.Mutex
	running map[region.Role]context.CancelFunc

	exits    chan childExit
	recovery chan struct{}
}

// New creates a Supervisor and the Region it will own. The network
// configuration must already be set in cfg.Region before this is called;
// the region is populated once, before any actor is spawned.
func New(cfg Config, logger *logging.Logger, observer droned.Observer) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		region:   region.New(cfg.Region),
		logger:   logger,
		observer: observer,
		running:  make(map[region.Role]context.CancelFunc),
		exits:    make(chan childExit, int(region.RoleCount)+1),
		recovery: make(chan struct{}, 1),
	}
}

// Region returns the shared region, e.g. for an operator console wired
// into the same process during tests.
func (s *Supervisor) Region() *region.Region { return s.region }

// RequestRecovery asks the supervisor to terminate every actor, reset the
// region's synchronization primitives, and respawn — the message-passing
// substitute for a SIGUSR1-style recovery signal. Safe to call from any
// goroutine, including the watchdog's own tick.
func (s *Supervisor) RequestRecovery() {
	select {
	case s.recovery <- struct{}{}:
	default:
	}
}

// Run builds every actor, spawns them, and blocks in the supervisor's
// main loop until ctx is canceled. On return, every actor has been asked
// to stop, though Run does not itself wait for their goroutines to exit
// (callers needing that should track their own WaitGroup around Run).
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	s.spawnAll(ctx)
	s.spawn(ctx, region.RoleWatchdog)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case exit := <-s.exits:
			s.handleExit(ctx, exit)

		case <-s.recovery:
			if err := s.handleRecovery(ctx); err != nil {
				return err
			}
		}
	}
}

// buildActor constructs the Actor for one role from the supervisor's
// config. Called both at initial spawn and on every respawn, so a
// respawned actor always starts from a clean struct.
func (s *Supervisor) buildActor(role region.Role) actor.Actor {
	switch role {
	case region.RoleBattery:
		return actor.NewBattery(s.region, s.logger, s.observer, s.cfg.Battery)
	case region.RoleAccelerometer:
		return actor.NewAccelerometer(s.region, s.logger, s.observer, s.cfg.Accelerometer)
	case region.RoleFlightController:
		return actor.NewFlightController(s.region, s.logger, s.observer, s.cfg.FlightCtrl)
	case region.RoleGPSProducer:
		return actor.NewGPSProducer(s.region, s.logger, s.observer, s.cfg.GPS)
	case region.RoleTelemetry:
		return actor.NewTelemetry(s.region, s.logger, s.observer, s.cfg.Telemetry)
	case region.RoleWatchdog:
		return actor.NewWatchdog(s.region, s.logger, s.observer, s.cfg.Watchdog, func(region.Role) {
			s.RequestRecovery()
		})
	default:
		panic(fmt.Sprintf("supervisor: unknown actor role %v", role))
	}
}

// spawnAll spawns the five heartbeat-bearing actors, at startup and again
// after a recovery reset; the watchdog is spawned separately.
func (s *Supervisor) spawnAll(ctx context.Context) {
	for role := region.Role(0); role < region.RoleCount; role++ {
		s.spawn(ctx, role)
	}
}

// spawn assigns a fresh handle for role, constructs its actor, and runs
// it in its own goroutine with panic recovery, reporting exit (clean,
// errored, or recovered-from-panic) on s.exits.
func (s *Supervisor) spawn(ctx context.Context, role region.Role) {
	handle := s.region.Handles.Assign(role)
	a := s.buildActor(role)

	childCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[role] = cancel
	s.mu.Unlock()

	s.logger.Info("spawning actor", "role", role.String(), "generation", handle.Generation)

	go func() {
		err := s.runWithRecover(childCtx, a)
		select {
		case s.exits <- childExit{handle: handle, err: err}:
		case <-ctx.Done():
		}
	}()
}

// runWithRecover runs a's loop, converting a panic into an error so a
// single actor's bug degrades to a respawn instead of taking down the
// whole process — the supervisor's analogue of the kernel restarting a
// crashed process.
func (s *Supervisor) runWithRecover(ctx context.Context, a actor.Actor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor %s panicked: %v", a.Role().String(), r)
		}
	}()
	return a.Run(ctx)
}

// handleExit reacts to one actor's termination. A stale handle
// (superseded by a newer generation, e.g. a recovery reset racing with a
// crash) is ignored, and nothing happens once the supervisor's own
// context has been canceled. Otherwise the role is respawned: an error
// other than a canceled context is logged and counted, since it
// represents an actual crash rather than an orderly termination.
func (s *Supervisor) handleExit(ctx context.Context, exit childExit) {
	if !s.region.Handles.IsCurrent(exit.handle) {
		s.logger.Debug("ignoring exit from stale actor generation", "role", exit.handle.Role.String())
		return
	}
	if ctx.Err() != nil {
		return
	}
	if exit.err != nil && exit.err != context.Canceled {
		s.logger.Warn("actor exited, respawning", "role", exit.handle.Role.String(), "error", exit.err)
		if s.observer != nil {
			s.observer.ObserveRespawn(exit.handle.Role.String())
		}
		time.Sleep(s.cfg.RespawnBackoff)
	}
	s.spawn(ctx, exit.handle.Role)
}

// handleRecovery terminates every running actor, waits for their exits to
// drain, resets the region's locks, and respawns everyone. Locks may only
// be reinitialized once every actor that could be blocked on them has
// actually stopped; reinitializing a lock a live actor is waiting on
// would let it observe a torn semaphore mid-wait.
func (s *Supervisor) handleRecovery(ctx context.Context) error {
	s.logger.Warn("recovery requested, terminating all actors")

	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.running))
	for _, cancel := range s.running {
		cancels = append(cancels, cancel)
	}
	s.running = make(map[region.Role]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	pending := len(cancels)
	for pending > 0 {
		select {
		case <-s.exits:
			pending--
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.region.ResetLocks()
	if s.observer != nil {
		s.observer.ObserveLockReset()
	}
	s.logger.Info("locks reset, respawning all actors")
	s.spawnAll(ctx)
	s.spawn(ctx, region.RoleWatchdog)
	return nil
}

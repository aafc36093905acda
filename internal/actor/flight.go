package actor

import (
	"context"
	"net"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
	"github.com/ehrlich-b/droned/internal/wire"
)

// FlightControllerConfig tunes timing and motor ramp/brake constants.
type FlightControllerConfig struct {
	TickInterval     time.Duration
	RebindInterval   time.Duration
	FlyTimeoutLimit  int
	MotorRampStep    float64
	MotorRampCeiling float64
	MotorBrakeFloor  float64
	MotorDescentStep float64
	ListenAddr       string // host:port to bind the UDP command socket to
}

// DefaultFlightControllerConfig returns the spec's flight controller timing.
func DefaultFlightControllerConfig() FlightControllerConfig {
	return FlightControllerConfig{
		TickInterval:     50 * time.Millisecond,
		RebindInterval:   2000 * time.Millisecond,
		FlyTimeoutLimit:  10,
		MotorRampStep:    0.005,
		MotorRampCeiling: 0.7,
		MotorBrakeFloor:  0.5,
		MotorDescentStep: 0.01,
	}
}

// FlightController owns the motor PWM cell and the UDP command socket,
// and is the central driver of Action transitions.
type FlightController struct {
	deps
	cfg FlightControllerConfig

	conn            *net.UDPConn
	lastBindAttempt time.Time

	lastAccelSet bool
	lastAccelX   float64
	lastAccelY   float64
	lastAccelZ   float64
	flyTimeout   int
	lastAction   region.Action
}

// NewFlightController creates a FlightController actor.
func NewFlightController(r *region.Region, logger *logging.Logger, observer droned.Observer, cfg FlightControllerConfig) *FlightController {
	return &FlightController{
		deps:       deps{region: r, logger: logger.WithRole("flight"), observer: observer},
		cfg:        cfg,
		lastAction: region.Idle,
	}
}

// Role implements Actor.
func (f *FlightController) Role() region.Role { return region.RoleFlightController }

// Run implements Actor.
func (f *FlightController) Run(ctx context.Context) error {
	defer func() {
		if f.conn != nil {
			f.conn.Close()
			f.conn = nil
		}
	}()
	f.tryBind()
	return runLoop(ctx, f.cfg.TickInterval, f.tick)
}

// tryBind attempts to bind the UDP command socket, time-gated so repeated
// failures don't spin.
func (f *FlightController) tryBind() {
	if f.conn != nil {
		return
	}
	now := time.Now()
	if !f.lastBindAttempt.IsZero() && now.Sub(f.lastBindAttempt) < f.cfg.RebindInterval {
		return
	}
	f.lastBindAttempt = now

	if f.cfg.ListenAddr == "" {
		return
	}
	addr, err := net.ResolveUDPAddr("udp", f.cfg.ListenAddr)
	if err != nil {
		f.logger.Warn("resolve failed", "addr", f.cfg.ListenAddr, "error", err)
		return
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		f.logger.Warn("bind failed, will retry", "addr", f.cfg.ListenAddr, "error", err)
		if f.observer != nil {
			f.observer.ObserveBindRetry()
		}
		return
	}
	f.conn = conn
	f.logger.Info("bound command socket", "addr", f.cfg.ListenAddr)
}

// readCommand performs one non-blocking Action-sized datagram read. A
// near-zero read deadline is the idiomatic Go substitute for a
// would-block socket flag.
func (f *FlightController) readCommand() (region.Action, bool) {
	if f.conn == nil {
		return 0, false
	}
	buf := make([]byte, wire.ActionTagSize+1)
	_ = f.conn.SetReadDeadline(time.Now().Add(time.Microsecond))
	n, _, err := f.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, false
	}
	action, err := wire.DecodeAction(buf[:n])
	if err != nil {
		return 0, false
	}
	return action, true
}

func (f *FlightController) tick(ctx context.Context) error {
	start := time.Now()

	f.tryBind()

	cmd, hasCmd := f.readCommand()

	action, err := f.region.Action.Load(ctx)
	if err != nil {
		return err
	}

	next := action

	switch action {
	case region.Fly:
		if err := f.tickFly(ctx); err != nil {
			return err
		}
		if f.flyTimeout >= f.cfg.FlyTimeoutLimit {
			next = region.Abort
			if f.observer != nil {
				f.observer.ObserveFlyTimeout()
			}
		} else if hasCmd && isEligible(cmd, region.SampleGPS, region.Land, region.Abort) {
			next = cmd
		}

	case region.SampleGPS:
		if hasCmd && isEligible(cmd, region.Fly, region.Abort) {
			next = cmd
		}

	case region.Idle:
		if hasCmd && isEligible(cmd, region.Fly, region.Charge, region.Abort) {
			next = cmd
		}

	case region.Charge:
		if hasCmd && isEligible(cmd, region.Idle, region.Abort) {
			if f.region.Battery.Load() >= droned.BatteryAbortThreshold {
				next = cmd
			} else {
				f.logger.Info("charge command ignored, battery still low")
			}
		}

	case region.Abort:
		battery := f.region.Battery.Load()
		if battery < droned.BatteryAbortThreshold {
			// Stop this tick: no landing fall-through while critically low.
			next = region.Charge
			break
		}
		// Revert to the pre-abort action, then fall through into the
		// same landing logic Land itself runs, so one tick both picks
		// the revert target and lowers the motors. If the vehicle comes
		// to rest in this tick, the landing target replaces the revert
		// target before the single Store below. Preserve this coupling;
		// see the design notes on the Abort->Land fall-through.
		next = f.lastAction
		landed, lerr := f.tickLand(ctx)
		if lerr != nil {
			return lerr
		}
		if landed {
			next = f.landingTarget()
		}

	case region.Land:
		if hasCmd && isEligible(cmd, region.Fly, region.Abort) {
			next = cmd
		} else {
			landed, err := f.tickLand(ctx)
			if err != nil {
				return err
			}
			if landed {
				next = f.landingTarget()
			}
		}

	default:
		next = region.Abort
	}

	if next != action {
		f.lastAction = action
		if err := f.region.Action.Store(ctx, next); err != nil {
			return err
		}
		if next == region.Abort && f.observer != nil {
			f.observer.ObserveAbort()
		}
	}

	timeTick(f.region, f.observer, region.RoleFlightController, start)
	return nil
}

// tickFly implements the Fly state's motor ramp/brake logic and stall
// detection.
func (f *FlightController) tickFly(ctx context.Context) error {
	x, y, z, err := f.region.Accel.Load(ctx)
	if err != nil {
		return err
	}

	if f.lastAccelSet && x == f.lastAccelX && y == f.lastAccelY && z == f.lastAccelZ {
		f.flyTimeout++
	} else {
		f.flyTimeout = 0
	}
	f.lastAccelSet = true
	f.lastAccelX, f.lastAccelY, f.lastAccelZ = x, y, z

	return f.region.PWM.Update(ctx, func(m [4]float64) [4]float64 {
		avg := (m[0] + m[1] + m[2] + m[3]) / 4
		if avg < f.cfg.MotorRampCeiling {
			for i := range m {
				m[i] = clamp01(m[i] + f.cfg.MotorRampStep)
			}
		}
		if avg >= f.cfg.MotorBrakeFloor {
			for i := range m {
				m[i] = clamp01(m[i] - (x + y))
			}
		}
		return m
	})
}

// tickLand decrements every motor towards 0 and reports whether the
// vehicle has come to rest (mean PWM reached 0).
func (f *FlightController) tickLand(ctx context.Context) (bool, error) {
	landed := false
	err := f.region.PWM.Update(ctx, func(m [4]float64) [4]float64 {
		for i := range m {
			m[i] = clamp01(m[i] - f.cfg.MotorDescentStep)
		}
		mean := (m[0] + m[1] + m[2] + m[3]) / 4
		landed = mean == 0
		return m
	})
	return landed, err
}

// landingTarget decides what Action a completed landing resolves to:
// Idle under normal battery, Charge if the battery is still critically
// low (the Abort fall-through's continuation).
func (f *FlightController) landingTarget() region.Action {
	if f.region.Battery.Load() < droned.BatteryAbortThreshold {
		return region.Charge
	}
	return region.Idle
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isEligible(cmd region.Action, eligible ...region.Action) bool {
	for _, e := range eligible {
		if cmd == e {
			return true
		}
	}
	return false
}

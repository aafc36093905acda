package actor

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
)

// TelemetryConfig tunes Telemetry's tick interval, dial address, and the
// GPS-drain timeout.
type TelemetryConfig struct {
	TickInterval     time.Duration
	DrainTimeout     time.Duration
	DialAddr         string
	DialTimeout      time.Duration
	ReconnectBackoff time.Duration
}

// DefaultTelemetryConfig returns the spec's telemetry timing.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		TickInterval:     10 * time.Millisecond,
		DrainTimeout:     5 * time.Second,
		DialTimeout:      2 * time.Second,
		ReconnectBackoff: 500 * time.Millisecond,
	}
}

// Telemetry is a TCP client streaming periodic snapshots of shared state
// to the operator, and the ring buffer's sole consumer.
type Telemetry struct {
	deps
	cfg TelemetryConfig

	conn               net.Conn
	lastConnectAttempt time.Time
}

// NewTelemetry creates a Telemetry actor.
func NewTelemetry(r *region.Region, logger *logging.Logger, observer droned.Observer, cfg TelemetryConfig) *Telemetry {
	return &Telemetry{
		deps: deps{region: r, logger: logger.WithRole("telemetry"), observer: observer},
		cfg:  cfg,
	}
}

// Role implements Actor.
func (t *Telemetry) Role() region.Role { return region.RoleTelemetry }

// Run implements Actor.
func (t *Telemetry) Run(ctx context.Context) error {
	defer func() {
		if t.conn != nil {
			t.conn.Close()
			t.conn = nil
		}
	}()
	t.tryConnect()
	return runLoop(ctx, t.cfg.TickInterval, t.tick)
}

// tryConnect (re)dials the operator, time-gated so repeated failures
// don't spin.
func (t *Telemetry) tryConnect() {
	if t.conn != nil {
		return
	}
	now := time.Now()
	if !t.lastConnectAttempt.IsZero() && now.Sub(t.lastConnectAttempt) < t.cfg.ReconnectBackoff {
		return
	}
	t.lastConnectAttempt = now

	if t.cfg.DialAddr == "" {
		return
	}
	conn, err := net.DialTimeout("tcp", t.cfg.DialAddr, t.cfg.DialTimeout)
	if err != nil {
		t.logger.Warn("dial failed, will retry", "addr", t.cfg.DialAddr, "error", err)
		return
	}
	t.conn = conn
	if t.observer != nil {
		t.observer.ObserveReconnect()
	}
	t.logger.Info("connected to operator", "addr", t.cfg.DialAddr)
}

func (t *Telemetry) tick(ctx context.Context) error {
	start := time.Now()

	t.tryConnect()

	var b strings.Builder

	battery := t.region.Battery.Load()
	fmt.Fprintf(&b, "BAT = %d%%", battery)

	if x, y, z, ok := t.region.Accel.TryLoad(); ok {
		fmt.Fprintf(&b, " ACCEL = (%.6f, %.6f, %.6f)", x, y, z)
	}

	if motors, ok := t.region.PWM.TryLoad(); ok {
		fmt.Fprintf(&b, " MOTORS PWM = [%d%%, %d%%, %d%%, %d%%]",
			round100(motors[0]), round100(motors[1]), round100(motors[2]), round100(motors[3]))
	}

	action, err := t.region.Action.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(&b, " ACTION = %d", action)

	if action == region.SampleGPS {
		gpsBlock, noFix := t.drainGPS()
		b.WriteString(" GPS { ")
		b.WriteString(gpsBlock)
		b.WriteString(" }")
		if noFix {
			b.WriteString(" NO FIX.")
			if err := t.region.Action.Store(ctx, region.Abort); err != nil {
				return err
			}
			if t.observer != nil {
				t.observer.ObserveNoFix()
			}
		}
	}

	b.WriteString("\n")
	t.send(b.String())

	timeTick(t.region, t.observer, region.RoleTelemetry, start)
	return nil
}

// drainGPS consumes ring characters until a newline or the buffer fills,
// reporting noFix if a character's wait exceeds DrainTimeout.
func (t *Telemetry) drainGPS() (msg string, noFix bool) {
	var sb strings.Builder
	capacity := t.region.GPS.Capacity()
	for i := 0; i < capacity; i++ {
		c, err := t.region.GPS.GetTimeout(t.cfg.DrainTimeout)
		if err != nil {
			return sb.String(), true
		}
		if c == '\n' {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String(), false
}

// send writes msg to the operator connection. A broken pipe marks the
// connection failed for the next tick's reconnect attempt rather than
// propagating a fatal error, matching the MSG_NOSIGNAL-equivalent
// semantics the spec calls for: telemetry delivery failures never
// terminate the process.
func (t *Telemetry) send(msg string) {
	if t.conn == nil {
		return
	}
	_, err := t.conn.Write([]byte(msg))
	if err != nil {
		t.logger.Warn("send failed, will reconnect", "error", err)
		t.conn.Close()
		t.conn = nil
	}
}

func round100(f float64) int {
	return int(f*100 + 0.5)
}

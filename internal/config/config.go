// Package config builds the drone binary's runtime configuration from
// its four mandatory positional arguments plus a handful of optional
// tunables, in the shape cmd/ublk-mem builds its DeviceParams: a
// Default() constructor overridden by flag.Parse.
package config

import (
	"flag"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/ehrlich-b/droned/internal/region"
	"gopkg.in/yaml.v3"
)

// Config holds everything the supervisor needs to build a region.Region
// and start the actor roster.
type Config struct {
	OperatorAddr   netip.Addr
	OperatorPort   uint16
	DroneAddr      netip.Addr
	FlightCtrlPort uint16

	RingCapacity      int
	BatteryTick       time.Duration
	FlightTick        time.Duration
	AccelTick         time.Duration
	GPSTick           time.Duration
	TelemetryTick     time.Duration
	WatchdogTick      time.Duration
	LowBatteryPercent uint32
	MetricsAddr       string
}

// Default returns the spec's default tunables; the four network fields
// are left zero and must be filled in from positional arguments.
func Default() *Config {
	return &Config{
		RingCapacity:      1280,
		BatteryTick:       100 * time.Microsecond,
		FlightTick:        50 * time.Millisecond,
		AccelTick:         10 * time.Millisecond,
		GPSTick:           1 * time.Second,
		TelemetryTick:     10 * time.Millisecond,
		WatchdogTick:      100 * time.Millisecond,
		LowBatteryPercent: 15,
		MetricsAddr:       "",
	}
}

// ParseArgs fills in the network fields from the spec's fixed
// `<operator_ip> <operator_tcp_port> <drone_ip> <flight_ctrl_udp_port>`
// positional order. Tunables are left to flag overrides applied by the
// caller before or after ParseArgs.
func (c *Config) ParseArgs(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("expected 4 arguments: <operator_ip> <operator_tcp_port> <drone_ip> <flight_ctrl_udp_port>, got %d", len(args))
	}

	opAddr, err := netip.ParseAddr(args[0])
	if err != nil {
		return fmt.Errorf("invalid operator_ip %q: %w", args[0], err)
	}
	var opPort uint16
	if _, err := fmt.Sscanf(args[1], "%d", &opPort); err != nil {
		return fmt.Errorf("invalid operator_tcp_port %q: %w", args[1], err)
	}
	droneAddr, err := netip.ParseAddr(args[2])
	if err != nil {
		return fmt.Errorf("invalid drone_ip %q: %w", args[2], err)
	}
	var flightPort uint16
	if _, err := fmt.Sscanf(args[3], "%d", &flightPort); err != nil {
		return fmt.Errorf("invalid flight_ctrl_udp_port %q: %w", args[3], err)
	}

	c.OperatorAddr = opAddr
	c.OperatorPort = opPort
	c.DroneAddr = droneAddr
	c.FlightCtrlPort = flightPort
	return nil
}

// fileOverrides is the YAML shape accepted by LoadFile. Every field is a
// pointer so an absent key leaves the corresponding Config field alone
// rather than zeroing it.
type fileOverrides struct {
	RingCapacity      *int           `yaml:"ring_capacity"`
	BatteryTick       *time.Duration `yaml:"battery_tick"`
	FlightTick        *time.Duration `yaml:"flight_tick"`
	AccelTick         *time.Duration `yaml:"accel_tick"`
	GPSTick           *time.Duration `yaml:"gps_tick"`
	TelemetryTick     *time.Duration `yaml:"telemetry_tick"`
	WatchdogTick      *time.Duration `yaml:"watchdog_tick"`
	LowBatteryPercent *uint32        `yaml:"low_battery_percent"`
	MetricsAddr       *string        `yaml:"metrics_addr"`
}

// LoadFile overlays tunables read from a YAML file onto c, leaving any
// key the file omits at its current value. Flags registered by
// RegisterTunableFlags should be parsed after LoadFile so a flag on the
// command line always wins over the file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overrides.RingCapacity != nil {
		c.RingCapacity = *overrides.RingCapacity
	}
	if overrides.BatteryTick != nil {
		c.BatteryTick = *overrides.BatteryTick
	}
	if overrides.FlightTick != nil {
		c.FlightTick = *overrides.FlightTick
	}
	if overrides.AccelTick != nil {
		c.AccelTick = *overrides.AccelTick
	}
	if overrides.GPSTick != nil {
		c.GPSTick = *overrides.GPSTick
	}
	if overrides.TelemetryTick != nil {
		c.TelemetryTick = *overrides.TelemetryTick
	}
	if overrides.WatchdogTick != nil {
		c.WatchdogTick = *overrides.WatchdogTick
	}
	if overrides.LowBatteryPercent != nil {
		c.LowBatteryPercent = *overrides.LowBatteryPercent
	}
	if overrides.MetricsAddr != nil {
		c.MetricsAddr = *overrides.MetricsAddr
	}
	return nil
}

// RegisterTunableFlags wires the optional tunables onto fs, in the style
// cmd/ublk-mem registers -size/-v/-minimal. Call before fs.Parse.
func (c *Config) RegisterTunableFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.RingCapacity, "ring-capacity", c.RingCapacity, "GPS NMEA ring buffer capacity in bytes")
	fs.DurationVar(&c.FlightTick, "flight-tick", c.FlightTick, "flight controller tick interval")
	fs.DurationVar(&c.AccelTick, "accel-tick", c.AccelTick, "accelerometer tick interval")
	fs.DurationVar(&c.GPSTick, "gps-tick", c.GPSTick, "GPS producer tick interval")
	fs.DurationVar(&c.TelemetryTick, "telemetry-tick", c.TelemetryTick, "telemetry tick interval")
	fs.DurationVar(&c.WatchdogTick, "watchdog-tick", c.WatchdogTick, "watchdog tick interval")
	fs.Var(newUint32Value(&c.LowBatteryPercent), "low-battery", "battery percentage below which Action forces Abort")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "address to serve Prometheus /metrics on (empty disables)")
}

// uint32Value adapts a *uint32 field to flag.Value, since the flag
// package has no built-in UintVar for anything narrower than uint/uint64.
type uint32Value uint32

func newUint32Value(p *uint32) *uint32Value {
	return (*uint32Value)(p)
}

func (v *uint32Value) Set(s string) error {
	var n uint32
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return err
	}
	*v = uint32Value(n)
	return nil
}

func (v *uint32Value) String() string {
	if v == nil {
		return "0"
	}
	return fmt.Sprintf("%d", uint32(*v))
}

// RegionConfig converts Config into a region.Config for region.New.
func (c *Config) RegionConfig() region.Config {
	return region.Config{
		OperatorAddr:   c.OperatorAddr,
		DroneAddr:      c.DroneAddr,
		TelemetryPort:  c.OperatorPort,
		FlightCtrlPort: c.FlightCtrlPort,
		RingCapacity:   c.RingCapacity,
	}
}

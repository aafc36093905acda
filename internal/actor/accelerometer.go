package actor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
)

// AccelerometerConfig tunes the simulation. MaxThrust/DifferentialFactor
// and the noise sigmas are parameters, not contracts — only the surface
// (acceleration derived from PWM with additive noise) is load-bearing,
// since the flight controller's stall detection depends on it changing.
type AccelerometerConfig struct {
	TickInterval       time.Duration
	MaxThrust          float64
	DifferentialFactor float64
	NoiseSigmaXY       float64
	NoiseSigmaZ        float64
	Gravity            float64
}

// DefaultAccelerometerConfig returns the spec's simulation parameters.
func DefaultAccelerometerConfig() AccelerometerConfig {
	return AccelerometerConfig{
		TickInterval:       10 * time.Millisecond,
		MaxThrust:          19.62,
		DifferentialFactor: 0.2,
		NoiseSigmaXY:       0.02,
		NoiseSigmaZ:        0.05,
		Gravity:            9.81,
	}
}

// Accelerometer is the sole writer of acceleration. It derives a
// simulated (x, y, z) from current motor PWM plus Gaussian noise.
type Accelerometer struct {
	deps
	cfg  AccelerometerConfig
	rand *rand.Rand
}

// NewAccelerometer creates an Accelerometer actor.
func NewAccelerometer(r *region.Region, logger *logging.Logger, observer droned.Observer, cfg AccelerometerConfig) *Accelerometer {
	return &Accelerometer{
		deps: deps{region: r, logger: logger.WithRole("accelerometer"), observer: observer},
		cfg:  cfg,
		rand: rand.New(rand.NewSource(1)),
	}
}

// Role implements Actor.
func (a *Accelerometer) Role() region.Role { return region.RoleAccelerometer }

// Run implements Actor.
func (a *Accelerometer) Run(ctx context.Context) error {
	return runLoop(ctx, a.cfg.TickInterval, a.tick)
}

func (a *Accelerometer) tick(ctx context.Context) error {
	start := time.Now()

	motors, err := a.region.PWM.Load(ctx)
	if err != nil {
		return err
	}

	avg := (motors[0] + motors[1] + motors[2] + motors[3]) / 4
	thrust := avg * a.cfg.MaxThrust

	// Differential tilt from front/back and left/right motor imbalance,
	// a simple stand-in for a real IMU's roll/pitch coupling.
	diffX := (motors[0] + motors[1] - motors[2] - motors[3]) * a.cfg.DifferentialFactor
	diffY := (motors[0] + motors[2] - motors[1] - motors[3]) * a.cfg.DifferentialFactor

	nx, ny := a.boxMuller()
	nz, _ := a.boxMuller()

	x := diffX + nx*a.cfg.NoiseSigmaXY
	y := diffY + ny*a.cfg.NoiseSigmaXY
	z := thrust - a.cfg.Gravity + nz*a.cfg.NoiseSigmaZ

	if err := a.region.Accel.Store(ctx, x, y, z); err != nil {
		return err
	}

	timeTick(a.region, a.observer, region.RoleAccelerometer, start)
	return nil
}

// boxMuller generates a pair of independent standard-normal samples from
// two uniforms via the Box-Muller transform.
func (a *Accelerometer) boxMuller() (float64, float64) {
	u1 := a.rand.Float64()
	u2 := a.rand.Float64()
	if u1 <= 1e-12 {
		u1 = 1e-12
	}
	r := math.Sqrt(-2 * math.Log(u1))
	z0 := r * math.Cos(2*math.Pi*u2)
	z1 := r * math.Sin(2*math.Pi*u2)
	return z0, z1
}

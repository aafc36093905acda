package actor

import (
	"context"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
)

// gpsSamples is a static table of NMEA sentences the producer cycles
// through, one per tick. Each sample is newline-terminated so Telemetry's
// drain loop has an unambiguous end marker.
var gpsSamples = []string{
	"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n",
	"$GPGGA,123520,4807.041,N,01131.004,E,1,08,0.9,545.6,M,46.9,M,,*4A\n",
	"$GPGGA,123521,4807.044,N,01131.009,E,1,07,1.0,545.9,M,46.9,M,,*4D\n",
	"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\n",
}

// GPSConfig tunes the GPS producer's sample interval and per-character
// empty-wait timeout.
type GPSConfig struct {
	SampleInterval time.Duration
	PutTimeout     time.Duration
	Samples        []string
}

// DefaultGPSConfig returns the spec's ~1 Hz producer timing.
func DefaultGPSConfig() GPSConfig {
	return GPSConfig{
		SampleInterval: 1 * time.Second,
		PutTimeout:     1 * time.Second,
		Samples:        gpsSamples,
	}
}

// GPSProducer is the sole writer of the NMEA ring buffer. It performs no
// Action-state inspection of its own: flow control is entirely the
// consumer's appetite on the ring's full semaphore.
type GPSProducer struct {
	deps
	cfg       GPSConfig
	sampleIdx int
}

// NewGPSProducer creates a GPSProducer actor.
func NewGPSProducer(r *region.Region, logger *logging.Logger, observer droned.Observer, cfg GPSConfig) *GPSProducer {
	if len(cfg.Samples) == 0 {
		cfg.Samples = gpsSamples
	}
	return &GPSProducer{
		deps: deps{region: r, logger: logger.WithRole("gps"), observer: observer},
		cfg:  cfg,
	}
}

// Role implements Actor.
func (g *GPSProducer) Role() region.Role { return region.RoleGPSProducer }

// Run implements Actor.
func (g *GPSProducer) Run(ctx context.Context) error {
	return runLoop(ctx, g.cfg.SampleInterval, g.tick)
}

// tick writes one full sample's characters into the ring, abandoning the
// sample (leaving its index unadvanced, to be retried next tick) if any
// character's empty-wait times out.
func (g *GPSProducer) tick(ctx context.Context) error {
	start := time.Now()

	sample := g.cfg.Samples[g.sampleIdx]
	completed := true
	for i := 0; i < len(sample); i++ {
		if err := g.region.GPS.PutTimeout(sample[i], g.cfg.PutTimeout); err != nil {
			completed = false
			if g.observer != nil {
				g.observer.ObserveSemTimeout()
			}
			g.logger.Debug("sample abandoned, ring full")
			break
		}
	}

	if completed {
		g.sampleIdx = (g.sampleIdx + 1) % len(g.cfg.Samples)
	}

	timeTick(g.region, g.observer, region.RoleGPSProducer, start)
	return nil
}

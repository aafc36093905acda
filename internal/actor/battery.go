package actor

import (
	"context"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
)

// BatteryConfig tunes Battery's tick interval and charge/drain rates.
type BatteryConfig struct {
	TickInterval   time.Duration
	ChargeInterval time.Duration // how often charge increments while Action==Charge
	DrainInterval  time.Duration // how often charge decrements otherwise
	AbortThreshold uint32        // charge strictly below this forces Action=Abort
}

// DefaultBatteryConfig returns the spec's battery timing.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		TickInterval:   100 * time.Microsecond,
		ChargeInterval: 500 * time.Millisecond,
		DrainInterval:  2000 * time.Millisecond,
		AbortThreshold: 15,
	}
}

// Battery is the sole writer of the charge scalar. It drives the
// Abort-on-low-charge transition and Charge accumulation.
type Battery struct {
	deps
	cfg        BatteryConfig
	lastAdjust time.Time
}

// NewBattery creates a Battery actor.
func NewBattery(r *region.Region, logger *logging.Logger, observer droned.Observer, cfg BatteryConfig) *Battery {
	return &Battery{
		deps: deps{region: r, logger: logger.WithRole("battery"), observer: observer},
		cfg:  cfg,
	}
}

// Role implements Actor.
func (b *Battery) Role() region.Role { return region.RoleBattery }

// Run implements Actor.
func (b *Battery) Run(ctx context.Context) error {
	b.lastAdjust = time.Now()
	return runLoop(ctx, b.cfg.TickInterval, b.tick)
}

func (b *Battery) tick(ctx context.Context) error {
	start := time.Now()

	action, err := b.region.Action.Load(ctx)
	if err != nil {
		return err
	}

	charge := b.region.Battery.Load()
	now := time.Now()

	if action == region.Charge {
		if now.Sub(b.lastAdjust) >= b.cfg.ChargeInterval {
			if charge < droned.BatteryChargeMax {
				charge++
				b.region.Battery.Store(charge)
			}
			b.lastAdjust = now
		}
	} else {
		if now.Sub(b.lastAdjust) >= b.cfg.DrainInterval {
			if charge > droned.BatteryChargeMin {
				charge--
				b.region.Battery.Store(charge)
			}
			b.lastAdjust = now
		}
	}

	if charge < b.cfg.AbortThreshold && action != region.Abort {
		if err := b.region.Action.Store(ctx, region.Abort); err != nil {
			return err
		}
		if b.observer != nil {
			b.observer.ObserveAbort()
		}
		b.logger.Info("low charge forced abort", "charge", charge)
	}

	if charge == droned.BatteryChargeMin {
		b.logger.Error("battery depleted")
		return droned.NewActorError("tick", "battery", droned.CodeLowBattery, "battery depleted")
	}

	timeTick(b.region, b.observer, region.RoleBattery, start)
	return nil
}

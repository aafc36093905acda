// Package actor implements the droned actor roster: long-running
// periodic loops that each own exactly one writable field of the shared
// region, grounded on the teacher's queue.Runner ioLoop pattern
// (context-driven loop, started channel, logger/observer injection).
package actor

import (
	"context"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
)

// Actor is implemented by every droned actor. Run blocks until ctx is
// canceled (clean shutdown) or a fatal condition forces it to return an
// error (the supervisor's respawn signal); a canceled context is not an
// error condition from the supervisor's point of view.
type Actor interface {
	Role() region.Role
	Run(ctx context.Context) error
}

// runLoop is the common tick-on-interval skeleton every actor below
// builds its Run method from: a ticker, a context select, and a per-tick
// callback that returns an error to terminate the loop.
func runLoop(ctx context.Context, interval time.Duration, tick func(ctx context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				return err
			}
		}
	}
}

// timeTick records one tick's latency to both the observer and the
// actor's own heartbeat slot. Every actor calls this at the end of its
// tick function.
func timeTick(r *region.Region, observer droned.Observer, role region.Role, start time.Time) {
	r.Heartbeat(role)
	if observer != nil {
		observer.ObserveTick(role.String(), uint64(time.Since(start).Nanoseconds()))
	}
}

// deps bundles the dependencies every actor constructor takes, avoiding
// a long, repeated parameter list across six constructors.
type deps struct {
	region   *region.Region
	logger   *logging.Logger
	observer droned.Observer
}

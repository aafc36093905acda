package region

import "context"

// Action is the drone's current mode, a wire-sized tagged enum (a uint32
// so its raw byte pattern round-trips directly through the 4-byte UDP
// command datagram).
type Action uint32

const (
	Reserved Action = iota
	SampleGPS
	Fly
	Land
	Idle
	Charge
	Abort
)

// String renders the Action the way telemetry logs and debug output do.
func (a Action) String() string {
	switch a {
	case Reserved:
		return "Reserved"
	case SampleGPS:
		return "SampleGPS"
	case Fly:
		return "Fly"
	case Land:
		return "Land"
	case Idle:
		return "Idle"
	case Charge:
		return "Charge"
	case Abort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Valid reports whether a is one of the known tagged values. An unknown
// tag is fail-safe: the flight controller treats it as a forced Abort.
func (a Action) Valid() bool {
	return a <= Abort
}

// ActionCell holds the current Action behind a reader/writer lock.
type ActionCell struct {
	lock  *RWSem
	value Action
}

// NewActionCell creates an ActionCell initialized to the given value.
func NewActionCell(initial Action) *ActionCell {
	return &ActionCell{lock: NewRWSem(), value: initial}
}

// Load reads the current Action, blocking other writers out for the
// duration of the read but allowing concurrent readers.
func (c *ActionCell) Load(ctx context.Context) (Action, error) {
	if err := c.lock.RLock(ctx); err != nil {
		return 0, err
	}
	v := c.value
	_ = c.lock.RUnlock(ctx)
	return v, nil
}

// Store writes a new Action under the write lock.
func (c *ActionCell) Store(ctx context.Context, v Action) error {
	if err := c.lock.Lock(ctx); err != nil {
		return err
	}
	c.value = v
	c.lock.Unlock()
	return nil
}

// Reset reinitializes the cell's lock in place, preserving the current
// value. Supervisor-only.
func (c *ActionCell) Reset() {
	c.lock.Reset()
}

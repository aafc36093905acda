package region

import "context"

// AccelCell holds the (x, y, z) acceleration triple behind a single-writer
// binary-semaphore mutex. The accelerometer is the sole writer; the flight
// controller reads it every tick and telemetry tries it opportunistically.
type AccelCell struct {
	mutex *Sem
	x, y, z float64
}

// NewAccelCell creates a zeroed AccelCell.
func NewAccelCell() *AccelCell {
	return &AccelCell{mutex: NewSem(1, 1)}
}

// Load blocks until the mutex is free, reads, and releases.
func (c *AccelCell) Load(ctx context.Context) (x, y, z float64, err error) {
	if err := c.mutex.Acquire(ctx); err != nil {
		return 0, 0, 0, err
	}
	x, y, z = c.x, c.y, c.z
	c.mutex.Release()
	return x, y, z, nil
}

// TryLoad attempts a non-blocking read, used by telemetry's best-effort
// snapshot logic. ok is false if the mutex was held.
func (c *AccelCell) TryLoad() (x, y, z float64, ok bool) {
	if !c.mutex.TryAcquire() {
		return 0, 0, 0, false
	}
	x, y, z = c.x, c.y, c.z
	c.mutex.Release()
	return x, y, z, true
}

// Store writes a new acceleration triple under the mutex.
func (c *AccelCell) Store(ctx context.Context, x, y, z float64) error {
	if err := c.mutex.Acquire(ctx); err != nil {
		return err
	}
	c.x, c.y, c.z = x, y, z
	c.mutex.Release()
	return nil
}

// Reset reinitializes the mutex in place, preserving the current values.
func (c *AccelCell) Reset() {
	c.mutex.Reset(1, 1)
}

// PWMCell holds the four motor duty cycles, each in [0,1], behind a
// single-writer mutex. The flight controller is the sole writer; the
// accelerometer reads it every tick to simulate thrust, and telemetry
// tries it opportunistically.
type PWMCell struct {
	mutex  *Sem
	motors [4]float64
}

// NewPWMCell creates a zeroed PWMCell (all motors at 0).
func NewPWMCell() *PWMCell {
	return &PWMCell{mutex: NewSem(1, 1)}
}

// Load blocks until the mutex is free, reads, and releases.
func (c *PWMCell) Load(ctx context.Context) ([4]float64, error) {
	if err := c.mutex.Acquire(ctx); err != nil {
		return [4]float64{}, err
	}
	m := c.motors
	c.mutex.Release()
	return m, nil
}

// TryLoad attempts a non-blocking read, used by telemetry's best-effort
// snapshot logic. ok is false if the mutex was held.
func (c *PWMCell) TryLoad() (motors [4]float64, ok bool) {
	if !c.mutex.TryAcquire() {
		return [4]float64{}, false
	}
	motors = c.motors
	c.mutex.Release()
	return motors, true
}

// Store writes a new motor vector under the mutex.
func (c *PWMCell) Store(ctx context.Context, motors [4]float64) error {
	if err := c.mutex.Acquire(ctx); err != nil {
		return err
	}
	c.motors = motors
	c.mutex.Release()
	return nil
}

// Update reads the current motor vector, applies fn, and writes the
// result back under a single mutex hold.
func (c *PWMCell) Update(ctx context.Context, fn func([4]float64) [4]float64) error {
	if err := c.mutex.Acquire(ctx); err != nil {
		return err
	}
	c.motors = fn(c.motors)
	c.mutex.Release()
	return nil
}

// Reset reinitializes the mutex in place, preserving the current values.
func (c *PWMCell) Reset() {
	c.mutex.Reset(1, 1)
}

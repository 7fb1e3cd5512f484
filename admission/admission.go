// Package admission decides whether an eval request may run now, must wait
// for a free slot, or is rejected because its requester is already busy.
package admission

import (
	"context"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
)

// Config configures a Controller.
type Config struct {
	// MaxConcurrency is the global slot count. Default: 10.
	MaxConcurrency int

	// StaleAfter is the age past which an in-flight entry is evicted. Default: 190s.
	StaleAfter time.Duration

	// Now overrides the clock. Optional.
	Now func() time.Time

	// Logger is used for warnings about stale entries. Optional.
	Logger *logrus.Logger
}

// Controller combines the per-identity registry with the global slot pool.
type Controller struct {
	registry *Registry
	slots    *SlotPool
	logger   *logrus.Logger
}

// New creates a controller with empty state.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		registry: NewRegistry(cfg.StaleAfter, cfg.Now, logger),
		slots:    NewSlotPool(cfg.MaxConcurrency, logger),
		logger:   logger,
	}
}

// Run admits identity and executes fn while holding a slot.
//
// The identity is registered first so that a busy requester never occupies
// a slot; ErrBusy is returned untouched in that case. The slot and the
// registry entry are both released when fn returns or panics.
func (c *Controller) Run(ctx context.Context, identity string, onWait WaitFunc, fn func(context.Context) error) error {
	lease, err := c.registry.Acquire(identity)
	if err != nil {
		return err
	}
	defer c.registry.Release(lease)

	release, err := c.slots.Acquire(ctx, onWait)
	if err != nil {
		return fmt.Errorf("acquire execution slot: %w", err)
	}
	defer release()

	c.logger.WithFields(logrus.Fields{
		"identity": identity,
		"active":   c.slots.Active(),
	}).Debug("Execution admitted")
	return fn(ctx)
}

// Active returns the number of executions holding a slot.
func (c *Controller) Active() int { return c.slots.Active() }

// Waiting returns the number of requesters queued for a slot.
func (c *Controller) Waiting() int { return c.slots.Waiting() }

// InFlight reports whether identity currently has a registry entry.
func (c *Controller) InFlight(identity string) bool {
	_, ok := c.registry.Started(identity)
	return ok
}

// Len returns the number of registry entries.
func (c *Controller) Len() int { return c.registry.Len() }

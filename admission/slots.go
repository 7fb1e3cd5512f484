package admission

import (
	"context"
	"sync"
	"sync/atomic"

	logrus "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency is the number of executions allowed at once.
const DefaultMaxConcurrency = 10

// WaitFunc is told how many requesters are already queued when the caller
// has to wait for a slot. It is called at most once per Acquire, before blocking.
type WaitFunc func(ahead int)

// SlotPool bounds concurrent executions. Waiters are served in FIFO order.
type SlotPool struct {
	sem      *semaphore.Weighted
	capacity int
	active   atomic.Int64
	waiting  atomic.Int64
	logger   *logrus.Logger
}

// NewSlotPool creates a pool with capacity slots.
func NewSlotPool(capacity int, logger *logrus.Logger) *SlotPool {
	if capacity <= 0 {
		capacity = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SlotPool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		logger:   logger,
	}
}

// Acquire takes a slot, blocking until one frees or ctx ends. The returned
// release func gives the slot back; calling it more than once is a no-op.
func (p *SlotPool) Acquire(ctx context.Context, onWait WaitFunc) (func(), error) {
	if !p.sem.TryAcquire(1) {
		ahead := int(p.waiting.Add(1) - 1)
		p.logger.WithFields(logrus.Fields{
			"ahead":    ahead,
			"capacity": p.capacity,
		}).Debug("Waiting for execution slot")
		// onWait runs before the caller joins the semaphore queue, so a
		// slow notice lets a later arrival queue first. ahead counts from
		// the waiting counter, which already includes this caller.
		if onWait != nil {
			onWait(ahead)
		}
		err := p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return nil, err
		}
	}

	p.active.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			p.active.Add(-1)
			p.sem.Release(1)
		})
	}, nil
}

// Capacity returns the configured number of slots.
func (p *SlotPool) Capacity() int { return p.capacity }

// Active returns the number of slots currently held.
func (p *SlotPool) Active() int { return int(p.active.Load()) }

// Waiting returns the number of requesters queued for a slot.
func (p *SlotPool) Waiting() int { return int(p.waiting.Load()) }

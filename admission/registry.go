package admission

import (
	"errors"
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"
)

// DefaultStaleAfter is how long an in-flight entry is trusted before it is
// treated as abandoned.
const DefaultStaleAfter = 190 * time.Second

// ErrBusy is returned when the identity already has a live execution.
var ErrBusy = errors.New("identity already has an execution in flight")

// Lease is the registry entry owned by one accepted request.
type Lease struct {
	Identity string
	Started  time.Time
}

// Registry records at most one in-flight execution per identity.
type Registry struct {
	inFlight   map[string]time.Time
	mu         sync.Mutex
	staleAfter time.Duration
	now        func() time.Time
	logger     *logrus.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(staleAfter time.Duration, now func() time.Time, logger *logrus.Logger) *Registry {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		inFlight:   make(map[string]time.Time),
		staleAfter: staleAfter,
		now:        now,
		logger:     logger,
	}
}

// Acquire registers identity, replacing an entry older than the staleness
// threshold. Check and insert happen under one lock.
func (r *Registry) Acquire(identity string) (Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if started, exists := r.inFlight[identity]; exists {
		age := now.Sub(started)
		if age <= r.staleAfter {
			return Lease{}, ErrBusy
		}
		r.logger.WithFields(logrus.Fields{
			"identity": identity,
			"age":      age,
		}).Warn("Evicting stale in-flight entry")
	}

	r.inFlight[identity] = now
	return Lease{Identity: identity, Started: now}, nil
}

// Release removes the entry held by lease. An entry that has since been
// replaced by a newer lease is left alone.
func (r *Registry) Release(lease Lease) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if started, exists := r.inFlight[lease.Identity]; exists && started.Equal(lease.Started) {
		delete(r.inFlight, lease.Identity)
	}
}

// Started reports when identity's current execution began.
func (r *Registry) Started(identity string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	started, ok := r.inFlight[identity]
	return started, ok
}

// Len returns the number of identities with an execution in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

// Tracked is anything the registry can hold: quiz attempts and placement tests.
type Tracked interface {
	ID() string
	OwnerID() int64
	StartedAt() time.Time
	Done() bool
	Cancel()
}

// Registry holds live runs keyed by id. Each run belongs to the user that started it.
type Registry struct {
	mu    sync.RWMutex
	runs  map[string]Tracked
	clock Clock
	ttl   time.Duration
	// onChange receives the live run count after every mutation.
	onChange func(active int)
}

// NewRegistry constructs a registry expiring runs after ttl.
func NewRegistry(clock Clock, ttl time.Duration, onChange func(active int)) *Registry {
	if clock == nil {
		clock = RealClock()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{runs: make(map[string]Tracked), clock: clock, ttl: ttl, onChange: onChange}
}

// NewID returns a fresh run id.
func NewID() string {
	return uuid.NewString()
}

// Add tracks run.
func (r *Registry) Add(run Tracked) {
	r.mu.Lock()
	r.runs[run.ID()] = run
	n := len(r.runs)
	r.mu.Unlock()
	r.changed(n)
}

// Attempt returns the quiz attempt id owned by ownerID.
func (r *Registry) Attempt(id string, ownerID int64) (*Attempt, error) {
	run, err := r.get(id, ownerID)
	if err != nil {
		return nil, err
	}
	a, ok := run.(*Attempt)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz attempt not found")
	}
	return a, nil
}

// Placement returns the placement test id owned by ownerID.
func (r *Registry) Placement(id string, ownerID int64) (*Placement, error) {
	run, err := r.get(id, ownerID)
	if err != nil {
		return nil, err
	}
	p, ok := run.(*Placement)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "placement test not found")
	}
	return p, nil
}

func (r *Registry) get(id string, ownerID int64) (Tracked, error) {
	r.mu.RLock()
	run, ok := r.runs[id]
	r.mu.RUnlock()
	if !ok || run.OwnerID() != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
	}
	if r.expired(run) {
		r.Remove(id)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt expired")
	}
	return run, nil
}

// Remove cancels and forgets a run.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	run, ok := r.runs[id]
	delete(r.runs, id)
	n := len(r.runs)
	r.mu.Unlock()
	if !ok {
		return
	}
	run.Cancel()
	r.changed(n)
}

// CancelOwner drops every run belonging to ownerID, used at logout.
func (r *Registry) CancelOwner(ownerID int64) int {
	r.mu.Lock()
	var dropped []Tracked
	for id, run := range r.runs {
		if run.OwnerID() == ownerID {
			dropped = append(dropped, run)
			delete(r.runs, id)
		}
	}
	n := len(r.runs)
	r.mu.Unlock()

	for _, run := range dropped {
		run.Cancel()
	}
	if len(dropped) > 0 {
		r.changed(n)
	}
	return len(dropped)
}

// Sweep removes expired runs and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	var dropped []Tracked
	for id, run := range r.runs {
		if r.expired(run) {
			dropped = append(dropped, run)
			delete(r.runs, id)
		}
	}
	n := len(r.runs)
	r.mu.Unlock()

	for _, run := range dropped {
		run.Cancel()
	}
	if len(dropped) > 0 {
		r.changed(n)
	}
	return len(dropped)
}

// Run sweeps on interval until ctx ends.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of tracked runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// Shutdown cancels every run.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	runs := r.runs
	r.runs = make(map[string]Tracked)
	r.mu.Unlock()
	for _, run := range runs {
		run.Cancel()
	}
	r.changed(0)
}

func (r *Registry) expired(run Tracked) bool {
	return !r.clock.Now().Before(run.StartedAt().Add(r.ttl))
}

func (r *Registry) changed(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}

package pressures

import (
	"sync"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// Registry is an explicit detector catalog with a lifecycle.
// It is a value passed to the orchestrator, never ambient global state;
// tests construct a fresh one instead of resetting a shared instance.
type Registry struct {
	mu        sync.RWMutex
	detectors []Detector
	names     map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]bool),
	}
}

// Register adds a detector. Name collisions fail with
// DuplicateDetectorError instead of silently replacing.
func (r *Registry) Register(d Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[d.Name()] {
		return &core.DuplicateDetectorError{Name: d.Name()}
	}

	r.names[d.Name()] = true
	r.detectors = append(r.detectors, d)
	return nil
}

// List returns the registered detectors in stable insertion order.
// The returned slice is a copy; callers cannot mutate registry state.
func (r *Registry) List() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// RegisterDefaults registers the built-in detector set.
// Idempotent: each default is presence-checked first, so calling twice
// leaves the registry exactly as calling once.
func (r *Registry) RegisterDefaults() error {
	defaults := []Detector{
		NewVolatilityRegimeShift(),
		NewLiquidityStress(),
		NewMomentumExhaustion(),
		NewConvexityBuildup(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range defaults {
		if r.names[d.Name()] {
			continue
		}
		r.names[d.Name()] = true
		r.detectors = append(r.detectors, d)
	}
	return nil
}

// Reset clears all registrations. Test isolation only; never called
// during normal pipeline execution.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detectors = nil
	r.names = make(map[string]bool)
}

package source

import (
	"context"
	"fmt"

	"github.com/timmy/hotelrank/internal/domain"
)

// Adapter extracts a rating for one hotel from one platform.
type Adapter interface {
	// Platform returns the platform this adapter scrapes.
	Platform() domain.Platform

	// DisplayName returns a human-readable platform name.
	DisplayName() string

	// ScaleMax returns the top of the platform's rating scale.
	ScaleMax() float64

	// ValidateLocator checks that a configured locator is usable on this platform.
	// A rejected locator fails the whole platform sweep before any request is sent.
	ValidateLocator(locator string) error

	// Extract runs the fallback cascade for target and always returns a result.
	// Parameters:
	//   - ctx: context for cancellation; pacing waits and requests abort when it is done.
	//   - target: hotel and locator to extract.
	// Returns:
	//   - domain.ExtractionResult: rating within [0, ScaleMax()] tagged with the producing tier.
	Extract(ctx context.Context, target domain.HotelTarget) domain.ExtractionResult
}

// Registry holds the adapters available to the orchestrator.
type Registry struct {
	adapters map[domain.Platform]Adapter
	order    []domain.Platform
}

// NewRegistry registers adapters in the given order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its platform.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.adapters[a.Platform()]; !exists {
		r.order = append(r.order, a.Platform())
	}
	r.adapters[a.Platform()] = a
}

// Get returns the adapter for platform.
func (r *Registry) Get(platform domain.Platform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", platform)
	}
	return a, nil
}

// Platforms returns the registered platforms in registration order.
func (r *Registry) Platforms() []domain.Platform {
	return append([]domain.Platform(nil), r.order...)
}

package location

import (
	"context"
	"errors"
	"fmt"

	"bloodlink/internal/matching"
	"bloodlink/pkg/platform/circuit"
	"bloodlink/pkg/platform/sentinel"
)

// Guarded wraps a Resolver with a circuit breaker. While the breaker is open
// calls fail fast with sentinel.ErrUnavailable. An unknown place is a valid
// answer and does not count as a failure.
type Guarded struct {
	next    Resolver
	breaker *circuit.Breaker
	metrics *Metrics
}

func NewGuarded(next Resolver, breaker *circuit.Breaker, m *Metrics) *Guarded {
	return &Guarded{next: next, breaker: breaker, metrics: m}
}

func (g *Guarded) Resolve(ctx context.Context, city, area string) (*matching.Coordinates, error) {
	if !g.breaker.Allow() {
		g.metrics.resolution("rejected")
		return nil, fmt.Errorf("location resolver %s: %w", g.breaker.Name(), sentinel.ErrUnavailable)
	}

	coords, err := g.next.Resolve(ctx, city, area)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
		g.metrics.resolution("resolved")
		return coords, nil
	case errors.Is(err, sentinel.ErrNotFound):
		g.breaker.RecordSuccess()
		g.metrics.resolution("unknown")
		return nil, err
	case errors.Is(err, context.Canceled):
		// caller went away; says nothing about resolver health
		return nil, err
	default:
		g.breaker.RecordFailure()
		g.metrics.resolution("failed")
		return nil, err
	}
}

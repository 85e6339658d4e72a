package location

import (
	"context"
	"fmt"
	"sync"

	"bloodlink/internal/matching"
	"bloodlink/pkg/platform/sentinel"
)

// Place is one gazetteer entry.
type Place struct {
	City        string
	Area        string
	Coordinates matching.Coordinates
}

// StaticResolver is an in-memory gazetteer. Lookups ignore case and
// surrounding or repeated whitespace.
type StaticResolver struct {
	mu     sync.RWMutex
	places map[string]matching.Coordinates
}

func NewStatic(places ...Place) *StaticResolver {
	s := &StaticResolver{places: make(map[string]matching.Coordinates, len(places))}
	for _, p := range places {
		s.Add(p)
	}
	return s
}

// Add inserts or replaces an entry.
func (s *StaticResolver) Add(p Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[Key(p.City, p.Area)] = p.Coordinates
}

func (s *StaticResolver) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.places)
}

func (s *StaticResolver) Resolve(_ context.Context, city, area string) (*matching.Coordinates, error) {
	key := Key(city, area)
	s.mu.RLock()
	c, ok := s.places[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", key, sentinel.ErrNotFound)
	}
	return &c, nil
}

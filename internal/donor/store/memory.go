package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a map-backed donor store. Reads return clones so callers can
// never mutate stored state.
type InMemory struct {
	mu      sync.RWMutex
	donors  map[id.DonorID]*models.Donor
	byPhone map[string]id.DonorID
}

func NewInMemory() *InMemory {
	return &InMemory{
		donors:  make(map[id.DonorID]*models.Donor),
		byPhone: make(map[string]id.DonorID),
	}
}

func (s *InMemory) Create(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donor.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	key := phoneKey(donor.Phone)
	if _, taken := s.byPhone[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.donors[donor.ID] = donor.Clone()
	s.byPhone[key] = donor.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.donors[donor.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := phoneKey(existing.Phone), phoneKey(donor.Phone)
	if oldKey != newKey {
		if owner, taken := s.byPhone[newKey]; taken && owner != donor.ID {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.byPhone, oldKey)
		s.byPhone[newKey] = donor.ID
	}
	s.donors[donor.ID] = donor.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// List returns donors matching filter ordered by creation time, then ID.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Donor, error) {
	s.mu.RLock()
	matched := make([]*models.Donor, 0, len(s.donors))
	for _, d := range s.donors {
		if filter.Matches(d) {
			matched = append(matched, d.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return page(matched, filter.Offset, filter.Limit), nil
}

// FindCandidates returns active donors whose group is in groups.
func (s *InMemory) FindCandidates(_ context.Context, groups []matching.BloodGroup) ([]*models.Donor, error) {
	want := make(map[matching.BloodGroup]struct{}, len(groups))
	for _, g := range groups {
		want[g] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Donor, 0)
	for _, d := range s.donors {
		if !d.IsActive {
			continue
		}
		if _, ok := want[d.BloodGroup]; ok {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

// CountByGroup returns the number of active donors per blood group.
func (s *InMemory) CountByGroup(_ context.Context) (map[matching.BloodGroup]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[matching.BloodGroup]int)
	for _, d := range s.donors {
		if d.IsActive {
			counts[d.BloodGroup]++
		}
	}
	return counts, nil
}

func phoneKey(phone string) string {
	return strings.TrimSpace(phone)
}

func page(donors []*models.Donor, offset, limit int) []*models.Donor {
	if offset >= len(donors) {
		return []*models.Donor{}
	}
	donors = donors[offset:]
	if limit > 0 && limit < len(donors) {
		donors = donors[:limit]
	}
	return donors
}

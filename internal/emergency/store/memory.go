package store

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/emergency/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a map-backed request store. Reads return clones.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.EmergencyRequestID]*models.Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.EmergencyRequestID]*models.Request)}
}

func (s *InMemory) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemory) Update(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.EmergencyRequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// List orders by urgency (critical first), then creation time, then ID.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Request, error) {
	s.mu.RLock()
	out := make([]*models.Request, 0, len(s.requests))
	for _, r := range s.requests {
		if filter.Status == "" || r.Status == filter.Status {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	if filter.Offset >= len(out) {
		return []*models.Request{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Statistics counts requests per status. Critical covers open requests only.
func (s *InMemory) Statistics(_ context.Context, criticalUnits int) (*models.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Statistics{Total: len(s.requests)}
	for _, r := range s.requests {
		switch r.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusCompleted:
			stats.Completed++
		}
		open := r.Status == models.StatusPending || r.Status == models.StatusApproved
		if open && r.IsCritical(criticalUnits) {
			stats.Critical++
		}
	}
	return stats, nil
}

package store

import (
	"context"
	"sync"

	"trustbank/internal/profile/models"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]models.Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.UserID]models.Profile)}
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Upsert inserts p, or refreshes only the application fields of an existing
// profile. Returns the stored profile.
func (s *InMemoryStore) Upsert(_ context.Context, p *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.profiles[p.UserID]
	if !ok {
		stored = *p
	} else {
		stored.ApplyApplication(models.ApplicationData{
			Income:         p.Income,
			CreditScore:    p.CreditScore,
			ExistingLoans:  p.ExistingLoans,
			EmploymentType: p.EmploymentType,
		}, p.UpdatedAt)
	}
	s.profiles[p.UserID] = stored
	return &stored, nil
}

package store

import (
	"context"
	"sync"

	"trustbank/internal/consent/models"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
)

// InMemoryStore keeps settings in a map. Reads and writes copy so callers
// never share state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	settings map[id.UserID]models.Settings
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{settings: make(map[id.UserID]models.Settings)}
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &settings, nil
}

func (s *InMemoryStore) Save(_ context.Context, settings *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.UserID] = *settings
	return nil
}

// Create stores settings unless the user already has some and returns the
// stored value.
func (s *InMemoryStore) Create(_ context.Context, settings *models.Settings) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.settings[settings.UserID]; ok {
		return &existing, nil
	}
	s.settings[settings.UserID] = *settings
	stored := *settings
	return &stored, nil
}

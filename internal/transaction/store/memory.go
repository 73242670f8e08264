package store

import (
	"context"
	"sort"
	"sync"

	"trustbank/internal/transaction/models"
	id "trustbank/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	byUser map[id.UserID][]models.Transaction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byUser: make(map[id.UserID][]models.Transaction)}
}

func (s *InMemoryStore) Save(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[tx.UserID] = append(s.byUser[tx.UserID], *tx)
	return nil
}

// ListByUser returns the user's transactions, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Transaction, error) {
	s.mu.RLock()
	stored := s.byUser[userID]
	out := make([]*models.Transaction, len(stored))
	for i := range stored {
		tx := stored[i]
		out[i] = &tx
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

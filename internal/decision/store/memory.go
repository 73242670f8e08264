package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"trustbank/internal/decision"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
)

// InMemoryStore keeps decisions in process. Records are cloned on the way in
// and out so callers never share factor slices with the store.
type InMemoryStore struct {
	mu        sync.RWMutex
	decisions map[id.DecisionID]*decision.Decision
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{decisions: make(map[id.DecisionID]*decision.Decision)}
}

func (s *InMemoryStore) Save(_ context.Context, d *decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.decisions[d.ID]; exists {
		return sentinel.ErrConflict
	}
	s.decisions[d.ID] = d.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, decisionID id.DecisionID) (*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[decisionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// Update replaces the override fields of an existing decision.
func (s *InMemoryStore) Update(_ context.Context, d *decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.decisions[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Result = d.Result
	stored.Overridden = d.Overridden
	stored.OverrideReason = d.OverrideReason
	stored.OverriddenBy = d.OverriddenBy
	stored.OverrideTimestamp = d.OverrideTimestamp
	return nil
}

// ListByUser returns the user's decisions, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*decision.Decision, error) {
	return s.list(func(d *decision.Decision) bool { return d.UserID == userID }), nil
}

// ListAll returns every decision of the given kinds, newest first. No kinds
// means all kinds.
func (s *InMemoryStore) ListAll(_ context.Context, kinds ...decision.Kind) ([]*decision.Decision, error) {
	return s.list(func(d *decision.Decision) bool {
		return len(kinds) == 0 || slices.Contains(kinds, d.Kind)
	}), nil
}

func (s *InMemoryStore) list(match func(*decision.Decision) bool) []*decision.Decision {
	s.mu.RLock()
	out := make([]*decision.Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		if match(d) {
			out = append(out, d.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

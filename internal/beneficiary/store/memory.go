// Package store persists beneficiaries.
package store

import (
	"context"
	"sort"
	"sync"

	"trustchain/internal/beneficiary"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	records map[id.BeneficiaryID]beneficiary.Beneficiary
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.BeneficiaryID]beneficiary.Beneficiary)}
}

func (s *InMemory) Create(_ context.Context, b *beneficiary.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[b.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.records[b.ID] = *b
	return nil
}

func (s *InMemory) FindByID(_ context.Context, beneficiaryID id.BeneficiaryID) (*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.records[beneficiaryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}

// List returns beneficiaries oldest first.
func (s *InMemory) List(_ context.Context) ([]*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*beneficiary.Beneficiary, 0, len(s.records))
	for _, b := range s.records {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

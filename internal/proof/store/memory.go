// Package store persists proofs, at most one per beneficiary.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trustchain/internal/proof"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
)

type InMemory struct {
	mu     sync.RWMutex
	proofs map[id.BeneficiaryID]proof.Proof
}

func NewInMemory() *InMemory {
	return &InMemory{proofs: make(map[id.BeneficiaryID]proof.Proof)}
}

// Create stores p, failing with sentinel.ErrAlreadyUsed when the
// beneficiary already has a proof.
func (s *InMemory) Create(_ context.Context, p *proof.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.proofs[p.BeneficiaryID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.proofs[p.BeneficiaryID] = *p
	return nil
}

func (s *InMemory) FindByBeneficiary(_ context.Context, beneficiaryID id.BeneficiaryID) (*proof.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proofs[beneficiaryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) Update(_ context.Context, p *proof.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.proofs[p.BeneficiaryID]
	if !ok || existing.ID != p.ID {
		return sentinel.ErrNotFound
	}
	s.proofs[p.BeneficiaryID] = *p
	return nil
}

// Delete undoes a Create whose ledger entry could not be written.
func (s *InMemory) Delete(_ context.Context, p *proof.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.proofs[p.BeneficiaryID]
	if !ok || existing.ID != p.ID {
		return sentinel.ErrNotFound
	}
	delete(s.proofs, p.BeneficiaryID)
	return nil
}

// ListDue returns proofs under review whose due time is at or before now,
// earliest first.
func (s *InMemory) ListDue(_ context.Context, now time.Time) ([]*proof.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*proof.Proof
	for _, p := range s.proofs {
		if p.Status == proof.StatusUnderReview && p.IsDue(now) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

// List returns every proof.
func (s *InMemory) List(_ context.Context) ([]*proof.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*proof.Proof, 0, len(s.proofs))
	for _, p := range s.proofs {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// Package store persists ledger entries.
package store

import (
	"context"
	"sync"

	"trustchain/internal/ledger"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
)

// InMemory is a process-local ledger. A batch is validated as a whole and
// written under one lock so readers never observe half of it.
type InMemory struct {
	mu            sync.RWMutex
	entries       []ledger.Entry
	byBeneficiary map[id.BeneficiaryID][]int
	released      map[id.BeneficiaryID]bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		byBeneficiary: make(map[id.BeneficiaryID][]int),
		released:      make(map[id.BeneficiaryID]bool),
	}
}

// Append writes one entry and returns its sequence number.
func (s *InMemory) Append(ctx context.Context, entry ledger.Entry) (int64, error) {
	seqs, err := s.AppendBatch(ctx, []ledger.Entry{entry})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// AppendBatch writes all entries or none. A second FundsReleased entry for
// the same beneficiary fails the whole batch with sentinel.ErrAlreadyUsed.
func (s *InMemory) AppendBatch(ctx context.Context, entries []ledger.Entry) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchReleases := make(map[id.BeneficiaryID]bool)
	for _, e := range entries {
		if e.Kind != ledger.KindFundsReleased {
			continue
		}
		if s.released[e.BeneficiaryID] || batchReleases[e.BeneficiaryID] {
			return nil, sentinel.ErrAlreadyUsed
		}
		batchReleases[e.BeneficiaryID] = true
	}

	seqs := make([]int64, 0, len(entries))
	for _, e := range entries {
		e.Seq = int64(len(s.entries) + 1)
		s.byBeneficiary[e.BeneficiaryID] = append(s.byBeneficiary[e.BeneficiaryID], len(s.entries))
		s.entries = append(s.entries, e)
		seqs = append(seqs, e.Seq)
	}
	for bid := range batchReleases {
		s.released[bid] = true
	}
	return seqs, nil
}

// EntriesFor returns a beneficiary's entries in sequence order.
func (s *InMemory) EntriesFor(_ context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byBeneficiary[beneficiaryID]
	out := make([]ledger.Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// All returns every entry in sequence order.
func (s *InMemory) All(_ context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.Entry{}, s.entries...), nil
}

package report

import (
	"context"

	"trustchain/internal/beneficiary"
	"trustchain/internal/ledger"
	dErrors "trustchain/pkg/domain-errors"
)

// BeneficiaryLister lists every beneficiary in display order.
type BeneficiaryLister interface {
	List(ctx context.Context) ([]*beneficiary.Beneficiary, error)
}

// LedgerReader reads the full ledger in sequence order.
type LedgerReader interface {
	All(ctx context.Context) ([]ledger.Entry, error)
}

// Service recomputes report views on every call.
type Service struct {
	beneficiaries BeneficiaryLister
	ledger        LedgerReader
}

func NewService(beneficiaries BeneficiaryLister, ledger LedgerReader) *Service {
	return &Service{beneficiaries: beneficiaries, ledger: ledger}
}

// Dashboard returns the aggregate totals and per-beneficiary cards.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	list, err := s.beneficiaries.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list beneficiaries")
	}
	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read ledger")
	}
	d := Build(list, entries)
	return &d, nil
}

// Ledger returns every entry in sequence order.
func (s *Service) Ledger(ctx context.Context) ([]ledger.Entry, error) {
	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read ledger")
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return entries, nil
}

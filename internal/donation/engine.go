// Package donation accepts contributions toward a beneficiary's required
// amount. A contribution is accepted whole or not at all.
package donation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trustchain/internal/beneficiary"
	"trustchain/internal/ledger"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	"trustchain/pkg/platform/sentinel"
)

type BeneficiaryReader interface {
	FindByID(ctx context.Context, beneficiaryID id.BeneficiaryID) (*beneficiary.Beneficiary, error)
}

type Ledger interface {
	Append(ctx context.Context, entry ledger.Entry) (int64, error)
	EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error)
}

// Receipt describes an accepted donation.
type Receipt struct {
	Entry       ledger.Entry
	FundedTotal decimal.Decimal
	Remaining   decimal.Decimal
	FullyFunded bool
}

// Engine checks the funding cap and appends Donation entries. Callers
// serialize calls per beneficiary so the cap check and the append are one
// unit.
type Engine struct {
	beneficiaries BeneficiaryReader
	ledger        Ledger
}

func NewEngine(beneficiaries BeneficiaryReader, ledgerStore Ledger) *Engine {
	return &Engine{beneficiaries: beneficiaries, ledger: ledgerStore}
}

// Donate records amount for the beneficiary.
func (e *Engine) Donate(ctx context.Context, beneficiaryID id.BeneficiaryID, amount decimal.Decimal, at time.Time) (Receipt, error) {
	if err := beneficiary.ValidateAmount(amount); err != nil {
		return Receipt{}, err
	}

	b, err := e.beneficiaries.FindByID(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Receipt{}, dErrors.New(dErrors.CodeNotFound, "beneficiary not found")
		}
		return Receipt{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load beneficiary")
	}

	entries, err := e.ledger.EntriesFor(ctx, beneficiaryID)
	if err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read ledger")
	}
	funding := ledger.Project(entries)
	if funding.IsFullyFunded(b.RequiredAmount) {
		return Receipt{}, dErrors.New(dErrors.CodeOverfunding, "beneficiary is already fully funded")
	}
	total := funding.Funded.Add(amount)
	if total.GreaterThan(b.RequiredAmount) {
		return Receipt{}, dErrors.New(dErrors.CodeOverfunding,
			fmt.Sprintf("donation of %s exceeds the remaining %s", amount.StringFixed(2), funding.Remaining(b.RequiredAmount).StringFixed(2)))
	}

	entry := ledger.NewMonetary(beneficiaryID, ledger.KindDonation, amount, at, "donation to "+b.Name)
	seq, err := e.ledger.Append(ctx, entry)
	if err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record donation")
	}
	entry.Seq = seq

	remaining := b.RequiredAmount.Sub(total)
	return Receipt{
		Entry:       entry,
		FundedTotal: total,
		Remaining:   remaining,
		FullyFunded: remaining.IsZero(),
	}, nil
}

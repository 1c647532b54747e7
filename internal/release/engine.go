// Package release pays out a beneficiary after verification. The admin fee
// and the release are written as one ledger batch, at most once.
package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"trustchain/internal/ledger"
	"trustchain/internal/proof"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	"trustchain/pkg/platform/sentinel"
	"trustchain/pkg/requestcontext"
)

// Ledger is the slice of the ledger store the engine needs. AppendBatch
// must write all entries or none.
type Ledger interface {
	AppendBatch(ctx context.Context, entries []ledger.Entry) ([]int64, error)
	EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error)
}

type Engine struct {
	ledger  Ledger
	feeRate decimal.Decimal
}

// NewEngine validates feeRate, a fraction in [0, 1).
func NewEngine(ledgerStore Ledger, feeRate decimal.Decimal) (*Engine, error) {
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("admin fee rate must be in [0, 1), got %s", feeRate)
	}
	return &Engine{ledger: ledgerStore, feeRate: feeRate}, nil
}

// FeeRate is the configured admin fee fraction.
func (e *Engine) FeeRate() decimal.Decimal { return e.feeRate }

// Split divides funded into the admin fee, rounded half up to cents, and
// the net release. fee + net == funded.
func Split(funded, rate decimal.Decimal) (fee, net decimal.Decimal) {
	fee = funded.Mul(rate).Round(2)
	return fee, funded.Sub(fee)
}

// ReleaseFunds appends AdminFee and FundsReleased for a verified proof.
// When a FundsReleased entry already exists it returns no entries and
// writes nothing.
func (e *Engine) ReleaseFunds(ctx context.Context, p *proof.Proof) ([]ledger.Entry, error) {
	if p == nil || p.Status != proof.StatusVerified {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "funds can only be released for a verified proof")
	}

	entries, err := e.ledger.EntriesFor(ctx, p.BeneficiaryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read ledger")
	}
	funding := ledger.Project(entries)
	if funding.IsReleased {
		return nil, nil
	}

	fee, net := Split(funding.Funded, e.feeRate)
	now := requestcontext.Now(ctx)
	batch := []ledger.Entry{
		ledger.NewMonetary(p.BeneficiaryID, ledger.KindAdminFee, fee, now,
			fmt.Sprintf("admin fee %s%% of %s; net %s", e.feeRate.Shift(2).String(), funding.Funded.StringFixed(2), net.StringFixed(2))),
		ledger.NewMonetary(p.BeneficiaryID, ledger.KindFundsReleased, net, now,
			fmt.Sprintf("released %s after proof %s verified", net.StringFixed(2), p.ID)),
	}

	seqs, err := e.ledger.AppendBatch(ctx, batch)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "funds were released concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record release")
	}
	for i := range batch {
		batch[i].Seq = seqs[i]
	}
	return batch, nil
}

package proof

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trustchain/internal/ledger"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	"trustchain/pkg/platform/sentinel"
)

// Store persists proofs.
type Store interface {
	Create(ctx context.Context, p *Proof) error
	FindByBeneficiary(ctx context.Context, beneficiaryID id.BeneficiaryID) (*Proof, error)
	Update(ctx context.Context, p *Proof) error
	Delete(ctx context.Context, p *Proof) error
}

// Ledger is the slice of the ledger store the workflow needs.
type Ledger interface {
	Append(ctx context.Context, entry ledger.Entry) (int64, error)
	EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error)
}

// Releaser pays out a verified beneficiary. It returns the entries it
// appended, or none when funds were already released.
type Releaser interface {
	ReleaseFunds(ctx context.Context, p *Proof) ([]ledger.Entry, error)
}

// Workflow accepts proofs and completes verification once due. Callers
// serialize calls per beneficiary.
type Workflow struct {
	proofs  Store
	ledger  Ledger
	release Releaser
	delay   time.Duration
}

func NewWorkflow(proofs Store, ledgerStore Ledger, release Releaser, delay time.Duration) *Workflow {
	return &Workflow{
		proofs:  proofs,
		ledger:  ledgerStore,
		release: release,
		delay:   delay,
	}
}

// Delay is the wait between submission and verification.
func (w *Workflow) Delay() time.Duration { return w.delay }

// Submit records a proof for a fully funded beneficiary and starts review.
func (w *Workflow) Submit(ctx context.Context, beneficiaryID id.BeneficiaryID, required decimal.Decimal, doc Document, now time.Time) (*Proof, error) {
	entries, err := w.ledger.EntriesFor(ctx, beneficiaryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read ledger")
	}
	funding := ledger.Project(entries)
	if !funding.IsFullyFunded(required) {
		return nil, dErrors.New(dErrors.CodeNotFullyFunded, "proof can only be submitted once the beneficiary is fully funded")
	}
	if funding.ProofSubmitted {
		return nil, dErrors.New(dErrors.CodeProofAlreadySubmitted, "a proof has already been submitted for this beneficiary")
	}

	p, err := New(beneficiaryID, doc, now, w.delay)
	if err != nil {
		return nil, err
	}
	if err := p.BeginReview(); err != nil {
		return nil, err
	}
	if err := w.proofs.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeProofAlreadySubmitted, "a proof has already been submitted for this beneficiary")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to save proof")
	}

	note := fmt.Sprintf("proof %s submitted; verification due %s", doc.Filename, p.DueAt.UTC().Format(time.RFC3339))
	if doc.SHA256 != "" {
		note += "; sha256 " + doc.SHA256
	}
	if _, err := w.ledger.Append(ctx, ledger.NewMarker(beneficiaryID, ledger.KindProofSubmitted, now, note)); err != nil {
		_ = w.proofs.Delete(ctx, p)
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record proof submission")
	}
	return p, nil
}

// Verification is the outcome of a CheckVerification call.
type Verification struct {
	// Proof is nil when none has been submitted.
	Proof *Proof
	// Completed is true only on the call that moved the proof to Verified.
	Completed bool
	// Released holds the AdminFee and FundsReleased entries when this call
	// performed the release.
	Released []ledger.Entry
}

// CheckVerification completes review once the due time has passed and then
// releases funds. It is safe to call at any time and any number of times.
// A verified proof whose release did not land is released again; the
// releaser's guard makes that a no-op once funds are out.
func (w *Workflow) CheckVerification(ctx context.Context, beneficiaryID id.BeneficiaryID, now time.Time) (Verification, error) {
	p, err := w.proofs.FindByBeneficiary(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Verification{}, nil
		}
		return Verification{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load proof")
	}

	result := Verification{Proof: p}
	switch p.Status {
	case StatusUnderReview:
		if !p.IsDue(now) {
			return result, nil
		}
		entries, err := w.ledger.EntriesFor(ctx, beneficiaryID)
		if err != nil {
			return result, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read ledger")
		}
		if !ledger.Project(entries).ProofVerified {
			note := fmt.Sprintf("proof verified %s after submission", now.Sub(p.SubmittedAt).Round(time.Millisecond))
			if _, err := w.ledger.Append(ctx, ledger.NewMarker(beneficiaryID, ledger.KindProofVerified, now, note)); err != nil {
				return result, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record verification")
			}
		}
		verified := *p
		if err := verified.Verify(now); err != nil {
			return result, err
		}
		if err := w.proofs.Update(ctx, &verified); err != nil {
			return result, dErrors.Wrap(err, dErrors.CodePersistence, "failed to update proof")
		}
		result.Proof = &verified
		result.Completed = true
	case StatusVerified:
	default:
		return result, nil
	}

	released, err := w.release.ReleaseFunds(ctx, result.Proof)
	if err != nil {
		return result, err
	}
	result.Released = released
	return result, nil
}

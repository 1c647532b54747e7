// Package proof tracks the document a beneficiary submits once fully funded
// and the time-gated verification that follows.
package proof

import (
	"time"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Status is the review state of a proof. Submitted is transient: a proof
// moves to UnderReview in the same operation that creates it.
type Status string

const (
	StatusSubmitted   Status = "Submitted"
	StatusUnderReview Status = "UnderReview"
	StatusVerified    Status = "Verified"
)

// Document is the stored upload a proof points at.
type Document struct {
	Handle   string
	Filename string
	SHA256   string
}

type Proof struct {
	ID             id.ProofID       `json:"id"`
	BeneficiaryID  id.BeneficiaryID `json:"beneficiary_id"`
	DocumentHandle string           `json:"document_handle"`
	Filename       string           `json:"filename,omitempty"`
	SHA256         string           `json:"sha256,omitempty"`
	Status         Status           `json:"status"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	DueAt          time.Time        `json:"due_at"`
	VerifiedAt     *time.Time       `json:"verified_at,omitempty"`
}

// New creates a proof in Submitted, due delay after now.
func New(beneficiaryID id.BeneficiaryID, doc Document, now time.Time, delay time.Duration) (*Proof, error) {
	if doc.Handle == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document handle is required")
	}
	return &Proof{
		ID:             id.NewProofID(),
		BeneficiaryID:  beneficiaryID,
		DocumentHandle: doc.Handle,
		Filename:       doc.Filename,
		SHA256:         doc.SHA256,
		Status:         StatusSubmitted,
		SubmittedAt:    now,
		DueAt:          now.Add(delay),
	}, nil
}

// BeginReview moves a submitted proof to UnderReview.
func (p *Proof) BeginReview() error {
	if p.Status != StatusSubmitted {
		return dErrors.New(dErrors.CodeInvariantViolation, "proof is not awaiting review")
	}
	p.Status = StatusUnderReview
	return nil
}

// IsDue reports whether verification may complete at now.
func (p *Proof) IsDue(now time.Time) bool {
	return !now.Before(p.DueAt)
}

// Verify completes review. It refuses before the due time.
func (p *Proof) Verify(now time.Time) error {
	if p.Status != StatusUnderReview {
		return dErrors.New(dErrors.CodeInvariantViolation, "proof is not under review")
	}
	if !p.IsDue(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "verification is not due yet")
	}
	p.Status = StatusVerified
	verifiedAt := now
	p.VerifiedAt = &verifiedAt
	return nil
}

// Pending reports whether the proof still blocks a new submission.
func (p *Proof) Pending() bool {
	return p.Status == StatusSubmitted || p.Status == StatusUnderReview
}

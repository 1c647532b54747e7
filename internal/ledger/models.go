// Package ledger defines the append-only record of money movement and the
// projections derived from it.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Kind is the type of event an entry records.
type Kind string

const (
	KindDonation       Kind = "Donation"
	KindProofSubmitted Kind = "ProofSubmitted"
	KindProofVerified  Kind = "ProofVerified"
	KindAdminFee       Kind = "AdminFee"
	KindFundsReleased  Kind = "FundsReleased"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindDonation, KindProofSubmitted, KindProofVerified, KindAdminFee, KindFundsReleased:
		return true
	}
	return false
}

// Monetary reports whether entries of this kind carry an amount.
func (k Kind) Monetary() bool {
	return k == KindDonation || k == KindAdminFee || k == KindFundsReleased
}

// Entry is one immutable ledger record. Seq is assigned by the store on
// append and is the only ordering guarantee; Timestamp is informational.
type Entry struct {
	Seq           int64               `json:"sequence"`
	BeneficiaryID id.BeneficiaryID    `json:"beneficiary_id"`
	Kind          Kind                `json:"kind"`
	Amount        decimal.NullDecimal `json:"amount"`
	Timestamp     time.Time           `json:"timestamp"`
	Note          string              `json:"note,omitempty"`
}

// NewMonetary builds an entry that moves money.
func NewMonetary(beneficiaryID id.BeneficiaryID, kind Kind, amount decimal.Decimal, at time.Time, note string) Entry {
	return Entry{
		BeneficiaryID: beneficiaryID,
		Kind:          kind,
		Amount:        decimal.NewNullDecimal(amount),
		Timestamp:     at,
		Note:          note,
	}
}

// NewMarker builds a non-monetary status entry.
func NewMarker(beneficiaryID id.BeneficiaryID, kind Kind, at time.Time, note string) Entry {
	return Entry{
		BeneficiaryID: beneficiaryID,
		Kind:          kind,
		Timestamp:     at,
		Note:          note,
	}
}

// Validate checks the entry before it is written.
func (e Entry) Validate() error {
	if e.BeneficiaryID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "ledger entry requires a beneficiary")
	}
	if !e.Kind.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown ledger entry kind: "+string(e.Kind))
	}
	if e.Kind.Monetary() {
		if !e.Amount.Valid {
			return dErrors.New(dErrors.CodeValidation, string(e.Kind)+" entry requires an amount")
		}
		if e.Amount.Decimal.IsNegative() {
			return dErrors.New(dErrors.CodeValidation, string(e.Kind)+" amount cannot be negative")
		}
	} else if e.Amount.Valid {
		return dErrors.New(dErrors.CodeValidation, string(e.Kind)+" entry cannot carry an amount")
	}
	if e.Timestamp.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "ledger entry requires a timestamp")
	}
	return nil
}

// Package beneficiary holds funding targets. Funded and released totals are
// not stored here; they are projected from the ledger.
package beneficiary

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

const (
	maxNameLength  = 200
	maxStoryLength = 4000
	// MoneyScale is the number of decimal places amounts may carry.
	MoneyScale = 2
)

// Beneficiary is immutable once created.
type Beneficiary struct {
	ID             id.BeneficiaryID `json:"id"`
	Name           string           `json:"name"`
	RequiredAmount decimal.Decimal  `json:"required_amount"`
	Story          string           `json:"story"`
	CreatedAt      time.Time        `json:"created_at"`
}

// New validates input and builds a Beneficiary.
func New(name string, required decimal.Decimal, story string, now time.Time) (*Beneficiary, error) {
	name = strings.TrimSpace(name)
	story = strings.TrimSpace(story)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	if len(story) > maxStoryLength {
		return nil, dErrors.New(dErrors.CodeValidation, "story is too long")
	}
	if err := ValidateAmount(required); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidAmount, "required amount must be positive with at most 2 decimal places")
	}
	return &Beneficiary{
		ID:             id.NewBeneficiaryID(),
		Name:           name,
		RequiredAmount: required,
		Story:          story,
		CreatedAt:      now,
	}, nil
}

// ValidateAmount checks that v is a positive amount in whole cents.
func ValidateAmount(v decimal.Decimal) error {
	if !v.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if !v.Equal(v.Truncate(MoneyScale)) {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount cannot have more than 2 decimal places")
	}
	return nil
}

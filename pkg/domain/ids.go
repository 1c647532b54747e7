// Package domain holds the typed identifiers shared across modules.
//
// Each identifier wraps a uuid.UUID so one kind of id cannot be passed where
// another is expected. Parse functions are the trust boundary: they reject
// empty, malformed and nil UUIDs with dErrors.CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "trustchain/pkg/domain-errors"
)

// BeneficiaryID identifies a funding target.
type BeneficiaryID uuid.UUID

// ProofID identifies a submitted proof document.
type ProofID uuid.UUID

// NewBeneficiaryID generates a random BeneficiaryID.
func NewBeneficiaryID() BeneficiaryID { return BeneficiaryID(uuid.New()) }

// NewProofID generates a random ProofID.
func NewProofID() ProofID { return ProofID(uuid.New()) }

func (id BeneficiaryID) String() string { return uuid.UUID(id).String() }
func (id BeneficiaryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ProofID) String() string { return uuid.UUID(id).String() }
func (id ProofID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids serialize as plain UUID strings in JSON.
func (id BeneficiaryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses and validates a BeneficiaryID.
func (id *BeneficiaryID) UnmarshalText(b []byte) error {
	parsed, err := ParseBeneficiaryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ProofID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// ParseBeneficiaryID parses external input into a BeneficiaryID.
func ParseBeneficiaryID(s string) (BeneficiaryID, error) {
	u, err := parseUUID(s, "beneficiary")
	return BeneficiaryID(u), err
}

// ParseProofID parses external input into a ProofID.
func ParseProofID(s string) (ProofID, error) {
	u, err := parseUUID(s, "proof")
	return ProofID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}

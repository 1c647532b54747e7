// Package lifecycle defines the ordered states a beneficiary moves through.
// State is derived from the ledger on every read and never stored.
package lifecycle

import (
	"github.com/shopspring/decimal"

	"trustchain/internal/ledger"
)

type State string

const (
	StateOpen         State = "Open"
	StateFullyFunded  State = "FullyFunded"
	StateProofPending State = "ProofPending"
	StateVerified     State = "Verified"
	StateReleased     State = "Released"
)

var order = map[State]int{
	StateOpen:         0,
	StateFullyFunded:  1,
	StateProofPending: 2,
	StateVerified:     3,
	StateReleased:     4,
}

// Derive computes the state from a funding projection. Later ledger facts
// win: a release implies verification, which implies a submitted proof.
func Derive(required decimal.Decimal, f ledger.Funding) State {
	switch {
	case f.IsReleased:
		return StateReleased
	case f.ProofVerified:
		return StateVerified
	case f.ProofSubmitted:
		return StateProofPending
	case f.IsFullyFunded(required):
		return StateFullyFunded
	default:
		return StateOpen
	}
}

// Before reports whether s comes strictly earlier than other.
func (s State) Before(other State) bool {
	return order[s] < order[other]
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	_, ok := order[s]
	return ok
}

func (s State) String() string { return string(s) }

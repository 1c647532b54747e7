package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Funding summarizes one beneficiary's entries. It is recomputed from the
// ledger on every read and never stored.
type Funding struct {
	Funded         decimal.Decimal
	AdminFee       decimal.Decimal
	Released       decimal.Decimal
	Donations      int
	ProofSubmitted bool
	ProofVerified  bool
	IsReleased     bool
	ReleasedAt     time.Time
	LastSeq        int64
}

// Project folds entries, which must belong to a single beneficiary, into a
// Funding summary.
func Project(entries []Entry) Funding {
	f := Funding{
		Funded:   decimal.Zero,
		AdminFee: decimal.Zero,
		Released: decimal.Zero,
	}
	for _, e := range entries {
		if e.Seq > f.LastSeq {
			f.LastSeq = e.Seq
		}
		switch e.Kind {
		case KindDonation:
			f.Funded = f.Funded.Add(e.Amount.Decimal)
			f.Donations++
		case KindProofSubmitted:
			f.ProofSubmitted = true
		case KindProofVerified:
			f.ProofVerified = true
		case KindAdminFee:
			f.AdminFee = f.AdminFee.Add(e.Amount.Decimal)
		case KindFundsReleased:
			f.Released = f.Released.Add(e.Amount.Decimal)
			f.IsReleased = true
			f.ReleasedAt = e.Timestamp
		}
	}
	return f
}

// FundedTotal is the sum of donation amounts.
func FundedTotal(entries []Entry) decimal.Decimal {
	return Project(entries).Funded
}

// IsFullyFunded reports whether donations have reached required.
func (f Funding) IsFullyFunded(required decimal.Decimal) bool {
	return f.Funded.GreaterThanOrEqual(required)
}

// Remaining is what is still needed to reach required, never negative.
func (f Funding) Remaining(required decimal.Decimal) decimal.Decimal {
	rem := required.Sub(f.Funded)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// IsReleased reports whether a FundsReleased entry exists.
func IsReleased(entries []Entry) bool {
	for _, e := range entries {
		if e.Kind == KindFundsReleased {
			return true
		}
	}
	return false
}

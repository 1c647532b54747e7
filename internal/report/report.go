// Package report builds the read-only views over the ledger: dashboard
// totals, per-beneficiary cards and the CSV export. Nothing here writes.
package report

import (
	"github.com/shopspring/decimal"

	"trustchain/internal/beneficiary"
	"trustchain/internal/ledger"
	"trustchain/internal/lifecycle"
	id "trustchain/pkg/domain"
)

// Totals aggregates funding across every beneficiary.
//
// Released is the gross funded amount of beneficiaries whose funds went out;
// NetReleased is what actually reached them after the admin fee.
type Totals struct {
	Required          decimal.Decimal `json:"required"`
	Funded            decimal.Decimal `json:"funded"`
	FundedNotReleased decimal.Decimal `json:"funded_not_released"`
	Released          decimal.Decimal `json:"released"`
	NetReleased       decimal.Decimal `json:"net_released"`
	Remaining         decimal.Decimal `json:"remaining"`
	AdminFee          decimal.Decimal `json:"admin_fee"`
}

// Card is the per-beneficiary summary shown on the dashboard.
type Card struct {
	BeneficiaryID id.BeneficiaryID `json:"beneficiary_id"`
	Name          string           `json:"name"`
	Required      decimal.Decimal  `json:"required"`
	Received      decimal.Decimal  `json:"received"`
	Remaining     decimal.Decimal  `json:"remaining"`
	State         lifecycle.State  `json:"state"`
}

// Dashboard is the full dashboard payload.
type Dashboard struct {
	Totals Totals `json:"totals"`
	Cards  []Card `json:"beneficiaries"`
}

// Build projects beneficiaries and the full ledger into a Dashboard. Cards
// keep the order of the beneficiaries slice.
func Build(beneficiaries []*beneficiary.Beneficiary, entries []ledger.Entry) Dashboard {
	byBeneficiary := make(map[id.BeneficiaryID][]ledger.Entry, len(beneficiaries))
	for _, e := range entries {
		byBeneficiary[e.BeneficiaryID] = append(byBeneficiary[e.BeneficiaryID], e)
	}

	d := Dashboard{
		Totals: Totals{
			Required:          decimal.Zero,
			Funded:            decimal.Zero,
			FundedNotReleased: decimal.Zero,
			Released:          decimal.Zero,
			NetReleased:       decimal.Zero,
			Remaining:         decimal.Zero,
			AdminFee:          decimal.Zero,
		},
		Cards: make([]Card, 0, len(beneficiaries)),
	}
	for _, b := range beneficiaries {
		f := ledger.Project(byBeneficiary[b.ID])
		received := decimal.Min(f.Funded, b.RequiredAmount)
		remaining := f.Remaining(b.RequiredAmount)

		t := &d.Totals
		t.Required = t.Required.Add(b.RequiredAmount)
		t.Funded = t.Funded.Add(received)
		t.Remaining = t.Remaining.Add(remaining)
		t.AdminFee = t.AdminFee.Add(f.AdminFee)
		if f.IsReleased {
			t.Released = t.Released.Add(received)
			t.NetReleased = t.NetReleased.Add(f.Released)
		}

		d.Cards = append(d.Cards, Card{
			BeneficiaryID: b.ID,
			Name:          b.Name,
			Required:      b.RequiredAmount,
			Received:      f.Funded,
			Remaining:     remaining,
			State:         lifecycle.Derive(b.RequiredAmount, f),
		})
	}

	notReleased := d.Totals.Funded.Sub(d.Totals.Released)
	if notReleased.IsPositive() {
		d.Totals.FundedNotReleased = notReleased
	}
	return d
}

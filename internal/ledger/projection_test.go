package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProject(t *testing.T) {
	bid := id.NewBeneficiaryID()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("empty ledger", func(t *testing.T) {
		f := Project(nil)
		assert.True(t, f.Funded.IsZero())
		assert.False(t, f.IsReleased)
		assert.False(t, f.IsFullyFunded(d("100")))
		assert.True(t, f.Remaining(d("100")).Equal(d("100")))
	})

	t.Run("full lifecycle", func(t *testing.T) {
		entries := []Entry{
			NewMonetary(bid, KindDonation, d("60"), at, ""),
			NewMonetary(bid, KindDonation, d("40"), at, ""),
			NewMarker(bid, KindProofSubmitted, at, ""),
			NewMarker(bid, KindProofVerified, at, ""),
			NewMonetary(bid, KindAdminFee, d("5.00"), at, ""),
			NewMonetary(bid, KindFundsReleased, d("95.00"), at.Add(time.Minute), ""),
		}
		for i := range entries {
			entries[i].Seq = int64(i + 1)
		}

		f := Project(entries)
		assert.True(t, f.Funded.Equal(d("100")))
		assert.Equal(t, 2, f.Donations)
		assert.True(t, f.ProofSubmitted)
		assert.True(t, f.ProofVerified)
		assert.True(t, f.IsReleased)
		assert.True(t, f.AdminFee.Add(f.Released).Equal(f.Funded))
		assert.Equal(t, at.Add(time.Minute), f.ReleasedAt)
		assert.Equal(t, int64(6), f.LastSeq)
		assert.True(t, f.IsFullyFunded(d("100")))
		assert.True(t, f.Remaining(d("100")).IsZero())
		assert.True(t, IsReleased(entries))
	})

	t.Run("remaining never negative", func(t *testing.T) {
		f := Project([]Entry{NewMonetary(bid, KindDonation, d("120"), at, "")})
		assert.True(t, f.Remaining(d("100")).IsZero())
	})
}

func TestEntryValidate(t *testing.T) {
	bid := id.NewBeneficiaryID()
	at := time.Now()

	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"donation with amount", NewMonetary(bid, KindDonation, d("1"), at, ""), true},
		{"marker without amount", NewMarker(bid, KindProofSubmitted, at, ""), true},
		{"donation without amount", NewMarker(bid, KindDonation, at, ""), false},
		{"marker with amount", NewMonetary(bid, KindProofVerified, d("1"), at, ""), false},
		{"negative fee", NewMonetary(bid, KindAdminFee, d("-1"), at, ""), false},
		{"unknown kind", NewMarker(bid, Kind("Refund"), at, ""), false},
		{"missing beneficiary", NewMarker(id.BeneficiaryID{}, KindProofSubmitted, at, ""), false},
		{"missing timestamp", NewMarker(bid, KindProofSubmitted, time.Time{}, ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

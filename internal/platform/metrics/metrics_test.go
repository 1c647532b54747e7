package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementDonationAccepted(decimal.RequireFromString("60"))
	m.IncrementDonationAccepted(decimal.RequireFromString("40"))
	m.IncrementDonationRejected("overfunding_rejected")
	m.RecordRelease(decimal.RequireFromString("95"), decimal.RequireFromString("5"))
	m.ObserveOperation("donate", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DonationsAccepted))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.DonatedAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonationsRejected.WithLabelValues("overfunding_rejected")))
	assert.Equal(t, 95.0, testutil.ToFloat64(m.FundsReleased))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.AdminFeeCollected))
}

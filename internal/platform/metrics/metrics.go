package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the Prometheus collectors for the funding lifecycle.
type Metrics struct {
	DonationsAccepted      prometheus.Counter
	DonationsRejected      *prometheus.CounterVec
	DonatedAmount          prometheus.Counter
	ProofsSubmitted        prometheus.Counter
	VerificationsCompleted prometheus.Counter
	FundsReleased          prometheus.Counter
	AdminFeeCollected      prometheus.Counter
	OperationDuration      *prometheus.HistogramVec
	HTTPRequestDuration    *prometheus.HistogramVec
	OutboxPublished        prometheus.Counter
	OutboxPublishFailures  prometheus.Counter
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonationsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_donations_accepted_total",
			Help: "Total number of donations recorded in the ledger",
		}),
		DonationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustchain_donations_rejected_total",
			Help: "Total number of rejected donations by reason",
		}, []string{"reason"}),
		DonatedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_donated_amount_total",
			Help: "Sum of accepted donation amounts",
		}),
		ProofsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_proofs_submitted_total",
			Help: "Total number of proofs accepted for review",
		}),
		VerificationsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_verifications_completed_total",
			Help: "Total number of proofs that reached Verified",
		}),
		FundsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_funds_released_total",
			Help: "Sum of released amounts net of admin fee",
		}),
		AdminFeeCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_admin_fee_collected_total",
			Help: "Sum of admin fees charged at release",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustchain_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle controller operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustchain_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_outbox_published_total",
			Help: "Total number of outbox rows published to Kafka",
		}),
		OutboxPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_outbox_publish_failures_total",
			Help: "Total number of failed outbox relay batches",
		}),
	}
}

func (m *Metrics) IncrementDonationAccepted(amount decimal.Decimal) {
	m.DonationsAccepted.Inc()
	m.DonatedAmount.Add(amount.InexactFloat64())
}

func (m *Metrics) IncrementDonationRejected(reason string) {
	m.DonationsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementProofSubmitted() {
	m.ProofsSubmitted.Inc()
}

func (m *Metrics) IncrementVerificationCompleted() {
	m.VerificationsCompleted.Inc()
}

// RecordRelease records one release and its admin fee.
func (m *Metrics) RecordRelease(released, fee decimal.Decimal) {
	m.FundsReleased.Add(released.InexactFloat64())
	m.AdminFeeCollected.Add(fee.InexactFloat64())
}

// ObserveOperation records the duration of a controller operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailure() {
	m.OutboxPublishFailures.Inc()
}

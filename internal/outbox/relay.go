package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trustchain/internal/platform/metrics"
	"trustchain/pkg/platform/circuit"
)

// Reader loads and marks outbox rows.
type Reader interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers records to the broker.
type Publisher interface {
	Publish(ctx context.Context, records []Record) error
}

// Relay moves outbox rows to the broker on a fixed interval.
type Relay struct {
	reader    Reader
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	breaker   *circuit.Breaker
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithRelayBreaker replaces the default breaker guarding the publisher.
func WithRelayBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) {
		r.breaker = b
	}
}

func NewRelay(reader Reader, publisher Publisher, interval time.Duration, batchSize int, opts ...RelayOption) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	r := &Relay{
		reader:    reader,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    slog.Default(),
		breaker:   circuit.New("outbox-publisher", circuit.WithFailureThreshold(3)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce publishes batches until the outbox is drained and returns how
// many rows went out. Rows stay unpublished if publishing fails.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		records, err := r.reader.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return total, err
		}
		if len(records) == 0 {
			return total, nil
		}
		if err := r.publisher.Publish(ctx, records); err != nil {
			if r.metrics != nil {
				r.metrics.IncrementOutboxFailure()
			}
			return total, err
		}
		ids := make([]uuid.UUID, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		if err := r.reader.MarkPublished(ctx, ids, r.now()); err != nil {
			return total, err
		}
		total += len(records)
		if r.metrics != nil {
			r.metrics.RecordOutboxPublished(len(records))
		}
		if len(records) < r.batchSize {
			return total, nil
		}
	}
}

// Breaker exposes the publisher circuit state.
func (r *Relay) Breaker() *circuit.Breaker { return r.breaker }

// Run polls until ctx is cancelled. Failures are retried on the next tick.
// While the publisher circuit is open every tick is a probe and repeated
// failures log at debug level only.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started", "interval", r.interval.String(), "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if ctx.Err() != nil {
				continue
			}
			if err != nil {
				r.recordFailure(ctx, n, err)
				continue
			}
			if _, change := r.breaker.RecordSuccess(); change.Closed {
				r.logger.InfoContext(ctx, "outbox relay circuit closed", "breaker", r.breaker.Name())
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "outbox relay published", "published", n)
			}
		}
	}
}

func (r *Relay) recordFailure(ctx context.Context, published int, err error) {
	wasOpen, change := r.breaker.RecordFailure()
	switch {
	case change.Opened:
		r.logger.WarnContext(ctx, "outbox relay circuit opened",
			"breaker", r.breaker.Name(),
			"error", err.Error(),
		)
	case wasOpen:
		r.logger.DebugContext(ctx, "outbox relay probe failed", "error", err.Error())
	default:
		r.logger.ErrorContext(ctx, "outbox relay failed",
			"published", published,
			"error", err.Error(),
		)
	}
}

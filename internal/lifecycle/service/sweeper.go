package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically completes due verifications. Polling through
// CheckVerification stays correct without it.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "verification sweeper started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			completed, err := w.service.SweepVerifications(ctx, w.now())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.ErrorContext(ctx, "verification sweep failed", "error", err)
				continue
			}
			if completed > 0 {
				w.logger.InfoContext(ctx, "verification sweep completed", "verified", completed)
			}
		}
	}
}

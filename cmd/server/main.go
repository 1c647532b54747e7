package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "trustchain/internal/jwt_token"
	lifecycleHandler "trustchain/internal/lifecycle/handler"
	lifecycleService "trustchain/internal/lifecycle/service"
	"trustchain/internal/outbox"
	"trustchain/internal/platform/config"
	"trustchain/internal/platform/httpserver"
	"trustchain/internal/platform/logger"
	"trustchain/internal/platform/metrics"
	"trustchain/internal/platform/middleware"
	"trustchain/internal/platform/tracing"
	"trustchain/internal/report"
	reportHandler "trustchain/internal/report/handler"
	"trustchain/pkg/platform/httputil"
	"trustchain/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// main wires configuration, stores and handlers, then runs the HTTP server
// next to the optional verification sweeper and outbox relay.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "trustchain", cfg.Environment, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	infra, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	opts := []lifecycleService.Option{
		lifecycleService.WithLogger(log),
		lifecycleService.WithMetrics(m),
	}
	if infra.idempotency != nil {
		opts = append(opts, lifecycleService.WithIdempotency(infra.idempotency, cfg.Redis.IdempotencyTTL))
	}
	svc, err := lifecycleService.New(infra.stores, infra.tx, lifecycleService.Rules{
		AdminFeeRate:      cfg.Lifecycle.AdminFeeRate,
		VerificationDelay: cfg.Lifecycle.VerificationDelay(),
	}, opts...)
	if err != nil {
		return err
	}

	if cfg.SeedDemo {
		n, err := svc.SeedDemo(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("seeded demo beneficiaries", "count", n)
		}
	}

	jwtValidator := jwttoken.NewAdapter(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ClientIP)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(log))
	r.Use(middleware.LatencyMiddleware(m))

	r.Get("/health", infra.health)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		lifecycleHandler.New(svc, log, jwtValidator, cfg.MaxUploadBytes).Register(api)
		reportHandler.New(report.NewService(infra.stores.Beneficiaries, infra.stores.Ledger), log).Register(api)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "not_found"})
	})

	srv := httpserver.New(cfg.Addr, r, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting trustchain", "addr", cfg.Addr, "env", cfg.Environment, "storage", infra.kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Lifecycle.SweepInterval > 0 {
		sweeper := lifecycleService.NewSweeper(svc, cfg.Lifecycle.SweepInterval, log)
		g.Go(func() error { return ignoreCanceled(sweeper.Run(gctx)) })
	}

	if cfg.Kafka.Enabled() {
		if infra.outbox == nil {
			log.Warn("kafka configured without postgres, outbox relay disabled")
		} else {
			publisher, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.LedgerTopic)
			if err != nil {
				return err
			}
			defer publisher.Close()
			if err := publisher.EnsureTopic(ctx, 3, 1); err != nil {
				log.Warn("ensure ledger topic failed", "topic", cfg.Kafka.LedgerTopic, "error", err)
			}
			relay := outbox.NewRelay(infra.outbox, publisher, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize,
				outbox.WithRelayLogger(log),
				outbox.WithRelayMetrics(m),
			)
			g.Go(func() error { return ignoreCanceled(relay.Run(gctx)) })
		}
	}

	err = g.Wait()
	log.Info("trustchain stopped")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

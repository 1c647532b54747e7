package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	beneficiaryStore "trustchain/internal/beneficiary/store"
	"trustchain/internal/document"
	"trustchain/internal/idempotency"
	ledgerStore "trustchain/internal/ledger/store"
	lifecycleService "trustchain/internal/lifecycle/service"
	"trustchain/internal/outbox"
	"trustchain/internal/platform/config"
	"trustchain/internal/platform/postgres"
	"trustchain/internal/platform/redis"
	proofStore "trustchain/internal/proof/store"
	"trustchain/pkg/platform/httputil"
)

// infra holds the backends selected by configuration.
type infra struct {
	kind        string
	stores      lifecycleService.Stores
	tx          lifecycleService.StoreTx
	idempotency lifecycleService.IdempotencyStore
	outbox      *outbox.PostgresStore

	db    *sql.DB
	redis *redis.Client
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	var blobs document.Blobs
	if cfg.DocumentBucket != "" {
		s3Blobs, err := document.NewS3BlobsFromEnv(ctx, cfg.DocumentBucket, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		blobs = s3Blobs
		log.Info("storing proof documents in s3", "bucket", cfg.DocumentBucket, "region", cfg.AWSRegion)
	} else {
		blobs = document.NewMemoryBlobs()
	}
	documents := document.NewStore(blobs, int(cfg.MaxUploadBytes))

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		beneficiaries := beneficiaryStore.NewPostgres(db)
		in.kind = "postgres"
		in.db = db
		in.stores = lifecycleService.Stores{
			Beneficiaries: beneficiaries,
			Ledger:        ledgerStore.NewPostgres(db),
			Proofs:        proofStore.NewPostgres(db),
			Documents:     documents,
		}
		in.tx = lifecycleService.NewPostgresTx(db, beneficiaries)
		in.outbox = outbox.NewPostgresStore(db)
	} else {
		in.kind = "memory"
		in.stores = lifecycleService.Stores{
			Beneficiaries: beneficiaryStore.NewInMemory(),
			Ledger:        ledgerStore.NewInMemory(),
			Proofs:        proofStore.NewInMemory(),
			Documents:     documents,
		}
		in.tx = lifecycleService.NewShardedTx()
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if client != nil {
		in.redis = client
		in.idempotency = idempotency.NewRedisStore(client)
		log.Info("using redis for donation idempotency")
	}
	return in, nil
}

func (in *infra) health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"storage": in.kind}
	status := http.StatusOK
	if in.db != nil {
		if err := in.db.PingContext(r.Context()); err != nil {
			checks["postgres"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "ok"
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(r.Context()); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}
	checks["status"] = "ok"
	if status != http.StatusOK {
		checks["status"] = "degraded"
	}
	httputil.WriteJSON(w, status, checks)
}

func (in *infra) Close() {
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

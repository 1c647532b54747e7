package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	txcontext "trustchain/pkg/platform/tx"
)

// StoreTx runs fn as one isolated unit for a beneficiary. Concurrent units
// for the same beneficiary never overlap; different beneficiaries may run
// in parallel. fn must use the ctx it is given.
type StoreTx interface {
	RunInTx(ctx context.Context, beneficiaryID id.BeneficiaryID, fn func(ctx context.Context) error) error
}

// numShards spreads beneficiaries over a fixed set of mutexes.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

// ShardedTx serializes in-memory units with a mutex per shard of the
// beneficiary id space.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, beneficiaryID id.BeneficiaryID, fn func(ctx context.Context) error) error {
	ctx, cancel, err := prepare(ctx, t.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	shard := hashString(beneficiaryID.String()) % numShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// RowLocker takes a row lock on the beneficiary inside tx.
type RowLocker interface {
	Lock(ctx context.Context, tx *sql.Tx, beneficiaryID id.BeneficiaryID) error
}

// PostgresTx runs each unit in a database transaction that first locks the
// beneficiary row. Stores join the transaction through ctx.
type PostgresTx struct {
	db      *sql.DB
	locker  RowLocker
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB, locker RowLocker) *PostgresTx {
	return &PostgresTx{db: db, locker: locker, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, beneficiaryID id.BeneficiaryID, fn func(ctx context.Context) error) error {
	ctx, cancel, err := prepare(ctx, t.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := t.locker.Lock(ctx, tx, beneficiaryID); err != nil {
		return err
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to commit transaction")
	}
	return nil
}

func prepare(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// hashString is FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

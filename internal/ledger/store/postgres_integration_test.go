//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"trustchain/internal/ledger"
	"trustchain/internal/ledger/store"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
	"trustchain/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "outbox", "ledger_entries", "proofs", "beneficiaries"))
}

func (s *PostgresStoreSuite) beneficiary() id.BeneficiaryID {
	bid := id.NewBeneficiaryID()
	_, err := s.postgres.DB.ExecContext(s.ctx,
		`INSERT INTO beneficiaries (id, name, required_amount, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(bid), "Test", "100.00", time.Now())
	s.Require().NoError(err)
	return bid
}

func amount(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *PostgresStoreSuite) TestAppendAndReadBack() {
	bid := s.beneficiary()
	at := time.Now().UTC().Truncate(time.Microsecond)

	seq1, err := s.store.Append(s.ctx, ledger.NewMonetary(bid, ledger.KindDonation, amount("60.50"), at, "first"))
	s.Require().NoError(err)
	seq2, err := s.store.Append(s.ctx, ledger.NewMarker(bid, ledger.KindProofSubmitted, at, "receipt.pdf"))
	s.Require().NoError(err)
	s.Less(seq1, seq2)

	entries, err := s.store.EntriesFor(s.ctx, bid)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.True(entries[0].Amount.Valid)
	s.True(entries[0].Amount.Decimal.Equal(amount("60.50")))
	s.Equal("first", entries[0].Note)
	s.True(entries[0].Timestamp.Equal(at))
	s.False(entries[1].Amount.Valid)
	s.Equal(ledger.KindProofSubmitted, entries[1].Kind)

	var outboxRows int
	s.Require().NoError(s.postgres.DB.QueryRowContext(s.ctx, `SELECT count(*) FROM outbox`).Scan(&outboxRows))
	s.Equal(2, outboxRows)
}

func (s *PostgresStoreSuite) TestSecondReleaseIsRejectedByIndex() {
	bid := s.beneficiary()
	release := []ledger.Entry{
		ledger.NewMonetary(bid, ledger.KindAdminFee, amount("5"), time.Now(), ""),
		ledger.NewMonetary(bid, ledger.KindFundsReleased, amount("95"), time.Now(), ""),
	}

	_, err := s.store.AppendBatch(s.ctx, release)
	s.Require().NoError(err)

	_, err = s.store.AppendBatch(s.ctx, release)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	entries, err := s.store.EntriesFor(s.ctx, bid)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *PostgresStoreSuite) TestConcurrentReleaseRace() {
	bid := s.beneficiary()
	const goroutines = 20

	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.AppendBatch(s.ctx, []ledger.Entry{
				ledger.NewMonetary(bid, ledger.KindAdminFee, amount("5"), time.Now(), ""),
				ledger.NewMonetary(bid, ledger.KindFundsReleased, amount("95"), time.Now(), ""),
			})
			if err == nil {
				ok.Add(1)
			} else if s.ErrorIs(err, sentinel.ErrAlreadyUsed) {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

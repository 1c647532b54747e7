package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"trustchain/internal/ledger"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) donation(bid id.BeneficiaryID, amount string) ledger.Entry {
	return ledger.NewMonetary(bid, ledger.KindDonation, decimal.RequireFromString(amount), s.now, "")
}

func (s *InMemorySuite) TestAppendAssignsIncreasingSequence() {
	a, b := id.NewBeneficiaryID(), id.NewBeneficiaryID()

	seq1, err := s.store.Append(s.ctx, s.donation(a, "10"))
	s.Require().NoError(err)
	seq2, err := s.store.Append(s.ctx, s.donation(b, "20"))
	s.Require().NoError(err)
	seq3, err := s.store.Append(s.ctx, s.donation(a, "30"))
	s.Require().NoError(err)

	s.Equal([]int64{1, 2, 3}, []int64{seq1, seq2, seq3})

	forA, err := s.store.EntriesFor(s.ctx, a)
	s.Require().NoError(err)
	s.Require().Len(forA, 2)
	s.Equal(int64(1), forA[0].Seq)
	s.Equal(int64(3), forA[1].Seq)

	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *InMemorySuite) TestAppendRejectsInvalidEntry() {
	bid := id.NewBeneficiaryID()
	_, err := s.store.Append(s.ctx, ledger.NewMarker(bid, ledger.KindDonation, s.now, ""))
	s.Require().Error(err)

	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *InMemorySuite) TestAppendBatchIsAllOrNothing() {
	bid := id.NewBeneficiaryID()

	s.Run("invalid member rejects the batch", func() {
		_, err := s.store.AppendBatch(s.ctx, []ledger.Entry{
			ledger.NewMonetary(bid, ledger.KindAdminFee, decimal.RequireFromString("5"), s.now, ""),
			ledger.NewMarker(bid, ledger.KindFundsReleased, s.now, ""),
		})
		s.Require().Error(err)
		entries, _ := s.store.EntriesFor(s.ctx, bid)
		s.Empty(entries)
	})

	s.Run("second release for a beneficiary is refused", func() {
		release := func() []ledger.Entry {
			return []ledger.Entry{
				ledger.NewMonetary(bid, ledger.KindAdminFee, decimal.RequireFromString("5"), s.now, ""),
				ledger.NewMonetary(bid, ledger.KindFundsReleased, decimal.RequireFromString("95"), s.now, ""),
			}
		}
		seqs, err := s.store.AppendBatch(s.ctx, release())
		s.Require().NoError(err)
		s.Len(seqs, 2)

		_, err = s.store.AppendBatch(s.ctx, release())
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		entries, _ := s.store.EntriesFor(s.ctx, bid)
		s.Len(entries, 2)
	})
}

func (s *InMemorySuite) TestReturnedSlicesAreCopies() {
	bid := id.NewBeneficiaryID()
	_, err := s.store.Append(s.ctx, s.donation(bid, "10"))
	s.Require().NoError(err)

	entries, _ := s.store.EntriesFor(s.ctx, bid)
	entries[0].Note = "tampered"
	all, _ := s.store.All(s.ctx)
	all[0].Kind = ledger.KindFundsReleased

	again, _ := s.store.All(s.ctx)
	s.Equal("", again[0].Note)
	s.Equal(ledger.KindDonation, again[0].Kind)
}

func (s *InMemorySuite) TestConcurrentAppendsKeepSequenceDense() {
	bid := id.NewBeneficiaryID()
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Append(s.ctx, s.donation(bid, "1"))
			s.NoError(err)
		}()
	}
	wg.Wait()

	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, writers)
	for i, e := range all {
		s.Equal(int64(i+1), e.Seq)
	}
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"trustchain/internal/beneficiary"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemorySuite) newBeneficiary(name string, createdAt time.Time) *beneficiary.Beneficiary {
	b, err := beneficiary.New(name, decimal.NewFromInt(100), "", createdAt)
	s.Require().NoError(err)
	return b
}

func (s *InMemorySuite) TestCreateAndFind() {
	b := s.newBeneficiary("Alice", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, b))

	found, err := s.store.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.Name, found.Name)

	s.Run("duplicate id", func() {
		s.ErrorIs(s.store.Create(s.ctx, b), sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewBeneficiaryID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestListOrdersByCreation() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	third := s.newBeneficiary("Cindy", base.Add(2*time.Hour))
	first := s.newBeneficiary("Alice", base)
	second := s.newBeneficiary("Ben", base.Add(time.Hour))
	for _, b := range []*beneficiary.Beneficiary{third, first, second} {
		s.Require().NoError(s.store.Create(s.ctx, b))
	}

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]string{"Alice", "Ben", "Cindy"}, []string{list[0].Name, list[1].Name, list[2].Name})

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}

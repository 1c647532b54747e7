package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"trustchain/internal/lifecycle"
)

func (s *ServiceSuite) TestSweeperRunsUntilCancelled() {
	bid := s.create("10")
	_, err := s.donate(bid, "10")
	s.Require().NoError(err)
	_, err = s.service.SubmitProof(s.at(0), bid, Upload{Data: pdf, MimeType: "application/pdf"})
	s.Require().NoError(err)

	sweeper := NewSweeper(s.service, 5*time.Millisecond, nil)
	sweeper.now = func() time.Time { return s.start.Add(s.delay) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	s.Eventually(func() bool {
		st, err := s.service.GetStatus(context.Background(), bid)
		return err == nil && st.State == lifecycle.StateReleased
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)

	st, err := s.service.GetStatus(context.Background(), bid)
	s.Require().NoError(err)
	s.True(st.Released.Equal(decimal.RequireFromString("9.50")))
}

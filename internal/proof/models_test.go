package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

func TestProofTransitions(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	delay := 7 * time.Second

	p, err := New(id.NewBeneficiaryID(), Document{Handle: "sha256/abc", Filename: "receipt.pdf"}, now, delay)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, p.Status)
	assert.Equal(t, now.Add(delay), p.DueAt)
	assert.True(t, p.Pending())

	err = p.Verify(now.Add(delay))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "cannot verify before review starts")

	require.NoError(t, p.BeginReview())
	assert.Equal(t, StatusUnderReview, p.Status)
	assert.Error(t, p.BeginReview())

	assert.False(t, p.IsDue(now.Add(delay-time.Nanosecond)))
	require.Error(t, p.Verify(now.Add(delay-time.Nanosecond)))
	assert.Equal(t, StatusUnderReview, p.Status)

	late := now.Add(delay + 48*time.Hour)
	require.NoError(t, p.Verify(late))
	assert.Equal(t, StatusVerified, p.Status)
	require.NotNil(t, p.VerifiedAt)
	assert.Equal(t, late, *p.VerifiedAt)
	assert.False(t, p.Pending())
	assert.Error(t, p.Verify(late))
}

func TestNewRequiresHandle(t *testing.T) {
	_, err := New(id.NewBeneficiaryID(), Document{}, time.Now(), time.Second)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

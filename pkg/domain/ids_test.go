package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustchain/pkg/domain-errors"
)

// TestParseBeneficiaryID_Invariants validates the parsing invariant:
// ids must be valid, non-empty, non-nil UUIDs.
func TestParseBeneficiaryID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBeneficiaryID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseBeneficiaryID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseBeneficiaryID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		got, err := ParseBeneficiaryID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, BeneficiaryID(valid), got)
	})
}

func TestParseID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE beneficiaries;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errB := ParseBeneficiaryID(tt.input)
			_, errP := ParseProofID(tt.input)
			if tt.wantErr {
				require.Error(t, errB)
				require.Error(t, errP)
				assert.True(t, dErrors.HasCode(errB, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, errB)
			require.NoError(t, errP)
		})
	}
}

func TestBeneficiaryID_JSON(t *testing.T) {
	original := NewBeneficiaryID()
	raw, err := json.Marshal(struct {
		ID BeneficiaryID `json:"id"`
	}{ID: original})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"`+original.String()+`"}`, string(raw))

	var decoded struct {
		ID BeneficiaryID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded.ID)

	err = json.Unmarshal([]byte(`{"id":"nope"}`), &decoded)
	require.Error(t, err)
}

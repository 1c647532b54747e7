package beneficiary

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustchain/pkg/domain-errors"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		b, err := New("  Alice Chan ", decimal.RequireFromString("2000"), "Tuition", now)
		require.NoError(t, err)
		assert.False(t, b.ID.IsNil())
		assert.Equal(t, "Alice Chan", b.Name)
		assert.Equal(t, now, b.CreatedAt)
	})

	tests := []struct {
		name     string
		input    string
		required string
		code     dErrors.Code
	}{
		{"blank name", " ", "100", dErrors.CodeValidation},
		{"long name", strings.Repeat("x", maxNameLength+1), "100", dErrors.CodeValidation},
		{"zero amount", "Ben", "0", dErrors.CodeInvalidAmount},
		{"negative amount", "Ben", "-5", dErrors.CodeInvalidAmount},
		{"sub-cent amount", "Ben", "10.005", dErrors.CodeInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.input, decimal.RequireFromString(tt.required), "", now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("0.01")))
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("12.50")))
	assert.Error(t, ValidateAmount(decimal.Zero))
	assert.Error(t, ValidateAmount(decimal.RequireFromString("0.001")))
}

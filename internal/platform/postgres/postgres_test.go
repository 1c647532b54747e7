package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"trustchain/pkg/platform/sentinel"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505"}, sentinel.ErrAlreadyUsed},
		{"no rows", sql.ErrNoRows, sentinel.ErrNotFound},
		{"other driver error", &pq.Error{Code: "08006"}, sentinel.ErrUnavailable},
		{"connection refused", errors.New("dial tcp: connection refused"), sentinel.ErrUnavailable},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Translate("op", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "op: ")
		})
	}

	assert.NoError(t, Translate("op", nil))
	assert.NotErrorIs(t, Translate("op", context.Canceled), sentinel.ErrUnavailable)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS ledger_entries")
	assert.Contains(t, schema, "WHERE kind = 'FundsReleased'")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS outbox")
}

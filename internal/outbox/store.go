package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trustchain/internal/platform/postgres"
)

// PostgresStore reads and marks rows in the outbox table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FetchUnpublished returns up to limit unpublished rows in write order.
// Rows written by one batch share created_at, so the ledger sequence breaks ties.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]Record, error) {
	const query = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, (payload->>'sequence')::BIGINT
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, postgres.Translate("fetch outbox", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var payload []byte
		if err := rows.Scan(&r.ID, &r.AggregateType, &r.AggregateID, &r.EventType, &payload, &r.CreatedAt); err != nil {
			return nil, postgres.Translate("scan outbox", err)
		}
		r.Payload = payload
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Translate("iterate outbox", err)
	}
	return out, nil
}

// MarkPublished stamps the given rows as published.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	const query = `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), pq.Array(keys)); err != nil {
		return postgres.Translate("mark outbox published", err)
	}
	return nil
}

// Pending counts rows not yet published.
func (s *PostgresStore) Pending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, postgres.Translate("count outbox", err)
	}
	return n, nil
}

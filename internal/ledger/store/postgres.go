package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trustchain/internal/ledger"
	"trustchain/internal/platform/postgres"
	id "trustchain/pkg/domain"
	txcontext "trustchain/pkg/platform/tx"
)

// Postgres persists entries in ledger_entries and mirrors each into the
// outbox table within the same transaction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// outboxPayload is the message body published for each entry.
type outboxPayload struct {
	Sequence      int64   `json:"sequence"`
	BeneficiaryID string  `json:"beneficiary_id"`
	Kind          string  `json:"kind"`
	Amount        *string `json:"amount,omitempty"`
	Timestamp     string  `json:"timestamp"`
	Note          string  `json:"note,omitempty"`
}

// Append writes one entry and returns its sequence number.
func (s *Postgres) Append(ctx context.Context, entry ledger.Entry) (int64, error) {
	seqs, err := s.AppendBatch(ctx, []ledger.Entry{entry})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// AppendBatch writes entries atomically. It joins the transaction in ctx when
// there is one and opens its own otherwise.
func (s *Postgres) AppendBatch(ctx context.Context, entries []ledger.Entry) ([]int64, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	if tx, ok := txcontext.From(ctx); ok {
		return s.insert(ctx, tx, entries)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, postgres.Translate("begin ledger append", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	seqs, err := s.insert(ctx, tx, entries)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, postgres.Translate("commit ledger append", err)
	}
	return seqs, nil
}

func (s *Postgres) insert(ctx context.Context, tx *sql.Tx, entries []ledger.Entry) ([]int64, error) {
	const insertEntry = `
		INSERT INTO ledger_entries (beneficiary_id, kind, amount, occurred_at, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`
	const insertOutbox = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'beneficiary', $2, $3, $4, $5)
	`
	seqs := make([]int64, 0, len(entries))
	for _, e := range entries {
		var seq int64
		err := tx.QueryRowContext(ctx, insertEntry,
			uuid.UUID(e.BeneficiaryID),
			string(e.Kind),
			e.Amount,
			e.Timestamp.UTC(),
			e.Note,
		).Scan(&seq)
		if err != nil {
			return nil, postgres.Translate("insert ledger entry", err)
		}
		e.Seq = seq

		payload, err := json.Marshal(toPayload(e))
		if err != nil {
			return nil, fmt.Errorf("marshal outbox payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertOutbox,
			uuid.New(),
			e.BeneficiaryID.String(),
			string(e.Kind),
			payload,
			time.Now().UTC(),
		); err != nil {
			return nil, postgres.Translate("insert outbox entry", err)
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

// EntriesFor returns a beneficiary's entries in sequence order.
func (s *Postgres) EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error) {
	const query = `
		SELECT seq, beneficiary_id, kind, amount, occurred_at, note
		FROM ledger_entries
		WHERE beneficiary_id = $1
		ORDER BY seq
	`
	return s.query(ctx, query, uuid.UUID(beneficiaryID))
}

// All returns every entry in sequence order.
func (s *Postgres) All(ctx context.Context) ([]ledger.Entry, error) {
	const query = `
		SELECT seq, beneficiary_id, kind, amount, occurred_at, note
		FROM ledger_entries
		ORDER BY seq
	`
	return s.query(ctx, query)
}

func (s *Postgres) query(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.Translate("query ledger entries", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e      ledger.Entry
			bid    uuid.UUID
			kind   string
			amount decimal.NullDecimal
		)
		if err := rows.Scan(&e.Seq, &bid, &kind, &amount, &e.Timestamp, &e.Note); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.BeneficiaryID = id.BeneficiaryID(bid)
		e.Kind = ledger.Kind(kind)
		e.Amount = amount
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Translate("iterate ledger entries", err)
	}
	return out, nil
}

func toPayload(e ledger.Entry) outboxPayload {
	p := outboxPayload{
		Sequence:      e.Seq,
		BeneficiaryID: e.BeneficiaryID.String(),
		Kind:          string(e.Kind),
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		Note:          e.Note,
	}
	if e.Amount.Valid {
		amount := e.Amount.Decimal.StringFixed(2)
		p.Amount = &amount
	}
	return p
}

package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"trustchain/internal/beneficiary"
	"trustchain/internal/platform/postgres"
	id "trustchain/pkg/domain"
	txcontext "trustchain/pkg/platform/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, b *beneficiary.Beneficiary) error {
	const query = `
		INSERT INTO beneficiaries (id, name, required_amount, story, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(b.ID), b.Name, b.RequiredAmount, b.Story, b.CreatedAt.UTC())
	return postgres.Translate("insert beneficiary", err)
}

func (s *Postgres) FindByID(ctx context.Context, beneficiaryID id.BeneficiaryID) (*beneficiary.Beneficiary, error) {
	const query = `
		SELECT id, name, required_amount, story, created_at
		FROM beneficiaries
		WHERE id = $1
	`
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(beneficiaryID))
	b, err := scan(row)
	if err != nil {
		return nil, postgres.Translate("find beneficiary", err)
	}
	return b, nil
}

// Lock takes a row lock on the beneficiary for the rest of the transaction
// in ctx. It serializes every lifecycle action on one beneficiary.
func (s *Postgres) Lock(ctx context.Context, tx *sql.Tx, beneficiaryID id.BeneficiaryID) error {
	var locked uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM beneficiaries WHERE id = $1 FOR UPDATE`, uuid.UUID(beneficiaryID)).Scan(&locked)
	return postgres.Translate("lock beneficiary", err)
}

func (s *Postgres) List(ctx context.Context) ([]*beneficiary.Beneficiary, error) {
	const query = `
		SELECT id, name, required_amount, story, created_at
		FROM beneficiaries
		ORDER BY created_at, id
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, postgres.Translate("list beneficiaries", err)
	}
	defer rows.Close()

	var out []*beneficiary.Beneficiary
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, postgres.Translate("scan beneficiary", err)
		}
		out = append(out, b)
	}
	return out, postgres.Translate("iterate beneficiaries", rows.Err())
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM beneficiaries`).Scan(&n)
	return n, postgres.Translate("count beneficiaries", err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*beneficiary.Beneficiary, error) {
	var (
		b   beneficiary.Beneficiary
		bid uuid.UUID
	)
	if err := row.Scan(&bid, &b.Name, &b.RequiredAmount, &b.Story, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.ID = id.BeneficiaryID(bid)
	return &b, nil
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"trustchain/internal/platform/postgres"
	"trustchain/internal/proof"
	id "trustchain/pkg/domain"
	"trustchain/pkg/platform/sentinel"
	txcontext "trustchain/pkg/platform/tx"
)

const selectProof = `
	SELECT id, beneficiary_id, document_handle, filename, sha256, status, submitted_at, due_at, verified_at
	FROM proofs
`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Create relies on the unique beneficiary_id column for the one-proof rule.
func (s *Postgres) Create(ctx context.Context, p *proof.Proof) error {
	const query = `
		INSERT INTO proofs (id, beneficiary_id, document_handle, filename, sha256, status, submitted_at, due_at, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.BeneficiaryID), p.DocumentHandle, p.Filename, p.SHA256,
		string(p.Status), p.SubmittedAt.UTC(), p.DueAt.UTC(), p.VerifiedAt)
	return postgres.Translate("insert proof", err)
}

func (s *Postgres) FindByBeneficiary(ctx context.Context, beneficiaryID id.BeneficiaryID) (*proof.Proof, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectProof+` WHERE beneficiary_id = $1`, uuid.UUID(beneficiaryID))
	p, err := scan(row)
	if err != nil {
		return nil, postgres.Translate("find proof", err)
	}
	return p, nil
}

func (s *Postgres) Update(ctx context.Context, p *proof.Proof) error {
	const query = `
		UPDATE proofs SET status = $2, verified_at = $3
		WHERE id = $1
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(p.ID), string(p.Status), p.VerifiedAt)
	if err != nil {
		return postgres.Translate("update proof", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.Translate("update proof", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, p *proof.Proof) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM proofs WHERE id = $1`, uuid.UUID(p.ID))
	return postgres.Translate("delete proof", err)
}

func (s *Postgres) ListDue(ctx context.Context, now time.Time) ([]*proof.Proof, error) {
	return s.list(ctx, selectProof+` WHERE status = $1 AND due_at <= $2 ORDER BY due_at`,
		string(proof.StatusUnderReview), now.UTC())
}

func (s *Postgres) List(ctx context.Context) ([]*proof.Proof, error) {
	return s.list(ctx, selectProof+` ORDER BY submitted_at`)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*proof.Proof, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.Translate("list proofs", err)
	}
	defer rows.Close()
	var out []*proof.Proof
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, postgres.Translate("scan proof", err)
		}
		out = append(out, p)
	}
	return out, postgres.Translate("iterate proofs", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*proof.Proof, error) {
	var (
		p          proof.Proof
		pid, bid   uuid.UUID
		status     string
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&pid, &bid, &p.DocumentHandle, &p.Filename, &p.SHA256, &status, &p.SubmittedAt, &p.DueAt, &verifiedAt); err != nil {
		return nil, err
	}
	p.ID = id.ProofID(pid)
	p.BeneficiaryID = id.BeneficiaryID(bid)
	p.Status = proof.Status(status)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	return &p, nil
}

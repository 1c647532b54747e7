// Package service is the lifecycle controller. It derives each
// beneficiary's state from the ledger, checks preconditions, and runs every
// mutating action inside a per-beneficiary StoreTx.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustchain/internal/beneficiary"
	"trustchain/internal/document"
	"trustchain/internal/donation"
	"trustchain/internal/idempotency"
	"trustchain/internal/ledger"
	"trustchain/internal/lifecycle"
	"trustchain/internal/platform/metrics"
	"trustchain/internal/proof"
	"trustchain/internal/release"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	"trustchain/pkg/platform/sentinel"
	"trustchain/pkg/requestcontext"
)

type BeneficiaryStore interface {
	Create(ctx context.Context, b *beneficiary.Beneficiary) error
	FindByID(ctx context.Context, beneficiaryID id.BeneficiaryID) (*beneficiary.Beneficiary, error)
	List(ctx context.Context) ([]*beneficiary.Beneficiary, error)
	Count(ctx context.Context) (int, error)
}

type LedgerStore interface {
	Append(ctx context.Context, entry ledger.Entry) (int64, error)
	AppendBatch(ctx context.Context, entries []ledger.Entry) ([]int64, error)
	EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error)
	All(ctx context.Context) ([]ledger.Entry, error)
}

type ProofStore interface {
	proof.Store
	ListDue(ctx context.Context, now time.Time) ([]*proof.Proof, error)
}

type DocumentStore interface {
	Store(ctx context.Context, data []byte, mimeType string) (document.Handle, error)
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Stores groups the persistence the controller runs on.
type Stores struct {
	Beneficiaries BeneficiaryStore
	Ledger        LedgerStore
	Proofs        ProofStore
	Documents     DocumentStore
}

// Rules are the lifecycle parameters.
type Rules struct {
	AdminFeeRate      decimal.Decimal
	VerificationDelay time.Duration
}

type Service struct {
	beneficiaries BeneficiaryStore
	ledger        LedgerStore
	proofs        ProofStore
	documents     DocumentStore
	tx            StoreTx

	donations *donation.Engine
	workflow  *proof.Workflow
	release   *release.Engine

	idempotency    IdempotencyStore
	idempotencyTTL time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIdempotency replaces the default in-memory replay cache.
func WithIdempotency(store IdempotencyStore, ttl time.Duration) Option {
	return func(s *Service) {
		if store != nil {
			s.idempotency = store
		}
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New wires the engines over stores.
func New(stores Stores, tx StoreTx, rules Rules, opts ...Option) (*Service, error) {
	if stores.Beneficiaries == nil || stores.Ledger == nil || stores.Proofs == nil || stores.Documents == nil {
		return nil, errors.New("lifecycle service requires beneficiary, ledger, proof and document stores")
	}
	if tx == nil {
		return nil, errors.New("lifecycle service requires a StoreTx")
	}
	if rules.VerificationDelay <= 0 {
		return nil, errors.New("verification delay must be positive")
	}
	releaseEngine, err := release.NewEngine(stores.Ledger, rules.AdminFeeRate)
	if err != nil {
		return nil, err
	}

	s := &Service{
		beneficiaries:  stores.Beneficiaries,
		ledger:         stores.Ledger,
		proofs:         stores.Proofs,
		documents:      stores.Documents,
		tx:             tx,
		donations:      donation.NewEngine(stores.Beneficiaries, stores.Ledger),
		release:        releaseEngine,
		workflow:       proof.NewWorkflow(stores.Proofs, stores.Ledger, releaseEngine, rules.VerificationDelay),
		idempotency:    idempotency.NewMemoryStore(),
		idempotencyTTL: 24 * time.Hour,
		logger:         slog.Default(),
		tracer:         otel.Tracer("trustchain/lifecycle"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AdminFeeRate is the fraction charged once at release.
func (s *Service) AdminFeeRate() decimal.Decimal { return s.release.FeeRate() }

// VerificationDelay is the wait between proof submission and verification.
func (s *Service) VerificationDelay() time.Duration { return s.workflow.Delay() }

// Status is a beneficiary with its derived lifecycle view.
type Status struct {
	Beneficiary *beneficiary.Beneficiary `json:"beneficiary"`
	State       lifecycle.State          `json:"state"`
	FundedTotal decimal.Decimal          `json:"funded_total"`
	Remaining   decimal.Decimal          `json:"remaining"`
	AdminFee    decimal.Decimal          `json:"admin_fee"`
	Released    decimal.Decimal          `json:"released"`
	Proof       *proof.Proof             `json:"proof,omitempty"`
}

// DonationResult is returned by Donate and replayed for a repeated
// idempotency key.
type DonationResult struct {
	Entry       ledger.Entry    `json:"entry"`
	FundedTotal decimal.Decimal `json:"funded_total"`
	Remaining   decimal.Decimal `json:"remaining"`
	State       lifecycle.State `json:"state"`
	Replayed    bool            `json:"replayed"`
}

// VerificationResult is returned by CheckVerification.
type VerificationResult struct {
	Status    *Status        `json:"status"`
	Completed bool           `json:"completed"`
	Released  []ledger.Entry `json:"released,omitempty"`
}

// Upload is a proof document received from a client.
type Upload struct {
	Data     []byte
	MimeType string
	Filename string
}

// CreateBeneficiary adds a funding target.
func (s *Service) CreateBeneficiary(ctx context.Context, name string, required decimal.Decimal, story string) (*beneficiary.Beneficiary, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.CreateBeneficiary")
	defer span.End()

	b, err := beneficiary.New(name, required, story, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.beneficiaries.Create(ctx, b); err != nil {
		return nil, s.fail(span, translate(err, "failed to create beneficiary"))
	}
	span.SetAttributes(attribute.String("beneficiary.id", b.ID.String()))
	s.audit(ctx, "beneficiary_created", b.ID, "required_amount", b.RequiredAmount.StringFixed(2))
	return b, nil
}

// GetStatus derives the current state of one beneficiary.
func (s *Service) GetStatus(ctx context.Context, beneficiaryID id.BeneficiaryID) (*Status, error) {
	b, err := s.findBeneficiary(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.EntriesFor(ctx, beneficiaryID)
	if err != nil {
		return nil, translate(err, "failed to read ledger")
	}
	st := statusOf(b, entries)
	p, err := s.proofs.FindByBeneficiary(ctx, beneficiaryID)
	switch {
	case err == nil:
		st.Proof = p
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, translate(err, "failed to load proof")
	}
	return st, nil
}

// ListBeneficiaries returns every beneficiary with its derived state.
func (s *Service) ListBeneficiaries(ctx context.Context) ([]*Status, error) {
	list, err := s.beneficiaries.List(ctx)
	if err != nil {
		return nil, translate(err, "failed to list beneficiaries")
	}
	all, err := s.ledger.All(ctx)
	if err != nil {
		return nil, translate(err, "failed to read ledger")
	}
	byBeneficiary := make(map[id.BeneficiaryID][]ledger.Entry)
	for _, e := range all {
		byBeneficiary[e.BeneficiaryID] = append(byBeneficiary[e.BeneficiaryID], e)
	}
	out := make([]*Status, 0, len(list))
	for _, b := range list {
		out = append(out, statusOf(b, byBeneficiary[b.ID]))
	}
	return out, nil
}

// Donate accepts amount for the beneficiary. With a non-empty
// idempotencyKey a repeated call returns the first result without a new
// ledger entry.
func (s *Service) Donate(ctx context.Context, beneficiaryID id.BeneficiaryID, amount decimal.Decimal, idempotencyKey string) (*DonationResult, error) {
	start := time.Now()
	defer s.observe("donate", start)
	ctx, span := s.tracer.Start(ctx, "lifecycle.Donate", trace.WithAttributes(
		attribute.String("beneficiary.id", beneficiaryID.String()),
		attribute.String("donation.amount", amount.String()),
	))
	defer span.End()

	if idempotencyKey != "" {
		if err := idempotency.ValidateKey(idempotencyKey); err != nil {
			return nil, s.fail(span, err)
		}
	}
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)
	cacheKey := "donation:" + beneficiaryID.String() + ":" + idempotencyKey

	var result *DonationResult
	remembered := false
	err := s.tx.RunInTx(ctx, beneficiaryID, func(ctx context.Context) error {
		if idempotencyKey != "" {
			cached, err := s.replay(ctx, cacheKey, amount)
			if err != nil || cached != nil {
				result = cached
				return err
			}
		}

		receipt, err := s.donations.Donate(ctx, beneficiaryID, amount, now)
		if err != nil {
			return err
		}
		state := lifecycle.StateOpen
		if receipt.FullyFunded {
			state = lifecycle.StateFullyFunded
		}
		result = &DonationResult{
			Entry:       receipt.Entry,
			FundedTotal: receipt.FundedTotal,
			Remaining:   receipt.Remaining,
			State:       state,
		}
		if idempotencyKey != "" {
			remembered = s.remember(ctx, cacheKey, result)
		}
		return nil
	})
	if err != nil {
		if remembered {
			s.forget(ctx, cacheKey)
		}
		err = translate(err, "failed to record donation")
		if s.metrics != nil {
			s.metrics.IncrementDonationRejected(string(dErrors.CodeOf(err)))
		}
		return nil, s.fail(span, err)
	}
	if result.Replayed {
		span.SetAttributes(attribute.Bool("donation.replayed", true))
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementDonationAccepted(amount)
	}
	s.audit(ctx, "donation_accepted", beneficiaryID,
		"amount", amount.StringFixed(2),
		"funded_total", result.FundedTotal.StringFixed(2),
		"sequence", result.Entry.Seq,
	)
	if result.State == lifecycle.StateFullyFunded {
		s.audit(ctx, "beneficiary_fully_funded", beneficiaryID)
	}
	return result, nil
}

func (s *Service) replay(ctx context.Context, key string, amount decimal.Decimal) (*DonationResult, error) {
	raw, ok, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to check idempotency key")
	}
	if !ok {
		return nil, nil
	}
	var cached DonationResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable idempotency record", "error", err)
		return nil, nil
	}
	if !cached.Entry.Amount.Decimal.Equal(amount) {
		return nil, dErrors.New(dErrors.CodeConflict, "idempotency key was already used for a different amount")
	}
	cached.Replayed = true
	return &cached, nil
}

// remember reports whether the record was stored.
func (s *Service) remember(ctx context.Context, key string, result *DonationResult) bool {
	raw, err := json.Marshal(result)
	if err == nil {
		err = s.idempotency.Put(ctx, key, raw, s.idempotencyTTL)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to store idempotency record",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return false
	}
	return true
}

// forget drops a record written for a donation whose transaction did not
// commit, so a retry with the same key donates instead of replaying.
func (s *Service) forget(ctx context.Context, key string) {
	if err := s.idempotency.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.ErrorContext(ctx, "failed to drop idempotency record after rollback",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// SubmitProof stores the document and starts the verification delay. The
// state is checked before the upload is stored and again under the
// beneficiary's lock.
func (s *Service) SubmitProof(ctx context.Context, beneficiaryID id.BeneficiaryID, upload Upload) (*Status, error) {
	start := time.Now()
	defer s.observe("submit_proof", start)
	ctx, span := s.tracer.Start(ctx, "lifecycle.SubmitProof", trace.WithAttributes(
		attribute.String("beneficiary.id", beneficiaryID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	current, err := s.GetStatus(ctx, beneficiaryID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := requireProofAllowed(current.State); err != nil {
		return nil, s.fail(span, err)
	}

	handle, err := s.documents.Store(ctx, upload.Data, upload.MimeType)
	if err != nil {
		return nil, s.fail(span, translate(err, "failed to store document"))
	}

	var submitted *proof.Proof
	err = s.tx.RunInTx(ctx, beneficiaryID, func(ctx context.Context) error {
		b, err := s.findBeneficiary(ctx, beneficiaryID)
		if err != nil {
			return err
		}
		submitted, err = s.workflow.Submit(ctx, beneficiaryID, b.RequiredAmount, proof.Document{
			Handle:   handle.Key,
			Filename: upload.Filename,
			SHA256:   handle.SHA256,
		}, now)
		return err
	})
	if err != nil {
		return nil, s.fail(span, translate(err, "failed to submit proof"))
	}

	if s.metrics != nil {
		s.metrics.IncrementProofSubmitted()
	}
	s.audit(ctx, "proof_submitted", beneficiaryID,
		"proof_id", submitted.ID.String(),
		"document", handle.Key,
		"due_at", submitted.DueAt,
	)
	return s.GetStatus(ctx, beneficiaryID)
}

func requireProofAllowed(state lifecycle.State) error {
	switch state {
	case lifecycle.StateOpen:
		return dErrors.New(dErrors.CodeNotFullyFunded, "proof can only be submitted once the beneficiary is fully funded")
	case lifecycle.StateFullyFunded:
		return nil
	default:
		return dErrors.New(dErrors.CodeProofAlreadySubmitted, "a proof has already been submitted for this beneficiary")
	}
}

// CheckVerification completes verification when due and releases funds.
// It is a no-op before the due time and after release.
func (s *Service) CheckVerification(ctx context.Context, beneficiaryID id.BeneficiaryID) (*VerificationResult, error) {
	start := time.Now()
	defer s.observe("check_verification", start)
	ctx, span := s.tracer.Start(ctx, "lifecycle.CheckVerification", trace.WithAttributes(
		attribute.String("beneficiary.id", beneficiaryID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	var outcome proof.Verification
	err := s.tx.RunInTx(ctx, beneficiaryID, func(ctx context.Context) error {
		if _, err := s.findBeneficiary(ctx, beneficiaryID); err != nil {
			return err
		}
		var err error
		outcome, err = s.workflow.CheckVerification(ctx, beneficiaryID, now)
		return err
	})
	if err != nil {
		return nil, s.fail(span, translate(err, "failed to check verification"))
	}

	if outcome.Completed {
		if s.metrics != nil {
			s.metrics.IncrementVerificationCompleted()
		}
		s.audit(ctx, "proof_verified", beneficiaryID, "proof_id", outcome.Proof.ID.String())
	}
	if len(outcome.Released) > 0 {
		fee, net := releasedAmounts(outcome.Released)
		if s.metrics != nil {
			s.metrics.RecordRelease(net, fee)
		}
		s.audit(ctx, "funds_released", beneficiaryID,
			"admin_fee", fee.StringFixed(2),
			"released", net.StringFixed(2),
		)
	}
	span.SetAttributes(
		attribute.Bool("verification.completed", outcome.Completed),
		attribute.Bool("funds.released", len(outcome.Released) > 0),
	)

	st, err := s.GetStatus(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{Status: st, Completed: outcome.Completed, Released: outcome.Released}, nil
}

// SweepVerifications checks every proof that is due at now. Errors for one
// beneficiary are logged and do not stop the sweep. It returns how many
// verifications completed.
func (s *Service) SweepVerifications(ctx context.Context, now time.Time) (int, error) {
	ctx = requestcontext.WithTime(ctx, now)
	due, err := s.proofs.ListDue(ctx, now)
	if err != nil {
		return 0, translate(err, "failed to list due proofs")
	}
	completed := 0
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		res, err := s.CheckVerification(ctx, p.BeneficiaryID)
		if err != nil {
			s.logger.ErrorContext(ctx, "verification sweep failed for beneficiary",
				"beneficiary_id", p.BeneficiaryID.String(),
				"error", err,
			)
			continue
		}
		if res.Completed {
			completed++
		}
	}
	return completed, nil
}

// EntriesFor returns one beneficiary's ledger.
func (s *Service) EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error) {
	if _, err := s.findBeneficiary(ctx, beneficiaryID); err != nil {
		return nil, err
	}
	entries, err := s.ledger.EntriesFor(ctx, beneficiaryID)
	if err != nil {
		return nil, translate(err, "failed to read ledger")
	}
	return entries, nil
}

// AllEntries returns the whole ledger in sequence order.
func (s *Service) AllEntries(ctx context.Context) ([]ledger.Entry, error) {
	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, translate(err, "failed to read ledger")
	}
	return entries, nil
}

func (s *Service) findBeneficiary(ctx context.Context, beneficiaryID id.BeneficiaryID) (*beneficiary.Beneficiary, error) {
	b, err := s.beneficiaries.FindByID(ctx, beneficiaryID)
	if err != nil {
		return nil, translate(err, "failed to load beneficiary")
	}
	return b, nil
}

func statusOf(b *beneficiary.Beneficiary, entries []ledger.Entry) *Status {
	f := ledger.Project(entries)
	return &Status{
		Beneficiary: b,
		State:       lifecycle.Derive(b.RequiredAmount, f),
		FundedTotal: f.Funded,
		Remaining:   f.Remaining(b.RequiredAmount),
		AdminFee:    f.AdminFee,
		Released:    f.Released,
	}
}

func releasedAmounts(entries []ledger.Entry) (fee, net decimal.Decimal) {
	for _, e := range entries {
		switch e.Kind {
		case ledger.KindAdminFee:
			fee = fee.Add(e.Amount.Decimal)
		case ledger.KindFundsReleased:
			net = net.Add(e.Amount.Decimal)
		}
	}
	return fee, net
}

// translate gives every error leaving the controller a domain code.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "beneficiary not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodePersistence, msg)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}

func (s *Service) audit(ctx context.Context, event string, beneficiaryID id.BeneficiaryID, attrs ...any) {
	args := append([]any{
		"event", event,
		"log_type", "audit",
		"beneficiary_id", beneficiaryID.String(),
		"request_id", requestcontext.RequestID(ctx),
	}, attrs...)
	s.logger.InfoContext(ctx, event, args...)
}

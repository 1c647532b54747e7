package handler

//go:generate mockgen -source=handler.go -destination=mocks/lifecycle-mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"trustchain/internal/beneficiary"
	"trustchain/internal/ledger"
	"trustchain/internal/lifecycle/service"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	authmw "trustchain/pkg/platform/middleware/auth"
	"trustchain/pkg/platform/httputil"
	"trustchain/pkg/requestcontext"
)

// IdempotencyHeader carries the client's retry key on donation requests.
const IdempotencyHeader = "Idempotency-Key"

const documentField = "document"

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	CreateBeneficiary(ctx context.Context, name string, required decimal.Decimal, story string) (*beneficiary.Beneficiary, error)
	GetStatus(ctx context.Context, beneficiaryID id.BeneficiaryID) (*service.Status, error)
	ListBeneficiaries(ctx context.Context) ([]*service.Status, error)
	Donate(ctx context.Context, beneficiaryID id.BeneficiaryID, amount decimal.Decimal, idempotencyKey string) (*service.DonationResult, error)
	SubmitProof(ctx context.Context, beneficiaryID id.BeneficiaryID, upload service.Upload) (*service.Status, error)
	CheckVerification(ctx context.Context, beneficiaryID id.BeneficiaryID) (*service.VerificationResult, error)
	EntriesFor(ctx context.Context, beneficiaryID id.BeneficiaryID) ([]ledger.Entry, error)
}

// Handler serves the beneficiary lifecycle endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	jwtValidator   authmw.JWTValidator
	maxUploadBytes int64
}

// New creates a lifecycle Handler.
func New(svc Service, logger *slog.Logger, jwtValidator authmw.JWTValidator, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		service:        svc,
		logger:         logger,
		jwtValidator:   jwtValidator,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register registers the lifecycle routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/beneficiaries", h.handleList)
	r.Get("/beneficiaries/{id}", h.handleGet)
	r.Post("/beneficiaries/{id}/donations", h.handleDonate)
	r.Post("/beneficiaries/{id}/verification", h.handleCheckVerification)
	r.Get("/beneficiaries/{id}/ledger", h.handleLedger)

	r.Group(func(admin chi.Router) {
		admin.Use(authmw.RequireAdmin(h.jwtValidator, h.logger))
		admin.Post("/beneficiaries", h.handleCreate)
		admin.Post("/beneficiaries/{id}/proof", h.handleSubmitProof)
	})
}

type createRequest struct {
	Name           string          `json:"name"`
	RequiredAmount decimal.Decimal `json:"required_amount"`
	Story          string          `json:"story"`
}

type donateRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create beneficiary request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	b, err := h.service.CreateBeneficiary(ctx, req.Name, req.RequiredAmount, req.Story)
	if err != nil {
		h.writeError(ctx, w, "create beneficiary", err)
		return
	}
	h.logger.InfoContext(ctx, "beneficiary created",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.ActorID(ctx),
		"beneficiary_id", b.ID.String(),
	)
	w.Header().Set("Location", "/beneficiaries/"+b.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBeneficiaries(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list beneficiaries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"beneficiaries": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	beneficiaryID, ok := h.beneficiaryID(w, r)
	if !ok {
		return
	}
	st, err := h.service.GetStatus(r.Context(), beneficiaryID)
	if err != nil {
		h.writeError(r.Context(), w, "get beneficiary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	beneficiaryID, ok := h.beneficiaryID(w, r)
	if !ok {
		return
	}
	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid donation request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Donate(ctx, beneficiaryID, req.Amount, strings.TrimSpace(r.Header.Get(IdempotencyHeader)))
	if err != nil {
		h.writeError(ctx, w, "donate", err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, result)
}

func (h *Handler) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	beneficiaryID, ok := h.beneficiaryID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "document is too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected a multipart form with a document field"))
		return
	}
	file, header, err := r.FormFile(documentField)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read document"))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "document is too large"))
		return
	}

	st, err := h.service.SubmitProof(ctx, beneficiaryID, service.Upload{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
	})
	if err != nil {
		h.writeError(ctx, w, "submit proof", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, st)
}

func (h *Handler) handleCheckVerification(w http.ResponseWriter, r *http.Request) {
	beneficiaryID, ok := h.beneficiaryID(w, r)
	if !ok {
		return
	}
	result, err := h.service.CheckVerification(r.Context(), beneficiaryID)
	if err != nil {
		h.writeError(r.Context(), w, "check verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	beneficiaryID, ok := h.beneficiaryID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.EntriesFor(r.Context(), beneficiaryID)
	if err != nil {
		h.writeError(r.Context(), w, "list ledger entries", err)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) beneficiaryID(w http.ResponseWriter, r *http.Request) (id.BeneficiaryID, bool) {
	beneficiaryID, err := id.ParseBeneficiaryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.BeneficiaryID{}, false
	}
	return beneficiaryID, true
}

// writeError logs client errors at warn and everything else at error.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "lifecycle request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "lifecycle request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

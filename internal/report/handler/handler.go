package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustchain/internal/ledger"
	"trustchain/internal/report"
	"trustchain/pkg/platform/httputil"
	"trustchain/pkg/requestcontext"
)

// Service defines the report views the handler exposes.
type Service interface {
	Dashboard(ctx context.Context) (*report.Dashboard, error)
	Ledger(ctx context.Context) ([]ledger.Entry, error)
}

// Handler serves dashboard and ledger export endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register registers the report routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/ledger", h.handleLedger)
	r.Get("/ledger.csv", h.handleLedgerCSV)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "dashboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Ledger(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "ledger", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleLedgerCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.Ledger(ctx)
	if err != nil {
		h.fail(ctx, w, "ledger csv", err)
		return
	}
	// Render fully before writing headers so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, entries); err != nil {
		h.fail(ctx, w, "ledger csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.CSVFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.ErrorContext(ctx, "report request failed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}

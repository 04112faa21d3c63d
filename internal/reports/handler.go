package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/platform/httpx"
)

// Handler exposes reports over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/trial-balance.csv", h.trialBalanceCSV)
	r.Get("/accounts/{id}/statement", h.statement)
	r.Get("/accounts/{id}/statement.csv", h.statementCSV)
	r.Get("/reconciliation", h.reconciliation)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) trialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trial-balance.csv"`)
	if err := WriteTrialBalanceCSV(w, tb, csvLocale(r)); err != nil {
		h.logger.Error("write trial balance csv", slog.Any("error", err))
	}
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	id, from, to, ok := h.statementParams(w, r)
	if !ok {
		return
	}
	stmt, err := h.service.AccountStatement(r.Context(), id, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) statementCSV(w http.ResponseWriter, r *http.Request) {
	id, from, to, ok := h.statementParams(w, r)
	if !ok {
		return
	}
	stmt, err := h.service.AccountStatement(r.Context(), id, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="statement.csv"`)
	if err := WriteStatementCSV(w, stmt, csvLocale(r)); err != nil {
		h.logger.Error("write statement csv", slog.Any("error", err))
	}
}

func (h *Handler) reconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Reconcile(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) statementParams(w http.ResponseWriter, r *http.Request) (int64, *time.Time, *time.Time, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "account id must be numeric")
		return 0, nil, nil, false
	}
	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "from must be YYYY-MM-DD")
			return 0, nil, nil, false
		}
		from = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "to must be YYYY-MM-DD")
			return 0, nil, nil, false
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return id, from, to, true
}

func csvLocale(r *http.Request) language.Tag {
	if r.URL.Query().Get("locale") == "ar" {
		return language.Arabic
	}
	return language.English
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("reports request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

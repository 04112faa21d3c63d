package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/platform/httpx"
)

// Handler exposes stock adjustments over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/adjustments", h.listAdjustments)
	r.Post("/adjustments", h.addAdjustment)
	r.Get("/adjustments/{id}", h.getAdjustment)
	r.Post("/adjustments/{id}/archive", h.archiveAdjustment(true))
	r.Post("/adjustments/{id}/unarchive", h.archiveAdjustment(false))
}

func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": h.service.ListAdjustments(r.Context())})
}

func (h *Handler) addAdjustment(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	adjustment, err := h.service.AddAdjustment(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adjustment)
}

func (h *Handler) getAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	adjustment, err := h.service.GetAdjustment(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adjustment)
}

func (h *Handler) archiveAdjustment(archiving bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.parseID(w, r)
		if !ok {
			return
		}
		httpx.JSON(w, http.StatusOK, h.service.ArchiveAdjustment(r.Context(), id, archiving))
	}
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAdjustmentNotFound), errors.Is(err, masterdata.ErrItemNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQty), errors.Is(err, ErrInvalidKind), errors.Is(err, masterdata.ErrUnknownUnit):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrMissingCoreAccounts):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Configuration Error", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

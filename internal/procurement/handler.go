package procurement

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

// Handler exposes purchases and purchase returns over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the procurement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchases", h.listPurchases)
	r.Post("/purchases", h.addPurchase)
	r.Get("/purchases/{id}", h.getPurchase)
	r.Post("/purchases/{id}/archive", h.archivePurchase(true))
	r.Post("/purchases/{id}/unarchive", h.archivePurchase(false))
	r.Get("/returns", h.listReturns)
	r.Post("/returns", h.addReturn)
	r.Get("/returns/{id}", h.getReturn)
	r.Post("/returns/{id}/archive", h.archiveReturn(true))
	r.Post("/returns/{id}/unarchive", h.archiveReturn(false))
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"purchases": h.service.ListPurchases(r.Context())})
}

func (h *Handler) addPurchase(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	purchase, err := h.service.AddPurchase(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) archivePurchase(archiving bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.parseID(w, r)
		if !ok {
			return
		}
		httpx.JSON(w, http.StatusOK, h.service.ArchivePurchase(r.Context(), id, archiving))
	}
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"returns": h.service.ListReturns(r.Context())})
}

func (h *Handler) addReturn(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ret, err := h.service.AddReturn(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}

func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	ret, err := h.service.GetReturn(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) archiveReturn(archiving bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.parseID(w, r)
		if !ok {
			return
		}
		httpx.JSON(w, http.StatusOK, h.service.ArchiveReturn(r.Context(), id, archiving))
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
	case errors.Is(err, ErrPurchaseNotFound), errors.Is(err, ErrReturnNotFound),
		errors.Is(err, masterdata.ErrSupplierNotFound), errors.Is(err, masterdata.ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrNoLines), errors.Is(err, ErrExcessiveDiscount), errors.Is(err, masterdata.ErrUnknownUnit):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrMissingCoreAccounts):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Configuration Error", err.Error())
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

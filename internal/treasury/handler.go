package treasury

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

// Handler exposes treasury vouchers over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the treasury handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers treasury routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vouchers", h.listVouchers)
	r.Post("/vouchers", h.addVoucher)
	r.Get("/vouchers/{id}", h.getVoucher)
	r.Post("/vouchers/{id}/archive", h.archiveVoucher(true))
	r.Post("/vouchers/{id}/unarchive", h.archiveVoucher(false))
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"vouchers": h.service.ListVouchers(r.Context())})
}

func (h *Handler) addVoucher(w http.ResponseWriter, r *http.Request) {
	var req CreateVoucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	voucher, err := h.service.AddVoucher(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	voucher, err := h.service.GetVoucher(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

func (h *Handler) archiveVoucher(archiving bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.parseID(w, r)
		if !ok {
			return
		}
		httpx.JSON(w, http.StatusOK, h.service.ArchiveVoucher(r.Context(), id, archiving))
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
	case errors.Is(err, ErrVoucherNotFound), errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, masterdata.ErrCustomerNotFound), errors.Is(err, masterdata.ErrSupplierNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidKind), errors.Is(err, ErrInvalidParty):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrMissingCoreAccounts):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Configuration Error", err.Error())
	default:
		h.logger.Error("treasury request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daftar-erp/daftar/internal/platform/httpx"
)

// Handler exposes settings over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the settings handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/company", h.getCompany)
	r.Put("/company", h.updateCompany)
	r.Get("/general", h.getGeneral)
	r.Put("/general", h.updateGeneral)
	r.Get("/print", h.getPrint)
	r.Put("/print", h.updatePrint)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Company(r.Context()))
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	var info CompanyInfo
	if err := httpx.DecodeJSON(r, &info); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.service.UpdateCompany(r.Context(), info); err != nil {
		h.logger.Error("settings update failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *Handler) getGeneral(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.General(r.Context()))
}

func (h *Handler) updateGeneral(w http.ResponseWriter, r *http.Request) {
	var general GeneralSettings
	if err := httpx.DecodeJSON(r, &general); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.service.UpdateGeneral(r.Context(), general); err != nil {
		h.logger.Error("settings update failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, general)
}

func (h *Handler) getPrint(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Print(r.Context()))
}

func (h *Handler) updatePrint(w http.ResponseWriter, r *http.Request) {
	var print PrintSettings
	if err := httpx.DecodeJSON(r, &print); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.service.UpdatePrint(r.Context(), print); err != nil {
		h.logger.Error("settings update failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, print)
}

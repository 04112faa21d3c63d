package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/daftar-erp/daftar/internal/auth"
	"github.com/daftar-erp/daftar/internal/inventory"
	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/platform/httpx"
	"github.com/daftar-erp/daftar/internal/procurement"
	"github.com/daftar-erp/daftar/internal/reports"
	"github.com/daftar-erp/daftar/internal/sales"
	"github.com/daftar-erp/daftar/internal/settings"
	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
	"github.com/daftar-erp/daftar/internal/treasury"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Store          *store.Store
	AfterImport    func() error

	AuthHandler        *auth.Handler
	LedgerHandler      *ledger.Handler
	MasterDataHandler  *masterdata.Handler
	SalesHandler       *sales.Handler
	ProcurementHandler *procurement.Handler
	TreasuryHandler    *treasury.Handler
	InventoryHandler   *inventory.Handler
	ReportsHandler     *reports.Handler
	SettingsHandler    *settings.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)

		r.Route("/ledger", params.LedgerHandler.MountRoutes)
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		r.Route("/treasury", params.TreasuryHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		r.Route("/settings", params.SettingsHandler.MountRoutes)

		r.Get("/backup/export", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Disposition", `attachment; filename="daftar-backup.json"`)
			if err := params.Store.Export(w); err != nil {
				params.Logger.Error("backup export", slog.Any("error", err))
			}
		})
		r.Post("/backup/import", func(w http.ResponseWriter, req *http.Request) {
			if err := params.Store.Import(req.Body); err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Backup", err.Error())
				return
			}
			if params.AfterImport != nil {
				if err := params.AfterImport(); err != nil {
					params.Logger.Error("backup import post-processing", slog.Any("error", err))
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
			}
			httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
		})
	})

	return r
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daftar-erp/daftar/internal/app"
	"github.com/daftar-erp/daftar/internal/auth"
	"github.com/daftar-erp/daftar/internal/inventory"
	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/platform/cache"
	"github.com/daftar-erp/daftar/internal/procurement"
	"github.com/daftar-erp/daftar/internal/reports"
	"github.com/daftar-erp/daftar/internal/sales"
	"github.com/daftar-erp/daftar/internal/settings"
	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
	"github.com/daftar-erp/daftar/internal/treasury"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "daftar_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	st := store.New(cfg.DataPath, cfg.FlushDebounce, logger)

	ledgerRepo := ledger.NewRepository()
	masterRepo := masterdata.NewRepository()
	salesRepo := sales.NewRepository()
	procurementRepo := procurement.NewRepository()
	treasuryRepo := treasury.NewRepository()
	inventoryRepo := inventory.NewRepository()
	settingsRepo := settings.NewRepository()
	authRepo := auth.NewRepository()
	auditTrail := shared.NewAuditTrail(2000)

	sections := []store.Section{
		ledgerRepo.AccountsSection(),
		ledgerRepo.JournalSection(),
		masterRepo.CustomersSection(),
		masterRepo.SuppliersSection(),
		masterRepo.ItemsSection(),
		salesRepo.InvoicesSection(),
		salesRepo.ReturnsSection(),
		procurementRepo.PurchasesSection(),
		procurementRepo.ReturnsSection(),
		treasuryRepo.Section(),
		inventoryRepo.Section(),
		settingsRepo.CompanySection(),
		settingsRepo.GeneralSection(),
		settingsRepo.PrintSection(),
		authRepo.Section(),
		auditTrail,
	}
	for _, sec := range sections {
		if err := st.Register(sec); err != nil {
			logger.Error("register section", slog.String("section", sec.Name()), slog.Any("error", err))
			os.Exit(1)
		}
	}

	if err := st.Load(); err != nil {
		logger.Error("load data file", slog.Any("error", err))
		os.Exit(1)
	}

	seedAccounts := func() error {
		return st.Apply(func() error {
			created, err := ledgerRepo.EnsureSeedAccounts()
			if err != nil {
				return err
			}
			if created > 0 {
				logger.Info("seeded chart of accounts", slog.Int("created", created))
			}
			return nil
		})
	}
	if err := seedAccounts(); err != nil {
		logger.Error("seed accounts", slog.Any("error", err))
		os.Exit(1)
	}

	settingsService := settings.NewService(st, settingsRepo, auditTrail)
	authService := auth.NewService(st, authRepo, auditTrail)
	if err := authService.EnsureCredential(cfg.AdminInitialPassword); err != nil {
		logger.Error("seed admin credential", slog.Any("error", err))
		os.Exit(1)
	}

	ledgerService := ledger.NewService(st, ledgerRepo, auditTrail)
	masterService := masterdata.NewService(st, masterRepo, auditTrail)
	salesService := sales.NewService(st, salesRepo, ledgerRepo, masterRepo, settingsRepo, auditTrail)
	procurementService := procurement.NewService(st, procurementRepo, ledgerRepo, masterRepo, settingsRepo, auditTrail)
	treasuryService := treasury.NewService(st, treasuryRepo, ledgerRepo, masterRepo, auditTrail)
	inventoryService := inventory.NewService(st, inventoryRepo, ledgerRepo, masterRepo, settingsRepo, auditTrail)
	reportsService := reports.NewService(st, ledgerRepo, masterRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Store:              st,
		AfterImport:        seedAccounts,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, csrfManager),
		LedgerHandler:      ledger.NewHandler(logger, ledgerService),
		MasterDataHandler:  masterdata.NewHandler(logger, masterService),
		SalesHandler:       sales.NewHandler(logger, salesService),
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		TreasuryHandler:    treasury.NewHandler(logger, treasuryService),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		ReportsHandler:     reports.NewHandler(logger, reportsService),
		SettingsHandler:    settings.NewHandler(logger, settingsService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return st.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}

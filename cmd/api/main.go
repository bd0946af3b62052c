package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josh-kwaku/rice-ledger/api"
	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/config"
	"github.com/josh-kwaku/rice-ledger/internal/feed"
	"github.com/josh-kwaku/rice-ledger/internal/handler"
	"github.com/josh-kwaku/rice-ledger/internal/live"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
	"github.com/josh-kwaku/rice-ledger/internal/middleware"
	"github.com/josh-kwaku/rice-ledger/internal/repository"
	"github.com/josh-kwaku/rice-ledger/internal/service"
	"github.com/josh-kwaku/rice-ledger/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		var setup *config.SetupError
		if errors.As(err, &setup) {
			slog.Error(setup.Error(), "missing", setup.Missing)
		} else {
			slog.Error("failed to load config", "error", err)
		}
		os.Exit(1)
	}

	logger := logging.Init("rice-ledger-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DB(0), logger)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Up(ctx, db); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	recordRepo := repository.NewRecordRepository(db, cfg.NotifyChannel)

	c := calc.New(time.Now)
	records := service.NewRecordService(recordRepo, c)
	hub := feed.NewHub(recordRepo, logger)

	go func() {
		if err := repository.NewChangeListener(cfg.DatabaseURL, cfg.NotifyChannel, hub, logger).Start(ctx); err != nil {
			slog.Error("change listener failed", "error", err)
		}
	}()
	go service.NewLabelRefresher(records, logger, cfg.RefreshInterval()).Start(ctx)
	go sweepReceipts(ctx, recordRepo, cfg.ReceiptSweep())

	healthHandler := handler.NewHealthHandler(db)
	recordHandler := handler.NewRecordHandler(records, c)
	liveHandler := live.NewHandler(records, hub, c, cfg.WriteTimeout(), cfg.AllowedOrigins)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/v1/fields", recordHandler.Fields)
	apiMux.HandleFunc("GET /api/v1/records", recordHandler.List)
	apiMux.HandleFunc("POST /api/v1/records", recordHandler.Create)
	apiMux.HandleFunc("PATCH /api/v1/records/{id}", recordHandler.Update)
	apiMux.HandleFunc("DELETE /api/v1/records/{id}", recordHandler.Delete)
	apiMux.HandleFunc("GET /api/v1/records/export", recordHandler.Export)
	apiMux.HandleFunc("POST /api/v1/records/import", recordHandler.Import)
	apiMux.HandleFunc("GET /api/v1/stats", recordHandler.Stats)
	apiMux.HandleFunc("GET /ws", liveHandler.Serve)

	authed := middleware.Auth(cfg.JWTSecret)(middleware.Logging(apiMux))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.Spec))
	mux.Handle("/api/", authed)
	mux.Handle("GET /ws", authed)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestID(middleware.Recovery(mux)),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// sweepReceipts drops expired import receipts on every tick.
func sweepReceipts(ctx context.Context, repo *repository.RecordRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpiredReceipts(ctx)
			if err != nil {
				slog.Error("import receipt sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("import receipts expired", "count", n)
			}
		}
	}
}

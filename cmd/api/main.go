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

	"github.com/cardmesh/tokenledger/internal/api"
	"github.com/cardmesh/tokenledger/internal/config"
	"github.com/cardmesh/tokenledger/internal/infra/logging"
	"github.com/cardmesh/tokenledger/internal/infra/pgutils"
	"github.com/cardmesh/tokenledger/internal/jobs"
	"github.com/cardmesh/tokenledger/internal/services/ledger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(logging.ParseLevel(cfg.LogLevel))

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN, pgutils.PoolConfig{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ledgerSvc := ledger.New(db)

	// --- Background reconciliation ---
	reconciler := jobs.NewReconciler(ledgerSvc)

	if cfg.ReconcileSchedule != "" {
		err = reconciler.Start(ctx, cfg.ReconcileSchedule)
		if err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, ledgerSvc)

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("ledger API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}

	// Graceful path: stop the sweep, then drain the server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if cfg.ReconcileSchedule != "" {
		reconciler.Stop()
	}

	slog.Info("shutting down server")

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown srv: %w", err)
	}

	return nil
}

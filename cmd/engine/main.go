package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/smurfing-engine/internal/api"
	"github.com/rawblock/smurfing-engine/internal/config"
	"github.com/rawblock/smurfing-engine/internal/db"
	"github.com/rawblock/smurfing-engine/internal/engine"
	"github.com/rawblock/smurfing-engine/internal/heuristics"
	"github.com/rawblock/smurfing-engine/internal/ledger"
	"github.com/rawblock/smurfing-engine/internal/logger"
	"github.com/rawblock/smurfing-engine/pkg/rng"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// ─── Configuration ──────────────────────────────────────────────────
	// Everything comes from the environment, optionally seeded from .env:
	// cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("engine stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting smurfing forensics engine", zap.String("port", cfg.Port), zap.String("ginMode", cfg.GinMode))

	mode, err := rng.ParseMode(cfg.RNGMode)
	if err != nil {
		return err
	}
	rngs := rng.New(mode, cfg.RNGSeed)

	// The database is optional: without it the engine runs on uploaded or
	// preloaded CSV ledgers only.
	var store api.LedgerStore
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Warn("PostgreSQL unavailable, continuing without ledger persistence", zap.Error(err))
		} else {
			defer dbConn.Close()
			if err := dbConn.InitSchema(ctx); err != nil {
				log.Warn("DB schema init failed", zap.Error(err))
			}
			store = dbConn
		}
	}

	// Setup WebSocket Hub and the alert pipeline feeding it
	wsHub := api.NewHub(log)
	alerts := heuristics.NewAlertManager(log, api.BroadcastAlert(wsHub))
	if cfg.AlertWebhookURL != "" {
		alerts.RegisterWebhook("default", cfg.AlertWebhookURL, cfg.AlertWebhookSeverity, nil)
	}

	session := engine.NewSession(log, alerts, rngs.R(rng.SeedColors))
	if err := preload(ctx, cfg, store, session, log); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	limiter := api.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst)
	defer limiter.Stop()

	r := api.SetupRouter(api.Deps{
		Config:  cfg,
		Session: session,
		Alerts:  alerts,
		Hub:     wsHub,
		Store:   store,
		Limiter: limiter,
		Logger:  log,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wsHub.Run(gctx)
	})
	g.Go(func() error {
		log.Info("engine listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// preload loads the startup ledger: LEDGER_CSV when set, otherwise the
// database copy if one exists. A missing ledger is not an error; one can
// be uploaded through the API.
func preload(ctx context.Context, cfg *config.Config, store api.LedgerStore, session *engine.Session, log *zap.Logger) error {
	if cfg.LedgerCSV != "" {
		res, err := ledger.ParseFile(cfg.LedgerCSV, ledger.Options{ValueDecimals: cfg.ValueDecimals})
		if err != nil {
			return fmt.Errorf("preload ledger: %w", err)
		}
		if len(res.Skipped) > 0 {
			log.Warn("skipped malformed ledger rows", zap.Int("rows", len(res.Skipped)), zap.String("first", res.Skipped[0].Error()))
		}
		_, err = session.Load(cfg.LedgerCSV, res.Transactions)
		return err
	}

	if store == nil {
		return nil
	}
	txs, err := store.LoadTransfers(ctx)
	if err != nil {
		log.Warn("could not load stored ledger", zap.Error(err))
		return nil
	}
	if len(txs) == 0 {
		return nil
	}
	_, err = session.Load("database", txs)
	return err
}

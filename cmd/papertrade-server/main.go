package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/config"
	"papertrade/internal/domain"
	"papertrade/internal/events"
	"papertrade/internal/httpapi"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

func main() {
	cfgPath := "config/papertrade.yaml"
	if p := os.Getenv("PAPERTRADE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	startingCash, err := decimal.NewFromString(cfg.Platform.StartingCash)
	if err != nil {
		log.Fatalf("parsing starting cash %q: %v", cfg.Platform.StartingCash, err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The simulator always runs: it backs the market board, and it is the
	// price oracle unless live quotes are configured.
	sim := market.NewSimulator(cfg.Market.Seed)
	go sim.Run(ctx, time.Duration(cfg.Market.TickSeconds)*time.Second)

	var oracle market.Oracle = sim
	if cfg.Market.Source == "alpaca" && cfg.Alpaca.APIKey != "" {
		oracle = market.NewLiveOracle(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Market.RateLimitPerMin)
		logger.Info("using live quote source")
	}

	engine := ledger.NewEngine(st, oracle, logger)

	recorder := events.NewRecorder(logger, 256, st, events.NewArchive(cfg.Storage.DataDir))
	go recorder.Run(ctx)

	srv := httpapi.NewServer(engine, st, st, oracle, sim, recorder,
		domain.Platform(cfg.Platform.Type), startingCash, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("papertrade server listening",
			"addr", httpServer.Addr, "platform", cfg.Platform.Type)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down papertrade server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

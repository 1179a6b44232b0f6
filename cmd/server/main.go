// Package main is the entry point for the foliosim service: it serves the
// portfolio API and runs scheduled rebalances during market hours.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/foliosim/internal/config"
	"github.com/aristath/foliosim/internal/database"
	"github.com/aristath/foliosim/internal/events"
	"github.com/aristath/foliosim/internal/modules/historical"
	"github.com/aristath/foliosim/internal/modules/ledger"
	"github.com/aristath/foliosim/internal/modules/market_hours"
	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/internal/modules/runner"
	"github.com/aristath/foliosim/internal/modules/selection"
	"github.com/aristath/foliosim/internal/modules/state"
	"github.com/aristath/foliosim/internal/scheduler"
	"github.com/aristath/foliosim/internal/server"
	"github.com/aristath/foliosim/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting foliosim server")

	stateDB, err := database.New(database.Config{
		Path:    cfg.StateDBPath,
		Profile: database.ProfileLedger,
		Name:    "state",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state database")
	}
	defer stateDB.Close()

	store, err := state.NewStore(stateDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize state store")
	}

	bus := events.NewBus(log)
	history := historical.NewHistoryDB(cfg.HistoryDir, log)
	sel := selection.NewService(cfg.PicksDir, log)
	marketHours := market_hours.NewService(log)

	run := runner.NewService(
		runner.Config{
			StartingCash: cfg.StartingCash,
			ProfileName:  cfg.RiskProfile,
			Exchange:     cfg.Exchange,
			Costs: ledger.CostModel{
				FeeRate:     cfg.FeeRate,
				FeeFixed:    cfg.FeeFixed,
				SlippageBps: cfg.SlippageBps,
			},
			MinTradeCashPct: cfg.MinTradeCashPct,
		},
		store, history, sel, marketHours,
		rebalancing.NewService(log),
		bus, log,
	)

	sched := scheduler.New(log)
	rebalanceJob := scheduler.NewRebalanceJob(run, marketHours, cfg.Exchange, log)
	if err := sched.AddJob("0 * * * * *", rebalanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register rebalance job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:         log,
		Cfg:         cfg,
		Store:       store,
		Runner:      run,
		Selection:   sel,
		MarketHours: marketHours,
		Bus:         bus,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

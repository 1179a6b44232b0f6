// Package main performs one live portfolio run from the command line:
// resume state, price the book, rebalance toward the latest picks,
// persist the result.
package main

import (
	"flag"
	"fmt"
	"os"
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
	"github.com/aristath/foliosim/internal/modules/universe"
	"github.com/aristath/foliosim/pkg/logger"
)

// fallbackPicks serves the latest picks file, falling back to an equal-weight
// list over the configured universe when no picks have been generated yet.
type fallbackPicks struct {
	sel       *selection.Service
	universes *universe.Repository
	name      string
}

func (f fallbackPicks) LoadLatest() ([]selection.Pick, error) {
	picks, err := f.sel.LoadLatest()
	if err != nil || len(picks) > 0 {
		return picks, err
	}
	symbols, err := f.universes.Load(f.name)
	if err != nil || len(symbols) == 0 {
		return nil, err
	}
	w := 1.0 / float64(len(symbols))
	out := make([]selection.Pick, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, selection.Pick{Symbol: sym, Weight: w, Timestamp: time.Now().UTC()})
	}
	return out, nil
}

func main() {
	force := flag.Bool("force", false, "run even outside trading days")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

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

	var calendar runner.TradingCalendar
	if !*force {
		calendar = market_hours.NewService(log)
	}

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
		store,
		historical.NewHistoryDB(cfg.HistoryDir, log),
		fallbackPicks{
			sel:       selection.NewService(cfg.PicksDir, log),
			universes: universe.NewRepository(cfg.UniversesDir, log),
			name:      cfg.Universe,
		},
		calendar,
		rebalancing.NewService(log),
		events.NewBus(log),
		log,
	)

	res, err := run.RunOnce(time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}
	if res.Skipped {
		fmt.Println("Market closed today, nothing to do (use -force to override)")
		return
	}

	fmt.Printf("Run %s complete\n", res.RunID)
	fmt.Printf("  Equity:    %12.2f\n", res.Equity)
	fmt.Printf("  Cash:      %12.2f\n", res.Cash)
	fmt.Printf("  Positions: %12d\n", res.Positions)
	if res.Swept > 0 {
		fmt.Printf("  Stop-loss exits: %d\n", res.Swept)
	}
}

// Package main runs a historical simulation over stored daily bars and
// prints the resulting performance metrics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aristath/foliosim/internal/config"
	"github.com/aristath/foliosim/internal/domain"
	"github.com/aristath/foliosim/internal/modules/backtest"
	"github.com/aristath/foliosim/internal/modules/historical"
	"github.com/aristath/foliosim/internal/modules/ledger"
	"github.com/aristath/foliosim/internal/modules/metrics"
	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/internal/modules/scoring"
	"github.com/aristath/foliosim/internal/modules/universe"
	"github.com/aristath/foliosim/pkg/logger"
)

func main() {
	var (
		symbolsFlag  = flag.String("symbols", "", "comma-separated symbols (overrides -universe)")
		universeFlag = flag.String("universe", "", "named universe to backtest")
		profileFlag  = flag.String("profile", "balanced", "risk profile: conservative, balanced, aggressive")
		cashFlag     = flag.Float64("cash", 10000, "starting cash")
		barsFlag     = flag.Int("bars", 0, "limit history to the most recent N bars (0 = all)")
		everyFlag    = flag.Int("every", 0, "bars between rebalances (0 = profile cadence)")
		holdingsFlag = flag.Int("holdings", 10, "maximum concurrent holdings")
		feeRateFlag  = flag.Float64("fee-rate", 0, "proportional fee, e.g. 0.0005")
		feeFixedFlag = flag.Float64("fee-fixed", 0, "fixed fee per order")
		slipFlag     = flag.Float64("slippage-bps", 0, "slippage in basis points")
		jsonFlag     = flag.Bool("json", false, "emit JSON instead of text")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: "warn", Pretty: true})

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 && *universeFlag != "" {
		repo := universe.NewRepository(cfg.UniversesDir, log)
		symbols, err = repo.Load(*universeFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "universe:", err)
			os.Exit(1)
		}
	}
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols: pass -symbols or -universe")
		os.Exit(1)
	}

	history := historical.NewHistoryDB(cfg.HistoryDir, log)
	bars := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		series, err := history.GetDailyBars(sym, *barsFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "history for %s: %v\n", sym, err)
			os.Exit(1)
		}
		bars[sym] = series
	}

	engine := backtest.NewEngine(scoring.NewScorer(log), rebalancing.NewService(log), log)
	result, err := engine.Run(symbols, bars, backtest.Config{
		StartingCash:   *cashFlag,
		Profile:        *profileFlag,
		MaxHoldings:    *holdingsFlag,
		RebalanceEvery: *everyFlag,
		Costs: ledger.CostModel{
			FeeRate:     *feeRateFlag,
			FeeFixed:    *feeFixedFlag,
			SlippageBps: *slipFlag,
		},
		MinTradeCashPct: cfg.MinTradeCashPct,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "backtest:", err)
		os.Exit(1)
	}

	perf := metrics.Compute(result.EquityCurve, *cashFlag)

	if *jsonFlag {
		out := struct {
			backtest.Result
			Metrics metrics.Result `json:"metrics"`
		}{result, perf}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Printf("Backtest: %d symbols, %d bars, profile %s\n", len(symbols), result.Bars, *profileFlag)
	fmt.Printf("  Final value:   %12.2f\n", result.FinalValue)
	fmt.Printf("  Total return:  %11.2f%%\n", perf.TotalReturn*100)
	fmt.Printf("  Sharpe ratio:  %12.3f\n", perf.SharpeRatio)
	fmt.Printf("  Max drawdown:  %11.2f%%\n", perf.MaxDrawdown*100)
	fmt.Printf("  Win rate:      %11.2f%%\n", perf.WinRate*100)
}

func splitSymbols(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

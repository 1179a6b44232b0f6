// Package main scores a universe against stored history and writes a
// timestamped pick list for the live runner to consume.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aristath/foliosim/internal/config"
	"github.com/aristath/foliosim/internal/domain"
	"github.com/aristath/foliosim/internal/modules/historical"
	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/internal/modules/risk"
	"github.com/aristath/foliosim/internal/modules/scoring"
	"github.com/aristath/foliosim/internal/modules/selection"
	"github.com/aristath/foliosim/internal/modules/universe"
	"github.com/aristath/foliosim/pkg/logger"
)

func main() {
	var (
		universeFlag = flag.String("universe", "", "named universe to score (defaults to config)")
		profileFlag  = flag.String("profile", "", "risk profile (defaults to config)")
		equityFlag   = flag.Float64("equity", 0, "equity for dollar allocations (0 = skip)")
		holdingsFlag = flag.Int("holdings", 0, "maximum picks (defaults to config)")
		weightsFlag  = flag.String("weights", "score", "weighting mode: equal or score")
	)
	flag.Parse()

	var mode rebalancing.WeightMode
	switch *weightsFlag {
	case "equal":
		mode = rebalancing.WeightEqual
	case "score":
		mode = rebalancing.WeightScore
	default:
		fmt.Fprintf(os.Stderr, "unknown weighting mode %q (want equal or score)\n", *weightsFlag)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	universeName := *universeFlag
	if universeName == "" {
		universeName = cfg.Universe
	}
	profileName := *profileFlag
	if profileName == "" {
		profileName = cfg.RiskProfile
	}
	maxHoldings := *holdingsFlag
	if maxHoldings == 0 {
		maxHoldings = cfg.MaxHoldings
	}

	profile, err := risk.Lookup(profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "profile:", err)
		os.Exit(1)
	}

	repo := universe.NewRepository(cfg.UniversesDir, log)
	symbols, err := repo.Load(universeName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "universe:", err)
		os.Exit(1)
	}
	if len(symbols) == 0 {
		fmt.Fprintf(os.Stderr, "universe %q is empty\n", universeName)
		os.Exit(1)
	}

	history := historical.NewHistoryDB(cfg.HistoryDir, log)
	bars := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		series, err := history.GetDailyBars(sym, 0)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("Skipping symbol without history")
			continue
		}
		bars[sym] = series
	}

	scorer := scoring.NewScorer(log)
	candidates := scorer.ScoreUniverse(symbols, bars)
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "no scoreable symbols")
		os.Exit(1)
	}

	prices := history.LatestCloses(symbols)
	sel := selection.NewService(cfg.PicksDir, log)
	picks := sel.BuildPicks(candidates, profile, maxHoldings, mode, *equityFlag, prices)

	path, err := sel.Save(picks)
	if err != nil {
		fmt.Fprintln(os.Stderr, "save picks:", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d picks to %s\n", len(picks), path)
	for _, p := range picks {
		fmt.Printf("  %-8s score %.4f  weight %.4f", p.Symbol, p.Score, p.Weight)
		if p.AllocDollars > 0 {
			fmt.Printf("  $%.2f", p.AllocDollars)
		}
		fmt.Println()
	}
}

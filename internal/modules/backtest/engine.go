// Package backtest drives the ledger and rebalancer across historical price
// bars on a fixed cadence, producing an equity curve.
package backtest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/domain"
	"github.com/aristath/foliosim/internal/modules/ledger"
	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/internal/modules/risk"
	"github.com/aristath/foliosim/internal/modules/scoring"
)

// Config holds the parameters for one simulation run.
type Config struct {
	StartingCash    float64
	Profile         string // hard-fails on unknown names
	MaxHoldings     int
	RebalanceEvery  int // bars between rebalances; 0 derives from the profile cadence
	Costs           ledger.CostModel
	MinTradeCashPct float64
	Sink            ledger.TradeSink // optional trade audit sink
}

// Result is the outcome of a simulation run.
type Result struct {
	EquityCurve []float64 `json:"equity_curve"`
	FinalValue  float64   `json:"final_value"`
	Bars        int       `json:"bars"`
}

// Engine runs backtests. It owns the only time-stepping loop in the system;
// each bar is processed fully (rebalance, stop-loss sweep, valuation) before
// the next begins.
type Engine struct {
	scorer     *scoring.Scorer
	rebalancer *rebalancing.Service
	log        zerolog.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(scorer *scoring.Scorer, rebalancer *rebalancing.Service, log zerolog.Logger) *Engine {
	return &Engine{
		scorer:     scorer,
		rebalancer: rebalancer,
		log:        log.With().Str("service", "backtest").Logger(),
	}
}

// Run simulates the strategy over the given bar series. All series are
// aligned to the shortest available history. Returns an error only for
// configuration problems (unknown profile); degenerate data produces an
// empty curve with FinalValue = starting cash.
func (e *Engine) Run(symbols []string, bars map[string][]domain.Bar, cfg Config) (Result, error) {
	profile, err := risk.Lookup(cfg.Profile)
	if err != nil {
		return Result{}, fmt.Errorf("backtest config: %w", err)
	}

	rebalanceEvery := cfg.RebalanceEvery
	if rebalanceEvery <= 0 {
		rebalanceEvery = profile.RebalanceBars()
	}

	maxHoldings := cfg.MaxHoldings
	if maxHoldings <= 0 {
		maxHoldings = 10
	}

	// Align on the shortest series among symbols that have data at all.
	n := 0
	for _, sym := range symbols {
		series := bars[sym]
		if len(series) == 0 {
			continue
		}
		if n == 0 || len(series) < n {
			n = len(series)
		}
	}
	if n == 0 {
		return Result{EquityCurve: []float64{}, FinalValue: cfg.StartingCash}, nil
	}

	port := ledger.New(cfg.StartingCash, cfg.Costs, cfg.Sink, e.log)

	e.log.Info().
		Int("symbols", len(symbols)).
		Int("bars", n).
		Str("profile", profile.Name).
		Int("rebalance_every", rebalanceEvery).
		Msg("Starting backtest")

	curve := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		prices := make(map[string]float64, len(symbols))
		for _, sym := range symbols {
			series := bars[sym]
			if len(series) == 0 {
				continue
			}
			prices[sym] = series[len(series)-n+i].Close
		}

		if i%rebalanceEvery == 0 {
			ranked := e.scorer.ScoreUniverse(symbols, truncateTo(symbols, bars, n, i))
			if len(ranked) > maxHoldings {
				ranked = ranked[:maxHoldings]
			}

			// Equal weight across picks; the rebalancer caps each position
			// at the profile limit, so per-pick sizing ends up at
			// min(equity × maxPositionPct, equity / len(picks)).
			raw := make(rebalancing.TargetAllocation, len(ranked))
			for _, c := range ranked {
				raw[c.Symbol] = 1.0 / float64(len(ranked))
			}
			e.rebalancer.Rebalance(port, prices, raw, profile, cfg.MinTradeCashPct)
		}

		// The stop-loss sweep runs every bar against current average costs,
		// independent of the rebalance cadence.
		e.rebalancer.StopLossSweep(port, prices, profile.StopLossPct)

		curve = append(curve, port.Value(prices))
	}

	result := Result{
		EquityCurve: curve,
		FinalValue:  cfg.StartingCash,
		Bars:        len(curve),
	}
	if len(curve) > 0 {
		result.FinalValue = curve[len(curve)-1]
	}

	e.log.Info().
		Float64("final_value", result.FinalValue).
		Int("bars", result.Bars).
		Msg("Backtest complete")

	return result, nil
}

// truncateTo returns the bar map cut off at the simulated bar i so scoring
// never sees prices from the simulated future.
func truncateTo(symbols []string, bars map[string][]domain.Bar, n, i int) map[string][]domain.Bar {
	out := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		series := bars[sym]
		if len(series) == 0 {
			continue
		}
		out[sym] = series[:len(series)-n+i+1]
	}
	return out
}

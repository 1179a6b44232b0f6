// Package rebalancing converts target allocations into concrete ledger orders
// while enforcing position caps, anti-churn thresholds and stop-losses.
package rebalancing

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/modules/ledger"
	"github.com/aristath/foliosim/internal/modules/risk"
)

// Service runs rebalance passes against a ledger. It performs no I/O; price
// quotes and target weights are supplied by the caller, ledger mutations are
// strictly sequential.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "rebalancing").Logger(),
	}
}

// StopLossSweep liquidates every held position whose quote has fallen to or
// below avgCost × (1 − stopLossPct). Positions without a quote are skipped.
// Returns the number of positions liquidated.
func (s *Service) StopLossSweep(l *ledger.Ledger, prices map[string]float64, stopLossPct float64) int {
	liquidated := 0
	positions := l.Positions()
	for _, sym := range sortedSymbols(positions) {
		pos := positions[sym]
		if pos.Quantity <= 0 || pos.AvgPrice <= 0 {
			continue
		}
		px, ok := prices[sym]
		if !ok || px <= 0 {
			continue
		}
		if px <= pos.AvgPrice*(1.0-stopLossPct) {
			s.log.Info().
				Str("symbol", sym).
				Float64("price", px).
				Float64("avg_price", pos.AvgPrice).
				Float64("stop_loss_pct", stopLossPct).
				Msg("Stop-loss triggered, liquidating position")
			l.Sell(sym, px, pos.Quantity)
			liquidated++
		}
	}
	return liquidated
}

// Rebalance runs one full pass against the ledger, in this exact order:
//
//  1. Stop-loss sweep over all held positions, even ones that remain in the
//     target set.
//  2. Weight normalization and capping (NormalizeAndCap).
//  3. Exit orders for held symbols absent from the capped target set.
//  4. Entry/adjustment orders toward weight × equity, skipping deltas below
//     max(minTradeCashPct × equity, 1.0).
//
// Equity is re-read from the ledger after the sweep and after the exits, so
// later steps always see the cash freed by earlier ones.
func (s *Service) Rebalance(
	l *ledger.Ledger,
	prices map[string]float64,
	raw TargetAllocation,
	profile risk.Profile,
	minTradeCashPct float64,
) {
	s.StopLossSweep(l, prices, profile.StopLossPct)

	targets := NormalizeAndCap(raw, profile.MaxPositionPct)

	// Exit anything no longer targeted.
	positions := l.Positions()
	for _, sym := range sortedSymbols(positions) {
		pos := positions[sym]
		if pos.Quantity <= 0 {
			continue
		}
		if _, targeted := targets[sym]; targeted {
			continue
		}
		px, ok := prices[sym]
		if !ok || px <= 0 {
			continue
		}
		l.Sell(sym, px, pos.Quantity)
	}

	// Adjust toward targets against post-exit equity.
	eq := l.Value(prices)
	thresh := math.Max(minTradeCashPct*eq, 1.0)

	for _, sym := range sortedSymbols(targets) {
		px, ok := prices[sym]
		if !ok || px <= 0 {
			continue
		}

		curVal := 0.0
		if pos, held := l.Position(sym); held {
			curVal = pos.Quantity * px
		}

		tgtVal := targets[sym] * eq
		delta := tgtVal - curVal
		if math.Abs(delta) < thresh {
			continue
		}

		if delta > 0 {
			l.Buy(sym, px, delta)
			continue
		}

		sellQty := math.Abs(delta) / px
		if pos, held := l.Position(sym); held && pos.Quantity < sellQty {
			sellQty = pos.Quantity
		}
		l.Sell(sym, px, sellQty)
	}

	s.log.Debug().
		Int("targets", len(targets)).
		Float64("equity", l.Value(prices)).
		Float64("cash", l.Cash()).
		Msg("Rebalance pass complete")
}

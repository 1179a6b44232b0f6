// Package runner drives live portfolio runs: it resumes persisted state,
// prices the book, rebalances toward the latest picks, and persists the
// resulting snapshot and equity observation.
package runner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/events"
	"github.com/aristath/foliosim/internal/modules/ledger"
	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/internal/modules/risk"
	"github.com/aristath/foliosim/internal/modules/selection"
	"github.com/aristath/foliosim/internal/modules/state"
)

// PriceSource supplies the latest close for each symbol. Symbols without
// data are simply absent from the returned map.
type PriceSource interface {
	LatestCloses(symbols []string) map[string]float64
}

// PickSource supplies the most recent pick list.
type PickSource interface {
	LoadLatest() ([]selection.Pick, error)
}

// TradingCalendar answers whether a run should happen at all.
type TradingCalendar interface {
	IsTradingDay(exchange string, t time.Time) bool
}

// Config holds the runner's portfolio parameters.
type Config struct {
	StartingCash    float64
	ProfileName     string
	Exchange        string
	Costs           ledger.CostModel
	MinTradeCashPct float64
}

// Result summarizes one run.
type Result struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Skipped   bool      `json:"skipped"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
	Positions int       `json:"positions"`
	Swept     int       `json:"swept"`
}

// Service executes live runs.
type Service struct {
	cfg        Config
	store      *state.Store
	prices     PriceSource
	picks      PickSource
	calendar   TradingCalendar
	rebalancer *rebalancing.Service
	bus        *events.Bus
	log        zerolog.Logger
}

// NewService creates a runner. calendar may be nil to run regardless of
// market schedule (backfills, tests).
func NewService(
	cfg Config,
	store *state.Store,
	prices PriceSource,
	picks PickSource,
	calendar TradingCalendar,
	rebalancer *rebalancing.Service,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		prices:     prices,
		picks:      picks,
		calendar:   calendar,
		rebalancer: rebalancer,
		bus:        bus,
		log:        log.With().Str("service", "runner").Logger(),
	}
}

// RunOnce performs a single run at now. Outside trading days it is a no-op
// with Skipped set.
func (s *Service) RunOnce(now time.Time) (Result, error) {
	runID := uuid.New().String()
	res := Result{RunID: runID, Timestamp: now.UTC()}

	if s.calendar != nil && !s.calendar.IsTradingDay(s.cfg.Exchange, now) {
		s.log.Debug().Str("run_id", runID).Msg("Not a trading day, skipping run")
		res.Skipped = true
		return res, nil
	}

	// Interior resolution: a bad profile name degrades to balanced rather
	// than failing every scheduled run. CLI entry points validate with the
	// hard-fail Lookup before anything is persisted.
	profile := risk.LookupOrBalanced(s.cfg.ProfileName)

	snap, found, err := s.store.LoadSnapshot()
	if err != nil {
		return res, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !found {
		snap = state.Snapshot{Cash: s.cfg.StartingCash, Positions: map[string]ledger.Position{}}
		s.log.Info().Float64("cash", snap.Cash).Msg("No snapshot found, starting fresh")
	}

	picks, err := s.picks.LoadLatest()
	if err != nil {
		return res, fmt.Errorf("failed to load picks: %w", err)
	}

	symbols := make([]string, 0, len(picks)+len(snap.Positions))
	seen := make(map[string]bool)
	for _, p := range picks {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}
	for sym := range snap.Positions {
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}
	prices := s.prices.LatestCloses(symbols)

	sink := state.NewTradeLog(s.store)
	l := ledger.NewFromSnapshot(snap.Cash, snap.Positions, s.cfg.Costs, sink, s.log)

	res.Swept = s.rebalancer.StopLossSweep(l, prices, profile.StopLossPct)
	if res.Swept > 0 && s.bus != nil {
		s.bus.Emit(events.StopLossTriggered, "runner", map[string]interface{}{
			"run_id": runID,
			"count":  res.Swept,
		})
	}

	// An empty pick list means "no view", not "exit everything": hold the
	// current book and only take stop-loss exits.
	if len(picks) > 0 {
		s.rebalancer.Rebalance(l, prices, selection.Allocation(picks), profile, s.cfg.MinTradeCashPct)
	} else {
		s.log.Warn().Str("run_id", runID).Msg("No picks available, holding current book")
	}

	equity := l.Value(prices)
	newSnap := state.Snapshot{
		Cash:      l.Cash(),
		Positions: l.Positions(),
		Timestamp: now.UTC(),
	}
	if err := s.store.SaveSnapshot(newSnap); err != nil {
		return res, fmt.Errorf("failed to save snapshot: %w", err)
	}
	if err := s.store.SaveHistorySnapshot(newSnap); err != nil {
		s.log.Warn().Err(err).Msg("Failed to save history snapshot")
	}
	if err := s.store.AppendEquity(state.EquityPoint{Timestamp: now.UTC(), Equity: equity, Cash: l.Cash()}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to append equity point")
	}

	res.Equity = equity
	res.Cash = l.Cash()
	for _, pos := range newSnap.Positions {
		if pos.Quantity > 0 {
			res.Positions++
		}
	}

	if s.bus != nil {
		s.bus.Emit(events.RebalanceCompleted, "runner", map[string]interface{}{
			"run_id":    runID,
			"equity":    equity,
			"positions": res.Positions,
		})
		s.bus.Emit(events.EquityUpdated, "runner", map[string]interface{}{
			"run_id": runID,
			"equity": equity,
			"cash":   l.Cash(),
		})
	}

	s.log.Info().
		Str("run_id", runID).
		Float64("equity", equity).
		Float64("cash", l.Cash()).
		Int("positions", res.Positions).
		Msg("Run complete")
	return res, nil
}

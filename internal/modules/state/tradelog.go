package state

import (
	"fmt"
	"time"

	"github.com/aristath/foliosim/internal/modules/ledger"
)

// TradeLog writes executed trades to the trade_log table. It satisfies
// ledger.TradeSink, so a ledger wired with it audits every fill.
type TradeLog struct {
	store *Store
}

// NewTradeLog creates a trade log backed by the state store.
func NewTradeLog(store *Store) *TradeLog {
	return &TradeLog{store: store}
}

// Record inserts one trade row.
func (t *TradeLog) Record(trade ledger.Trade) error {
	_, err := t.store.db.Exec(
		`INSERT INTO trade_log (
			id, timestamp, side, symbol, quantity, exec_price,
			gross_notional, net_cash_delta, fee_rate, fee_fixed,
			slippage_bps, cash_after, position_qty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID,
		trade.Timestamp.UTC().Format(time.RFC3339),
		trade.Side,
		trade.Symbol,
		trade.Quantity,
		trade.ExecPrice,
		trade.GrossNotional,
		trade.NetCashDelta,
		trade.FeeRate,
		trade.FeeFixed,
		trade.SlippageBps,
		trade.CashAfter,
		trade.PositionQty,
	)
	if err != nil {
		return fmt.Errorf("failed to record trade %s: %w", trade.ID, err)
	}
	return nil
}

// Trades returns the most recent trades, newest first.
func (s *Store) Trades(limit int) ([]ledger.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, timestamp, side, symbol, quantity, exec_price,
			gross_notional, net_cash_delta, fee_rate, fee_fixed,
			slippage_bps, cash_after, position_qty
		 FROM trade_log ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade log: %w", err)
	}
	defer rows.Close()

	var trades []ledger.Trade
	for rows.Next() {
		var tr ledger.Trade
		var ts string
		if err := rows.Scan(
			&tr.ID, &ts, &tr.Side, &tr.Symbol, &tr.Quantity, &tr.ExecPrice,
			&tr.GrossNotional, &tr.NetCashDelta, &tr.FeeRate, &tr.FeeFixed,
			&tr.SlippageBps, &tr.CashAfter, &tr.PositionQty,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		tr.Timestamp, _ = time.Parse(time.RFC3339, ts)
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

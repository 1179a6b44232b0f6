// Package ledger implements portfolio cash and position accounting with a
// simple transaction-cost model (proportional fee, fixed fee, slippage).
//
// Degenerate inputs (non-positive price, quantity or cash) are silent no-ops,
// never errors. Cash can never go negative and positions can never go short.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Position represents a long holding in a single symbol.
// Quantity == 0 implies AvgPrice == 0: a fully closed position carries no
// stale cost basis.
type Position struct {
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// CostModel holds the transaction cost parameters applied to every order.
type CostModel struct {
	FeeRate     float64 // fraction of notional, e.g. 0.0005 = 5 bps
	FeeFixed    float64 // per-order fixed fee
	SlippageBps float64 // basis points applied against the execution price
}

// Trade is the audit record emitted for every executed order.
type Trade struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"ts"`
	Side          string    `json:"side"` // BUY or SELL
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"qty"`
	ExecPrice     float64   `json:"exec_px"`
	GrossNotional float64   `json:"gross_notional"`
	NetCashDelta  float64   `json:"net_cash_delta"`
	FeeRate       float64   `json:"fee_rate"`
	FeeFixed      float64   `json:"fee_fixed"`
	SlippageBps   float64   `json:"slippage_bps"`
	CashAfter     float64   `json:"cash_after"`
	PositionQty   float64   `json:"position_qty_after"`
}

// TradeSink receives executed trades. The contract is best-effort: a sink
// error never fails or rolls back the trade, it only increments the ledger's
// sink error counter.
type TradeSink interface {
	Record(trade Trade) error
}

// Ledger owns cash and positions and executes simulated orders.
// It performs no I/O of its own; persistence and audit logging are delegated
// to collaborators. Not safe for concurrent use.
type Ledger struct {
	cash      float64
	positions map[string]Position
	costs     CostModel
	sink      TradeSink
	sinkErrs  int64
	log       zerolog.Logger
}

// New creates a ledger with starting cash. Negative cost parameters are
// clamped to zero. sink may be nil to disable trade auditing.
func New(cash float64, costs CostModel, sink TradeSink, log zerolog.Logger) *Ledger {
	return &Ledger{
		cash:      cash,
		positions: make(map[string]Position),
		costs:     clampCosts(costs),
		sink:      sink,
		log:       log.With().Str("component", "ledger").Logger(),
	}
}

// NewFromSnapshot creates a ledger from previously persisted cash and
// positions, used by the live runner to resume state between invocations.
func NewFromSnapshot(cash float64, positions map[string]Position, costs CostModel, sink TradeSink, log zerolog.Logger) *Ledger {
	l := New(cash, costs, sink, log)
	for sym, pos := range positions {
		l.positions[sym] = pos
	}
	return l
}

func clampCosts(c CostModel) CostModel {
	if c.FeeRate < 0 {
		c.FeeRate = 0
	}
	if c.FeeFixed < 0 {
		c.FeeFixed = 0
	}
	if c.SlippageBps < 0 {
		c.SlippageBps = 0
	}
	return c
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Costs returns the cost model in effect.
func (l *Ledger) Costs() CostModel {
	return l.costs
}

// Position returns the holding for a symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	pos, ok := l.positions[symbol]
	return pos, ok
}

// Positions returns a copy of all open holdings keyed by symbol.
func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for sym, pos := range l.positions {
		out[sym] = pos
	}
	return out
}

// SinkErrors returns the number of audit-sink failures swallowed so far.
func (l *Ledger) SinkErrors() int64 {
	return l.sinkErrs
}

// Value computes total equity: cash plus mark-to-market value of all
// positions. A position with no quote is valued at its average cost
// (stale-price degradation, not an error).
func (l *Ledger) Value(prices map[string]float64) float64 {
	eq := l.cash
	for sym, pos := range l.positions {
		px, ok := prices[sym]
		if !ok {
			px = pos.AvgPrice
		}
		eq += pos.Quantity * px
	}
	return eq
}

// Buy spends up to amountCash on symbol at the quoted price. Slippage works
// against the buyer and fees reduce the acquired quantity; cash is debited by
// the full capped spend. Orders that cannot cover the fixed fee are skipped.
//
// The average cost blend uses the quoted price, not the execution price, so
// the recorded cost basis is insulated from slippage and fees. Stop-loss
// triggers therefore measure against an optimistic basis.
func (l *Ledger) Buy(symbol string, price, amountCash float64) {
	if amountCash <= 0 || price <= 0 {
		return
	}
	spend := amountCash
	if l.cash < spend {
		spend = l.cash
	}

	execPx := price * (1.0 + l.costs.SlippageBps/10_000.0)
	denom := execPx * (1.0 + l.costs.FeeRate)
	if denom <= 0 {
		return
	}
	if spend <= l.costs.FeeFixed {
		return
	}

	qty := (spend - l.costs.FeeFixed) / denom
	l.cash -= spend

	pos := l.positions[symbol]
	newQty := pos.Quantity + qty
	if newQty > 0 {
		pos.AvgPrice = (pos.AvgPrice*pos.Quantity + price*qty) / newQty
	} else {
		pos.AvgPrice = 0
	}
	pos.Quantity = newQty
	l.positions[symbol] = pos

	l.recordTrade("BUY", symbol, qty, execPx, qty*execPx, -spend)
}

// Sell disposes up to qty of symbol at the quoted price. Slippage works
// against the seller and net proceeds are floored at zero so a fee-heavy
// micro-trade can never debit cash. The average cost is reset to zero exactly
// when the position is fully closed.
func (l *Ledger) Sell(symbol string, price, qty float64) {
	if qty <= 0 || price <= 0 {
		return
	}
	pos, ok := l.positions[symbol]
	if !ok || pos.Quantity <= 0 {
		return
	}

	sellQty := qty
	if pos.Quantity < sellQty {
		sellQty = pos.Quantity
	}

	execPx := price * (1.0 - l.costs.SlippageBps/10_000.0)
	gross := sellQty * execPx
	proceeds := gross*(1.0-l.costs.FeeRate) - l.costs.FeeFixed
	if proceeds < 0 {
		proceeds = 0
	}

	l.cash += proceeds
	pos.Quantity -= sellQty
	if pos.Quantity <= 0 {
		pos.Quantity = 0
		pos.AvgPrice = 0
	}
	l.positions[symbol] = pos

	l.recordTrade("SELL", symbol, sellQty, execPx, gross, proceeds)
}

// recordTrade emits the audit record to the sink. Sink failures are counted
// and logged but never propagate; the trade has already been applied.
func (l *Ledger) recordTrade(side, symbol string, qty, execPx, gross, netCashDelta float64) {
	l.log.Debug().
		Str("side", side).
		Str("symbol", symbol).
		Float64("qty", qty).
		Float64("exec_px", execPx).
		Float64("cash_after", l.cash).
		Msg("Trade executed")

	if l.sink == nil {
		return
	}

	trade := Trade{
		ID:            uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		Side:          side,
		Symbol:        symbol,
		Quantity:      qty,
		ExecPrice:     execPx,
		GrossNotional: gross,
		NetCashDelta:  netCashDelta,
		FeeRate:       l.costs.FeeRate,
		FeeFixed:      l.costs.FeeFixed,
		SlippageBps:   l.costs.SlippageBps,
		CashAfter:     l.cash,
		PositionQty:   l.positions[symbol].Quantity,
	}

	if err := l.sink.Record(trade); err != nil {
		l.sinkErrs++
		l.log.Warn().Err(err).Str("symbol", symbol).Msg("Trade audit sink failed, trade kept")
	}
}

package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/foliosim/pkg/logger"
)

func newTestLedger(cash float64, costs CostModel) *Ledger {
	log := logger.New(logger.Config{Level: "error"})
	return New(cash, costs, nil, log)
}

func TestValue_FallsBackToAvgPriceWithoutQuote(t *testing.T) {
	l := newTestLedger(1000, CostModel{})
	l.Buy("AAA", 100, 500)

	pos, ok := l.Position("AAA")
	require.True(t, ok)
	require.Greater(t, pos.Quantity, 0.0)

	// No quote for AAA: position marked at its average cost.
	withQuote := l.Value(map[string]float64{"AAA": 100})
	withoutQuote := l.Value(map[string]float64{})
	assert.InDelta(t, withQuote, withoutQuote, 1e-9)
}

func TestBuy_DegenerateInputsAreNoOps(t *testing.T) {
	tests := []struct {
		name   string
		price  float64
		amount float64
	}{
		{"zero price", 0, 100},
		{"negative price", -5, 100},
		{"zero cash", 50, 0},
		{"negative cash", 50, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(1000, CostModel{})
			l.Buy("AAA", tt.price, tt.amount)

			assert.Equal(t, 1000.0, l.Cash())
			_, ok := l.Position("AAA")
			assert.False(t, ok)
		})
	}
}

func TestBuy_SpendCappedAtAvailableCash(t *testing.T) {
	l := newTestLedger(100, CostModel{})
	l.Buy("AAA", 10, 1_000_000)

	assert.Equal(t, 0.0, l.Cash())
	pos, _ := l.Position("AAA")
	assert.InDelta(t, 10.0, pos.Quantity, 1e-9)
}

func TestBuy_SkippedWhenSpendCannotCoverFixedFee(t *testing.T) {
	l := newTestLedger(1000, CostModel{FeeFixed: 5})
	l.Buy("AAA", 10, 5)

	assert.Equal(t, 1000.0, l.Cash())
	_, ok := l.Position("AAA")
	assert.False(t, ok)
}

func TestBuy_AvgPriceBlendsAtQuotedPrice(t *testing.T) {
	// With slippage the execution price is worse than the quote, but the
	// recorded cost basis must use the quoted price.
	l := newTestLedger(10_000, CostModel{SlippageBps: 50})
	l.Buy("AAA", 100, 1000)

	pos, ok := l.Position("AAA")
	require.True(t, ok)
	assert.InDelta(t, 100.0, pos.AvgPrice, 1e-9)

	// Second buy at a higher quote blends quantity-weighted.
	l.Buy("AAA", 200, 1000)
	pos, _ = l.Position("AAA")
	assert.Greater(t, pos.AvgPrice, 100.0)
	assert.Less(t, pos.AvgPrice, 200.0)
}

func TestSell_DegenerateInputsAreNoOps(t *testing.T) {
	l := newTestLedger(1000, CostModel{})
	l.Buy("AAA", 100, 500)
	cashBefore := l.Cash()
	posBefore, _ := l.Position("AAA")

	l.Sell("AAA", 0, 1)    // zero price
	l.Sell("AAA", -10, 1)  // negative price
	l.Sell("AAA", 100, 0)  // zero qty
	l.Sell("AAA", 100, -2) // negative qty
	l.Sell("BBB", 100, 1)  // no position

	assert.Equal(t, cashBefore, l.Cash())
	posAfter, _ := l.Position("AAA")
	assert.Equal(t, posBefore, posAfter)
}

func TestSell_CappedAtHeldQuantityAndZeroesBasis(t *testing.T) {
	l := newTestLedger(1000, CostModel{})
	l.Buy("AAA", 100, 500)
	pos, _ := l.Position("AAA")

	// Request far more than held: no shorting.
	l.Sell("AAA", 100, pos.Quantity*100)

	pos, _ = l.Position("AAA")
	assert.Equal(t, 0.0, pos.Quantity)
	assert.Equal(t, 0.0, pos.AvgPrice)
}

func TestSell_NetProceedsNeverNegative(t *testing.T) {
	l := newTestLedger(1000, CostModel{FeeFixed: 50})
	l.Buy("AAA", 100, 200)
	cashBefore := l.Cash()

	// Micro-trade whose gross is below the fixed fee: proceeds floor at zero,
	// cash must not decrease.
	l.Sell("AAA", 100, 0.001)
	assert.GreaterOrEqual(t, l.Cash(), cashBefore)
}

func TestRoundTrip_ZeroFrictionRestoresCash(t *testing.T) {
	l := newTestLedger(10_000, CostModel{})
	l.Buy("AAA", 123.45, 4000)
	pos, _ := l.Position("AAA")
	l.Sell("AAA", 123.45, pos.Quantity)

	assert.InDelta(t, 10_000.0, l.Cash(), 1e-6)
	pos, _ = l.Position("AAA")
	assert.Equal(t, 0.0, pos.Quantity)
	assert.Equal(t, 0.0, pos.AvgPrice)
}

func TestFriction_StrictlyReducesProceeds(t *testing.T) {
	run := func(costs CostModel) float64 {
		l := newTestLedger(10_000, costs)
		l.Buy("AAA", 100, 5000)
		pos, _ := l.Position("AAA")
		l.Sell("AAA", 100, pos.Quantity)
		return l.Cash()
	}

	frictionless := run(CostModel{})
	withFees := run(CostModel{FeeRate: 0.001})
	withSlippage := run(CostModel{SlippageBps: 10})
	withBoth := run(CostModel{FeeRate: 0.001, FeeFixed: 1, SlippageBps: 10})

	assert.Less(t, withFees, frictionless)
	assert.Less(t, withSlippage, frictionless)
	assert.Less(t, withBoth, withFees)
	assert.Less(t, withBoth, withSlippage)
}

func TestCashNeverNegative(t *testing.T) {
	l := newTestLedger(500, CostModel{FeeRate: 0.002, FeeFixed: 1, SlippageBps: 25})

	// Arbitrary hostile call sequence.
	l.Buy("AAA", 100, 1e9)
	l.Buy("BBB", 3, 400)
	l.Sell("AAA", 90, 1e9)
	l.Buy("CCC", 0.01, 100)
	l.Sell("BBB", 0.0001, 1e9)
	l.Buy("AAA", 55, 1e9)
	l.Sell("CCC", 5, 1e9)

	assert.GreaterOrEqual(t, l.Cash(), 0.0)
	for sym, pos := range l.Positions() {
		assert.GreaterOrEqual(t, pos.Quantity, 0.0, sym)
		if pos.Quantity == 0 {
			assert.Equal(t, 0.0, pos.AvgPrice, sym)
		}
	}
}

func TestNegativeCostParamsClampedToZero(t *testing.T) {
	l := newTestLedger(1000, CostModel{FeeRate: -1, FeeFixed: -2, SlippageBps: -3})
	costs := l.Costs()
	assert.Equal(t, CostModel{}, costs)
}

type failingSink struct {
	calls int
}

func (s *failingSink) Record(Trade) error {
	s.calls++
	return errors.New("disk full")
}

func TestSinkFailureNeverRollsBackTrade(t *testing.T) {
	sink := &failingSink{}
	log := logger.New(logger.Config{Level: "error"})
	l := New(1000, CostModel{}, sink, log)

	l.Buy("AAA", 100, 500)

	pos, ok := l.Position("AAA")
	require.True(t, ok)
	assert.Greater(t, pos.Quantity, 0.0)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, int64(1), l.SinkErrors())
}

type capturingSink struct {
	trades []Trade
}

func (s *capturingSink) Record(tr Trade) error {
	s.trades = append(s.trades, tr)
	return nil
}

func TestTradeAuditRecordShape(t *testing.T) {
	sink := &capturingSink{}
	log := logger.New(logger.Config{Level: "error"})
	costs := CostModel{FeeRate: 0.0005, FeeFixed: 0.5, SlippageBps: 2}
	l := New(10_000, costs, sink, log)

	l.Buy("AAA", 100, 2000)
	pos, _ := l.Position("AAA")
	l.Sell("AAA", 110, pos.Quantity/2)

	require.Len(t, sink.trades, 2)

	buy := sink.trades[0]
	assert.NotEmpty(t, buy.ID)
	assert.Equal(t, "BUY", buy.Side)
	assert.Equal(t, "AAA", buy.Symbol)
	assert.InDelta(t, 100*(1+2.0/10_000), buy.ExecPrice, 1e-9)
	assert.InDelta(t, -2000, buy.NetCashDelta, 1e-9)
	assert.Equal(t, costs.FeeRate, buy.FeeRate)
	assert.Equal(t, l.Costs().SlippageBps, buy.SlippageBps)

	sell := sink.trades[1]
	assert.Equal(t, "SELL", sell.Side)
	assert.InDelta(t, 110*(1-2.0/10_000), sell.ExecPrice, 1e-9)
	assert.Greater(t, sell.NetCashDelta, 0.0)
	assert.False(t, math.IsNaN(sell.GrossNotional))
	assert.Equal(t, sell.CashAfter, l.Cash())
}

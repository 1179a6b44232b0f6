package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/foliosim/internal/database"
	"github.com/aristath/foliosim/internal/modules/ledger"
	"github.com/aristath/foliosim/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "state.db"),
		Profile: database.ProfileStandard,
		Name:    "state",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewStore(db, logger.New(logger.Config{Level: "error"}))
	require.NoError(t, err)
	return store
}

func TestLoadSnapshotEmpty(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)

	want := Snapshot{
		Cash: 4321.50,
		Positions: map[string]ledger.Position{
			"AAPL": {Quantity: 10, AvgPrice: 150},
			"MSFT": {Quantity: 2.5, AvgPrice: 400},
		},
		Timestamp: time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveSnapshot(want))

	got, found, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, want.Cash, got.Cash, 1e-9)
	assert.Equal(t, want.Positions, got.Positions)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
}

func TestSnapshotOverwriteDropsClosedPositions(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSnapshot(Snapshot{
		Cash:      1000,
		Positions: map[string]ledger.Position{"AAPL": {Quantity: 5, AvgPrice: 100}},
		Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, store.SaveSnapshot(Snapshot{
		Cash: 1500,
		Positions: map[string]ledger.Position{
			"AAPL": {Quantity: 0, AvgPrice: 0},
			"MSFT": {Quantity: 1, AvgPrice: 300},
		},
		Timestamp: time.Now().UTC(),
	}))

	got, found, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1500, got.Cash, 1e-9)
	assert.NotContains(t, got.Positions, "AAPL")
	assert.Contains(t, got.Positions, "MSFT")
}

func TestEquityCurveOrderAndLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendEquity(EquityPoint{
			Timestamp: base.AddDate(0, 0, i),
			Equity:    10000 + float64(i)*100,
			Cash:      5000,
		}))
	}

	points, err := store.EquityCurve(3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	// Oldest-first within the most recent 3.
	assert.InDelta(t, 10200, points[0].Equity, 1e-9)
	assert.InDelta(t, 10400, points[2].Equity, 1e-9)
}

func TestTradeLogAsSink(t *testing.T) {
	store := newTestStore(t)
	sink := NewTradeLog(store)

	l := ledger.New(10000, ledger.CostModel{FeeFixed: 1}, sink, logger.New(logger.Config{Level: "error"}))
	l.Buy("AAPL", 100, 1000)
	l.Sell("AAPL", 100, 5)

	require.Zero(t, l.SinkErrors())

	trades, err := store.Trades(10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "SELL", trades[0].Side)
	assert.Equal(t, "BUY", trades[1].Side)
	assert.NotEmpty(t, trades[0].ID)
}

func TestSnapshotHistoryRoundTrip(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveHistorySnapshot(Snapshot{
			Cash:      1000 * float64(i+1),
			Positions: map[string]ledger.Position{"AAPL": {Quantity: float64(i), AvgPrice: 100}},
			Timestamp: time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}

	snaps, err := store.HistorySnapshots(2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.InDelta(t, 3000, snaps[0].Cash, 1e-9)
	assert.InDelta(t, 2000, snaps[1].Cash, 1e-9)
}

package market_hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/foliosim/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(logger.New(logger.Config{Level: "error"}))
}

func nyTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestMarketOpenDuringRegularHours(t *testing.T) {
	svc := newTestService(t)

	// Wednesday 2025-06-11
	assert.True(t, svc.IsMarketOpen("NYSE", nyTime(t, 2025, time.June, 11, 10, 0)))
	assert.False(t, svc.IsMarketOpen("NYSE", nyTime(t, 2025, time.June, 11, 9, 29)))
	assert.False(t, svc.IsMarketOpen("NYSE", nyTime(t, 2025, time.June, 11, 16, 0)))
}

func TestMarketClosedOnWeekend(t *testing.T) {
	svc := newTestService(t)

	// Saturday 2025-06-14
	assert.False(t, svc.IsMarketOpen("NYSE", nyTime(t, 2025, time.June, 14, 10, 0)))
}

func TestComputedHolidays(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name string
		ts   time.Time
	}{
		{"new year 2025", nyTime(t, 2025, time.January, 1, 10, 0)},
		{"mlk day 2025", nyTime(t, 2025, time.January, 20, 10, 0)},
		{"good friday 2025", nyTime(t, 2025, time.April, 18, 10, 0)},
		{"memorial day 2025", nyTime(t, 2025, time.May, 26, 10, 0)},
		{"independence day 2025", nyTime(t, 2025, time.July, 4, 10, 0)},
		{"labor day 2025", nyTime(t, 2025, time.September, 1, 10, 0)},
		{"thanksgiving 2025", nyTime(t, 2025, time.November, 27, 10, 0)},
		{"christmas 2025", nyTime(t, 2025, time.December, 25, 10, 0)},
		{"good friday 2026", nyTime(t, 2026, time.April, 3, 10, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, svc.IsMarketOpen("NYSE", tc.ts))
			assert.False(t, svc.IsTradingDay("NYSE", tc.ts))
		})
	}
}

func TestObservedHolidayShifts(t *testing.T) {
	svc := newTestService(t)

	// July 4 2026 is a Saturday, observed Friday July 3.
	assert.False(t, svc.IsTradingDay("NYSE", nyTime(t, 2026, time.July, 3, 10, 0)))
	// The following Monday trades normally.
	assert.True(t, svc.IsTradingDay("NYSE", nyTime(t, 2026, time.July, 6, 10, 0)))
}

func TestNextTradingDaySkipsWeekendAndHoliday(t *testing.T) {
	svc := newTestService(t)

	// Wednesday before Thanksgiving 2025 (Thu Nov 27). Friday Nov 28 trades.
	next := svc.NextTradingDay("NYSE", nyTime(t, 2025, time.November, 26, 12, 0))
	assert.Equal(t, time.November, next.Month())
	assert.Equal(t, 28, next.Day())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// Friday afternoon rolls to Monday.
	next = svc.NextTradingDay("NYSE", nyTime(t, 2025, time.June, 13, 15, 0))
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestIsActionTimeGrid(t *testing.T) {
	svc := newTestService(t)

	assert.True(t, svc.IsActionTime("NYSE", nyTime(t, 2025, time.June, 11, 10, 15)))
	assert.True(t, svc.IsActionTime("NYSE", nyTime(t, 2025, time.June, 11, 10, 30)))
	assert.False(t, svc.IsActionTime("NYSE", nyTime(t, 2025, time.June, 11, 10, 7)))
	// On the grid but market closed.
	assert.False(t, svc.IsActionTime("NYSE", nyTime(t, 2025, time.June, 14, 10, 15)))
}

func TestUnknownExchangeFallsBackToNYSE(t *testing.T) {
	svc := newTestService(t)

	ts := nyTime(t, 2025, time.June, 11, 10, 0)
	assert.Equal(t, svc.IsMarketOpen("NYSE", ts), svc.IsMarketOpen("NOPE", ts))
}

func TestAllMarketStatuses(t *testing.T) {
	svc := newTestService(t)

	statuses := svc.AllMarketStatuses(nyTime(t, 2025, time.June, 11, 10, 0))
	require.Len(t, statuses, 1) // aliases collapse to one calendar
	assert.True(t, statuses[0].IsOpen)
	assert.Equal(t, "America/New_York", statuses[0].Timezone)
}

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/foliosim/internal/domain"
	"github.com/aristath/foliosim/pkg/logger"
)

func newTestScorer() *Scorer {
	return NewScorer(logger.New(logger.Config{Level: "error"}))
}

func trendBars(start, step float64, n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	px := start
	for i := range bars {
		bars[i] = domain.Bar{
			Open:   px,
			High:   px + 0.5,
			Low:    px - 0.5,
			Close:  px,
			Volume: 1000,
		}
		px += step
	}
	return bars
}

func TestSignal_EmptyHistoryIsNeutralHold(t *testing.T) {
	s := newTestScorer()
	sig := s.Signal("AAA", nil)

	assert.Equal(t, SignalHold, sig.Action)
	assert.Equal(t, 0.5, sig.Confidence)
}

func TestSignal_ConfidenceBounds(t *testing.T) {
	s := newTestScorer()
	series := [][]domain.Bar{
		nil,
		trendBars(100, 2, 80),
		trendBars(100, -1, 80),
		trendBars(100, 0, 80),
		trendBars(1, 0.001, 5),
	}

	for _, bars := range series {
		sig := s.Signal("AAA", bars)
		assert.GreaterOrEqual(t, sig.Confidence, 0.0)
		assert.LessOrEqual(t, sig.Confidence, 1.0)
	}
}

func TestSignal_StrongUptrendIsBuy(t *testing.T) {
	s := newTestScorer()
	sig := s.Signal("AAA", trendBars(100, 3, 80))

	assert.Equal(t, SignalBuy, sig.Action)
	assert.GreaterOrEqual(t, sig.Confidence, 0.5)
}

func TestSignal_StrongDowntrendIsSell(t *testing.T) {
	s := newTestScorer()
	sig := s.Signal("AAA", trendBars(300, -3, 80))

	assert.Equal(t, SignalSell, sig.Action)
}

func TestScoreUniverse_SortedDescending(t *testing.T) {
	s := newTestScorer()
	bars := map[string][]domain.Bar{
		"UP":   trendBars(100, 3, 80),
		"DOWN": trendBars(300, -3, 80),
		"FLAT": trendBars(100, 0, 80),
	}

	ranked := s.ScoreUniverse([]string{"UP", "DOWN", "FLAT"}, bars)
	require.Len(t, ranked, 3)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
	assert.Equal(t, "UP", ranked[0].Symbol)
}

func TestScoreUniverse_BuyOutranksEqualConfidenceHold(t *testing.T) {
	s := newTestScorer()
	bars := map[string][]domain.Bar{
		"UP":   trendBars(100, 3, 80),
		"NONE": nil,
	}

	ranked := s.ScoreUniverse([]string{"NONE", "UP"}, bars)
	require.Len(t, ranked, 2)
	assert.Equal(t, "UP", ranked[0].Symbol)
}

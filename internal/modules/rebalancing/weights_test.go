package rebalancing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWeights_Equal(t *testing.T) {
	ranked := []Candidate{
		{"AAA", 0.9},
		{"BBB", 0.8},
		{"CCC", 0.7},
		{"DDD", 0.6},
	}

	picks := ComputeWeights(ranked, 2, WeightEqual)
	require.Len(t, picks, 2)
	assert.Equal(t, "AAA", picks[0].Symbol)
	assert.InDelta(t, 0.5, picks[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, picks[1].Weight, 1e-9)
}

func TestComputeWeights_Score(t *testing.T) {
	ranked := []Candidate{
		{"AAA", 3},
		{"BBB", 1},
	}

	picks := ComputeWeights(ranked, 2, WeightScore)
	require.Len(t, picks, 2)
	assert.InDelta(t, 0.75, picks[0].Weight, 1e-9)
	assert.InDelta(t, 0.25, picks[1].Weight, 1e-9)
}

func TestComputeWeights_ScoreIgnoresNegatives(t *testing.T) {
	ranked := []Candidate{
		{"AAA", 2},
		{"BBB", -1},
	}

	picks := ComputeWeights(ranked, 2, WeightScore)
	require.Len(t, picks, 2)
	assert.InDelta(t, 1.0, picks[0].Weight, 1e-9)
	assert.InDelta(t, 0.0, picks[1].Weight, 1e-9)
}

func TestComputeWeights_AllNonPositiveFallsBackToEqual(t *testing.T) {
	ranked := []Candidate{
		{"AAA", -0.2},
		{"BBB", 0},
		{"CCC", -1},
	}

	picks := ComputeWeights(ranked, 3, WeightScore)
	require.Len(t, picks, 3)
	for _, p := range picks {
		assert.InDelta(t, 1.0/3.0, p.Weight, 1e-9)
	}
}

func TestComputeWeights_Bounds(t *testing.T) {
	ranked := []Candidate{{"AAA", 1}}

	assert.Empty(t, ComputeWeights(ranked, 0, WeightEqual))
	assert.Empty(t, ComputeWeights(nil, 5, WeightEqual))
	assert.Len(t, ComputeWeights(ranked, 10, WeightEqual), 1)
}

func TestNormalizeAndCap_RescalesToOne(t *testing.T) {
	raw := TargetAllocation{"AAA": 2, "BBB": 2}
	capped := NormalizeAndCap(raw, 1.0)

	assert.InDelta(t, 0.5, capped["AAA"], 1e-9)
	assert.InDelta(t, 0.5, capped["BBB"], 1e-9)
}

func TestNormalizeAndCap_ClampsNegativeWeights(t *testing.T) {
	raw := TargetAllocation{"AAA": 1, "BBB": -5}
	capped := NormalizeAndCap(raw, 1.0)

	assert.InDelta(t, 1.0, capped["AAA"], 1e-9)
	assert.Equal(t, 0.0, capped["BBB"])
}

func TestNormalizeAndCap_AllZeroStaysZero(t *testing.T) {
	raw := TargetAllocation{"AAA": 0, "BBB": 0}
	capped := NormalizeAndCap(raw, 0.5)

	for sym, w := range capped {
		assert.Equal(t, 0.0, w, sym)
	}
}

func TestNormalizeAndCap_PerPositionCapBinds(t *testing.T) {
	raw := TargetAllocation{"AAA": 1}
	capped := NormalizeAndCap(raw, 0.05)

	// Never rescaled back up: residual cash is expected.
	assert.InDelta(t, 0.05, capped["AAA"], 1e-9)
}

func TestNormalizeAndCap_NeverExceedsCapNorOne(t *testing.T) {
	raws := []TargetAllocation{
		{"AAA": 10, "BBB": 0.1, "CCC": 3},
		{"AAA": 0.5, "BBB": 0.5, "CCC": 0.5, "DDD": 0.5},
		{"AAA": 1e9},
		{"AAA": -1, "BBB": 2, "CCC": 0},
	}

	for _, raw := range raws {
		for _, maxPct := range []float64{0.02, 0.05, 0.25, 1.0} {
			capped := NormalizeAndCap(raw, maxPct)
			total := 0.0
			for sym, w := range capped {
				assert.LessOrEqual(t, w, maxPct+1e-12, sym)
				assert.GreaterOrEqual(t, w, 0.0, sym)
				total += w
			}
			assert.LessOrEqual(t, total, 1.0+1e-12)
		}
	}
}

func TestTargets_FromPicks(t *testing.T) {
	picks := []WeightedPick{
		{Symbol: "AAA", Score: 1, Weight: 0.6},
		{Symbol: "BBB", Score: 0.5, Weight: 0.4},
	}

	targets := Targets(picks)
	require.Len(t, targets, 2)
	assert.Equal(t, 0.6, targets["AAA"])
	assert.Equal(t, 0.4, targets["BBB"])
}

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownProfiles(t *testing.T) {
	tests := []struct {
		name           string
		maxPositionPct float64
		stopLossPct    float64
		cadence        Cadence
	}{
		{"conservative", 0.02, 0.03, CadenceMonthly},
		{"balanced", 0.05, 0.07, CadenceBiweekly},
		{"aggressive", 0.08, 0.15, CadenceDaily},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name)
			assert.Equal(t, tt.maxPositionPct, p.MaxPositionPct)
			assert.Equal(t, tt.stopLossPct, p.StopLossPct)
			assert.Equal(t, tt.cadence, p.Rebalance)
		})
	}
}

func TestLookup_UnknownProfileFailsHard(t *testing.T) {
	_, err := Lookup("yolo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yolo")
}

func TestLookupOrBalanced_FallsBackSilently(t *testing.T) {
	p := LookupOrBalanced("yolo")
	assert.Equal(t, "balanced", p.Name)

	p = LookupOrBalanced("aggressive")
	assert.Equal(t, "aggressive", p.Name)
}

func TestRebalanceBars(t *testing.T) {
	assert.Equal(t, 21, LookupOrBalanced("conservative").RebalanceBars())
	assert.Equal(t, 10, LookupOrBalanced("balanced").RebalanceBars())
	assert.Equal(t, 1, LookupOrBalanced("aggressive").RebalanceBars())
}

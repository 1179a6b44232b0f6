// Package metrics computes performance statistics over an equity curve.
package metrics

import (
	"math"

	"github.com/aristath/foliosim/pkg/formulas"
)

// DefaultPeriodsPerYear is the annualization factor applied to the Sharpe
// ratio. 252 labels the curve as daily-cadence (US trading days per year);
// pass a different factor to ComputeWithPeriods for other cadences.
const DefaultPeriodsPerYear = 252

// minReturnStdDev is the variance floor below which per-step returns are
// treated as identical. Float rounding leaves ~1e-16 of noise between
// returns computed from a constant-growth curve; dividing by that noise
// would turn a zero-variance Sharpe into astronomical garbage.
const minReturnStdDev = 1e-12

// Result holds the performance statistics for one equity curve.
type Result struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	FinalEquity float64 `json:"final_equity"`
	NumPeriods  int     `json:"num_periods"`
}

// Compute calculates metrics for a daily-cadence equity curve.
// An empty curve yields all-zero metrics with FinalEquity = startingCash.
func Compute(equityCurve []float64, startingCash float64) Result {
	return ComputeWithPeriods(equityCurve, startingCash, DefaultPeriodsPerYear)
}

// ComputeWithPeriods calculates metrics with an explicit annualization factor
// (periods per year) for the Sharpe ratio.
func ComputeWithPeriods(equityCurve []float64, startingCash float64, periodsPerYear int) Result {
	if len(equityCurve) == 0 {
		return Result{FinalEquity: startingCash}
	}

	final := equityCurve[len(equityCurve)-1]

	totalReturn := 0.0
	if startingCash != 0 {
		totalReturn = (final - startingCash) / startingCash
	}

	rets := formulas.CalculateReturns(equityCurve)

	sharpe := 0.0
	winRate := 0.0
	if len(rets) > 0 {
		mean := formulas.Mean(rets)
		std := formulas.StdDev(rets)
		if std > minReturnStdDev {
			sharpe = mean / std * math.Sqrt(float64(periodsPerYear))
		}

		wins := 0
		for _, r := range rets {
			if r > 0 {
				wins++
			}
		}
		winRate = float64(wins) / float64(len(rets))
	}

	return Result{
		TotalReturn: totalReturn,
		SharpeRatio: sharpe,
		MaxDrawdown: formulas.CalculateMaxDrawdown(equityCurve),
		WinRate:     winRate,
		FinalEquity: final,
		NumPeriods:  len(equityCurve),
	}
}

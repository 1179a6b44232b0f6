package formulas

// CalculateMaxDrawdown calculates the maximum drawdown from a value series.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Args:
//
//	values: Array of values (equity curve or adjusted closes)
//
// Returns:
//
//	Maximum drawdown as positive fraction (0.25 = 25% loss from peak)
func CalculateMaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}

		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// CalculateMomentum calculates price momentum over a period.
// Returns the fractional change over the last `days` observations, or nil if
// the series is too short or starts at zero.
func CalculateMomentum(prices []float64, days int) *float64 {
	if len(prices) < days+1 {
		return nil
	}

	startPrice := prices[len(prices)-days-1]
	endPrice := prices[len(prices)-1]

	if startPrice == 0 {
		return nil
	}

	momentum := (endPrice - startPrice) / startPrice
	return &momentum
}

package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe ratio from periodic
// returns. riskFreeRate is annual, as a decimal; periodsPerYear is 252 for
// daily series. Returns nil when the series is too short or flat.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

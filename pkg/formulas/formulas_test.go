package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReturns(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"empty", nil, []float64{}},
		{"single value", []float64{100}, []float64{}},
		{"up and down", []float64{100, 110, 99}, []float64{0.1, -0.1}},
		{"zero predecessor skipped", []float64{0, 100}, []float64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateReturns(tt.values)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))

	returns := []float64{0.01, -0.01, 0.02, -0.02}
	want := StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, want, AnnualizedVolatility(returns), 1e-12)
}

func TestCalculateSharpeRatio(t *testing.T) {
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01}, 0.02, 252), "too short")
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02, 252), "flat series")

	returns := []float64{0.01, 0.02, -0.005, 0.015}
	got := CalculateSharpeRatio(returns, 0.02, 252)
	require.NotNil(t, got)

	periodicRf := 0.02 / 252.0
	want := (Mean(returns) - periodicRf) / StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, want, *got, 1e-12)
}

func TestCalculateMaxDrawdown(t *testing.T) {
	assert.Nil(t, CalculateMaxDrawdown([]float64{100}))

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, 0.2},
		{"deepest dip wins", []float64{100, 90, 120, 60, 110}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMaxDrawdown(tt.values)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-12)
		})
	}
}

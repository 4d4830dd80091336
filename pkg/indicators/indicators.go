// Package indicators computes technical indicators from price history.
// Providers that expose candles but not computed indicators use this to
// fill the gap locally instead of fabricating values.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

// RSI returns the latest Relative Strength Index value for the period.
func RSI(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if len(closes) < period+1 {
		return decimal.Zero, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(decimalsToFloat64(closes))
	values := helper.ChanToSlice(rsi.Compute(inputChan))
	if len(values) == 0 {
		return decimal.Zero, fmt.Errorf("RSI produced no values for period %d", period)
	}

	return decimal.NewFromFloat(values[len(values)-1]), nil
}

// SMA returns the latest Simple Moving Average value for the period.
func SMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if len(closes) < period {
		return decimal.Zero, fmt.Errorf("not enough data points for SMA: need %d, got %d", period, len(closes))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(decimalsToFloat64(closes))
	values := helper.ChanToSlice(sma.Compute(inputChan))
	if len(values) == 0 {
		return decimal.Zero, fmt.Errorf("SMA produced no values for period %d", period)
	}

	return decimal.NewFromFloat(values[len(values)-1]), nil
}

// RealizedVolatility returns the standard deviation of close-to-close
// log returns. Zero-or-negative closes are skipped.
func RealizedVolatility(closes []decimal.Decimal) (decimal.Decimal, error) {
	if len(closes) < 2 {
		return decimal.Zero, fmt.Errorf("not enough data points for volatility: need 2, got %d", len(closes))
	}

	floats := decimalsToFloat64(closes)
	returns := make([]float64, 0, len(floats)-1)
	for i := 1; i < len(floats); i++ {
		if floats[i-1] <= 0 || floats[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(floats[i]/floats[i-1]))
	}

	if len(returns) == 0 {
		return decimal.Zero, fmt.Errorf("no usable returns in %d closes", len(closes))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return decimal.NewFromFloat(math.Sqrt(variance)), nil
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

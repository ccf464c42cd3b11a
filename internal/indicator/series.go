package indicator

import (
	"math"
)

// Returns computes simple percentage returns. The result has the same length as
// closes; the first element is NaN.
func Returns(closes []float64) []float64 {
	returns := make([]float64, len(closes))
	if len(closes) == 0 {
		return returns
	}

	returns[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		returns[i] = closes[i]/closes[i-1] - 1
	}

	return returns
}

// RSISeries computes the relative strength index of every point of closes.
//
// Average gains and losses are adjusted exponential means with smoothing factor
// 1/window, weighted over the whole history up to each point rather than over the
// trailing window only. Points where the reading is undefined (the first point, and
// any point where both averages are zero) are NaN.
func RSISeries(closes []float64, window int) []float64 {
	result := make([]float64, len(closes))
	if len(closes) == 0 {
		return result
	}

	result[0] = math.NaN()

	if window <= 0 {
		for i := range result {
			result[i] = math.NaN()
		}

		return result
	}

	decay := 1 - 1/float64(window)

	var gainNum, lossNum, weight float64

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		gainNum = gain + decay*gainNum
		lossNum = loss + decay*lossNum
		weight = 1 + decay*weight

		avgGain := gainNum / weight
		avgLoss := lossNum / weight

		switch {
		case avgLoss == 0 && avgGain == 0:
			result[i] = math.NaN()
		case avgLoss == 0:
			result[i] = 100
		default:
			rs := avgGain / avgLoss
			result[i] = 100 - (100 / (1 + rs))
		}
	}

	return result
}

// VolatilitySeries computes the sample standard deviation of the trailing window
// returns at every point of closes. Points with fewer than window returns behind
// them are NaN, as are all points when window < 2.
func VolatilitySeries(closes []float64, window int) []float64 {
	returns := Returns(closes)
	result := make([]float64, len(closes))

	for i := range result {
		// returns[1..i] are defined
		if window < 2 || i < window {
			result[i] = math.NaN()

			continue
		}

		result[i] = sampleStdDev(returns[i-window+1 : i+1])
	}

	return result
}

// CumulativeReturn computes the compound return of the last window returns of
// closes: prod(1+r) - 1. It is exactly 0 when fewer than window returns exist.
func CumulativeReturn(closes []float64, window int) float64 {
	if window <= 0 || len(closes)-1 < window {
		return 0
	}

	returns := Returns(closes)
	product := 1.0

	for _, r := range returns[len(returns)-window:] {
		product *= 1 + r
	}

	return product - 1
}

func sampleStdDev(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return math.NaN()
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= n

	sumSquares := 0.0

	for _, v := range values {
		d := v - mean
		sumSquares += d * d
	}

	return math.Sqrt(sumSquares / (n - 1))
}

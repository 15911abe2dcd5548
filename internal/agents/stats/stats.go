// Package stats holds the small numeric helpers shared by the analysis agents
// and the smart alert heuristics.
package stats

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	out := talib.StdDev(xs, len(xs), 1)
	return out[len(out)-1]
}

// Slope is the least-squares slope of ys against their index 0..n-1
func Slope(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	out := talib.LinearRegSlope(ys, len(ys))
	return out[len(out)-1]
}

// Returns computes simple fractional returns p[i]/p[i-1]-1. Zero previous
// prices are skipped.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, prices[i]/prices[i-1]-1)
	}
	return out
}

// HalfMeans splits xs at len/2 and returns the mean of each half
func HalfMeans(xs []float64) (first, second float64) {
	mid := len(xs) / 2
	return Mean(xs[:mid]), Mean(xs[mid:])
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// PercentChange returns (to-from)/from*100, 0 when from is 0
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

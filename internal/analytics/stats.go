package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// sampleStd is the n-1 standard deviation. A single value has no spread.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// percentChange returns nil when there is no usable previous value.
func percentChange(prev, cur float64) *float64 {
	if prev == 0 {
		return nil
	}
	pc := Round2((cur - prev) / prev * 100)
	return &pc
}

// trailingMean averages values[i-window+1..i], using what exists at the start.
func trailingMean(values []float64, i, window int) float64 {
	from := i - window + 1
	if from < 0 {
		from = 0
	}
	return mean(values[from : i+1])
}

// leastSquares fits y = intercept + slope*x over x = 0..n-1.
func leastSquares(values []float64) (slope, intercept float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, values[0]
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(xs, values, nil, false)
	return slope, intercept
}

// minMax returns the smallest and largest of values as ints.
func minMax(values []float64) (int, int) {
	if len(values) == 0 {
		return 0, 0
	}
	return int(floats.Min(values)), int(floats.Max(values))
}

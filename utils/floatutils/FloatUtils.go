// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// MaxSlice gets the maximum value and indices of the maximum values in
// a slice of float64.
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i, value := range values[1:] {
		if value > max {
			max = value
			indices = []int{i + 1}
		} else if value == max {
			indices = append(indices, i+1)
		}
	}
	return
}

// ArgMax returns the first index of the maximum value in values
func ArgMax(values []float64) int {
	_, indices := MaxSlice(values)
	return indices[0]
}

// Softmax returns the softmax of logits. The maximum logit is
// subtracted before exponentiating.
func Softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	copy(probs, logits)
	floats.AddConst(-floats.Max(probs), probs)
	for i := range probs {
		probs[i] = math.Exp(probs[i])
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}

// PopMeanVariance returns the mean and the population variance of x.
// Both are NaN if x is empty.
func PopMeanVariance(x []float64) (mean, variance float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanVariance(x, nil)
}

// PopMeanStdDev returns the mean and the population standard deviation
// of x. Both are 0 if x is empty.
func PopMeanStdDev(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(x, nil)
}

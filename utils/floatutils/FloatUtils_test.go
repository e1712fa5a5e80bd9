package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(3, -1, 1))
	assert.Equal(t, -1.0, Clip(-3, -1, 1))
	assert.Equal(t, 0.5, ClipInterval(0.5, r1.Interval{Min: -1, Max: 1}))
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, 2, 3})
	assert.Equal(t, 3.0, max)
	assert.Equal(t, []int{1, 3}, indices)
	assert.Equal(t, 1, ArgMax([]float64{1, 3, 2, 3}))

	max, indices = MaxSlice([]float64{5})
	assert.Equal(t, 5.0, max)
	assert.Equal(t, []int{0}, indices)
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{0, math.Log(3)})
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, probs, 1e-12)

	// Large logits do not overflow
	probs = Softmax([]float64{1000, 1000})
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, probs, 1e-12)
}

func TestPopMeanVariance(t *testing.T) {
	mean, variance := PopMeanVariance([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, mean, 1e-12)
	assert.InDelta(t, 1.25, variance, 1e-12)

	mean, variance = PopMeanVariance([]float64{1e9 + 1, 1e9 + 2, 1e9 + 3,
		1e9 + 4})
	assert.InDelta(t, 1e9+2.5, mean, 1e-6)
	assert.InDelta(t, 1.25, variance, 1e-6)

	mean, std := PopMeanStdDev([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = PopMeanStdDev(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)

	mean, _ = PopMeanVariance(nil)
	assert.True(t, math.IsNaN(mean))
}

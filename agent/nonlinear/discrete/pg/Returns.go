package pg

import (
	"math"

	"github.com/samuelfneumann/pgtrain/utils/floatutils"
)

// DiscountedReturns computes the discounted return of each row of a
// batch of trajectories laid out contiguously. The return is reset at
// rows where episodeEnd is true. At rows which end a trajectory
// without ending the episode (episodeEnd true but done false), the
// return is bootstrapped with the value bootstrap.
func DiscountedReturns(rews []float64, done, episodeEnd []bool,
	gamma, bootstrap float64) []float64 {
	returns := make([]float64, len(rews))
	next := 0.0
	for i := len(rews) - 1; i >= 0; i-- {
		if episodeEnd[i] {
			next = 0.0
			if !done[i] {
				next = bootstrap
			}
		}
		next = rews[i] + gamma*next
		returns[i] = next
	}
	return returns
}

// RunningMeanStd tracks the mean and variance of a stream of batches
// of data using the parallel variance algorithm
type RunningMeanStd struct {
	Mean  float64
	Var   float64
	Count float64
}

// NewRunningMeanStd returns a RunningMeanStd with mean 0 and variance
// 1 which has not yet seen any data
func NewRunningMeanStd() *RunningMeanStd {
	return &RunningMeanStd{Mean: 0, Var: 1, Count: 0}
}

// Update updates the running statistics with a batch of data
func (r *RunningMeanStd) Update(x []float64) {
	if len(x) == 0 {
		return
	}
	batchMean, batchVar := floatutils.PopMeanVariance(x)
	batchCount := float64(len(x))

	delta := batchMean - r.Mean
	total := r.Count + batchCount

	m2 := r.Var*r.Count + batchVar*batchCount +
		delta*delta*r.Count*batchCount/total

	r.Mean += delta * batchCount / total
	r.Var = m2 / total
	r.Count = total
}

// Normalize returns (x - mean) / sqrt(var + eps) for each element of x
func (r *RunningMeanStd) Normalize(x []float64, eps float64) []float64 {
	std := math.Sqrt(r.Var + eps)
	out := make([]float64, len(x))
	for i := range x {
		out[i] = (x[i] - r.Mean) / std
	}
	return out
}

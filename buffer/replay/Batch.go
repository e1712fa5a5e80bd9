package replay

import (
	"golang.org/x/exp/rand"
)

// Batch is a batch of transitions. Observations are stored row-major,
// one row of ObsDim features per transition.
type Batch struct {
	ObsDim  int
	Obs     []float64
	Act     []int
	Rew     []float64
	Done    []bool
	ObsNext []float64

	// EpisodeEnd is true for rows which end a trajectory in the batch,
	// either because the episode ended or because the trajectory was
	// cut off by the end of the stored data
	EpisodeEnd []bool

	// Returns holds per-row returns once computed by a policy
	Returns []float64
}

// newBatch returns an empty batch with capacity for n transitions
func newBatch(obsDim, n int) *Batch {
	return &Batch{
		ObsDim:     obsDim,
		Obs:        make([]float64, 0, n*obsDim),
		Act:        make([]int, 0, n),
		Rew:        make([]float64, 0, n),
		Done:       make([]bool, 0, n),
		ObsNext:    make([]float64, 0, n*obsDim),
		EpisodeEnd: make([]bool, 0, n),
	}
}

// Len returns the number of transitions in the batch
func (b *Batch) Len() int {
	return len(b.Act)
}

// ObsAt returns the observation of row i
func (b *Batch) ObsAt(i int) []float64 {
	return b.Obs[i*b.ObsDim : (i+1)*b.ObsDim]
}

// SampleIndices returns n row indices drawn uniformly with replacement
func (b *Batch) SampleIndices(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(b.Len())
	}
	return idx
}

// Subset returns a new batch holding the rows with the given indices,
// in the order given
func (b *Batch) Subset(indices []int) *Batch {
	sub := newBatch(b.ObsDim, len(indices))
	if b.Returns != nil {
		sub.Returns = make([]float64, 0, len(indices))
	}

	for _, i := range indices {
		sub.Obs = append(sub.Obs, b.ObsAt(i)...)
		sub.ObsNext = append(sub.ObsNext,
			b.ObsNext[i*b.ObsDim:(i+1)*b.ObsDim]...)
		sub.Act = append(sub.Act, b.Act[i])
		sub.Rew = append(sub.Rew, b.Rew[i])
		sub.Done = append(sub.Done, b.Done[i])
		sub.EpisodeEnd = append(sub.EpisodeEnd, b.EpisodeEnd[i])
		if b.Returns != nil {
			sub.Returns = append(sub.Returns, b.Returns[i])
		}
	}
	return sub
}

// Minibatches splits the row indices of the batch into chunks of at
// most size rows. If shuffle is true, rows are randomly permuted
// first. The last chunk holds the remainder if size does not divide
// the batch length. A non-positive size returns a single chunk.
func (b *Batch) Minibatches(size int, shuffle bool,
	rng *rand.Rand) [][]int {
	n := b.Len()
	var idx []int
	if shuffle {
		idx = rng.Perm(n)
	} else {
		idx = make([]int, n)
		for i := range idx {
			idx[i] = i
		}
	}

	if size <= 0 || size >= n {
		return [][]int{idx}
	}

	chunks := make([][]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, idx[start:end])
	}
	return chunks
}

// Package replay implements replay buffers which store the transitions
// collected in vectorized environments and return them as batches.
package replay

import (
	"fmt"

	"golang.org/x/exp/rand"

	ts "github.com/samuelfneumann/pgtrain/timestep"
)

// Buffer is a replay buffer which can be sampled from
type Buffer interface {
	// Len returns the number of transitions stored
	Len() int

	// Reset removes all transitions
	Reset()

	// Sample returns n transitions sampled uniformly with replacement.
	// If n == 0, all transitions are returned in chronological order.
	Sample(n int) (*Batch, error)
}

// ReplayBuffer is a circular buffer of transitions with a fixed
// capacity. Once full, new transitions overwrite the oldest ones.
type ReplayBuffer struct {
	size   int
	obsDim int

	obs     []float64
	act     []int
	rew     []float64
	done    []bool
	obsNext []float64

	ptr int // Next index to write to
	n   int // Number of stored transitions

	rng *rand.Rand
}

// New returns a new ReplayBuffer of capacity size storing observations
// with obsDim features
func New(size, obsDim int, seed uint64) (*ReplayBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("new: size must be positive, have %d", size)
	}
	if obsDim <= 0 {
		return nil, fmt.Errorf("new: observation dimension must be "+
			"positive, have %d", obsDim)
	}

	return &ReplayBuffer{
		size:    size,
		obsDim:  obsDim,
		obs:     make([]float64, size*obsDim),
		act:     make([]int, size),
		rew:     make([]float64, size),
		done:    make([]bool, size),
		obsNext: make([]float64, size*obsDim),
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Add adds a transition to the buffer
func (r *ReplayBuffer) Add(t ts.Transition) error {
	if len(t.State) != r.obsDim || len(t.NextState) != r.obsDim {
		return fmt.Errorf("add: illegal observation length\n\twant(%v)"+
			"\n\thave(%v, %v)", r.obsDim, len(t.State), len(t.NextState))
	}

	start := r.ptr * r.obsDim
	copy(r.obs[start:start+r.obsDim], t.State)
	copy(r.obsNext[start:start+r.obsDim], t.NextState)
	r.act[r.ptr] = t.Action
	r.rew[r.ptr] = t.Reward
	r.done[r.ptr] = t.Done

	r.ptr = (r.ptr + 1) % r.size
	if r.n < r.size {
		r.n++
	}
	return nil
}

// Len returns the number of transitions stored in the buffer
func (r *ReplayBuffer) Len() int {
	return r.n
}

// Cap returns the capacity of the buffer
func (r *ReplayBuffer) Cap() int {
	return r.size
}

// Reset removes all transitions from the buffer
func (r *ReplayBuffer) Reset() {
	r.ptr = 0
	r.n = 0
}

// Unfinished returns whether the most recently added transition did
// not end an episode
func (r *ReplayBuffer) Unfinished() bool {
	if r.n == 0 {
		return false
	}
	last := (r.ptr - 1 + r.size) % r.size
	return !r.done[last]
}

// indices returns the buffer indices of stored transitions, oldest
// first
func (r *ReplayBuffer) indices() []int {
	idx := make([]int, r.n)
	start := 0
	if r.n == r.size {
		start = r.ptr
	}
	for i := range idx {
		idx[i] = (start + i) % r.size
	}
	return idx
}

// appendTo appends all stored transitions to b in chronological order.
// The last row of an unfinished trajectory is marked as an episode end.
func (r *ReplayBuffer) appendTo(b *Batch) {
	idx := r.indices()
	for i, j := range idx {
		start := j * r.obsDim
		b.Obs = append(b.Obs, r.obs[start:start+r.obsDim]...)
		b.ObsNext = append(b.ObsNext, r.obsNext[start:start+r.obsDim]...)
		b.Act = append(b.Act, r.act[j])
		b.Rew = append(b.Rew, r.rew[j])
		b.Done = append(b.Done, r.done[j])
		b.EpisodeEnd = append(b.EpisodeEnd, r.done[j] || i == len(idx)-1)
	}
}

// Sample returns n transitions sampled uniformly with replacement, or
// all transitions in chronological order if n == 0.
func (r *ReplayBuffer) Sample(n int) (*Batch, error) {
	return sample(r, r.obsDim, n, r.rng, r.appendTo)
}

// sample implements Sample for any buffer which can append all its
// transitions to a batch
func sample(buf Buffer, obsDim, n int, rng *rand.Rand,
	appendTo func(*Batch)) (*Batch, error) {
	if n < 0 {
		return nil, &ReplayError{Op: "sample",
			Err: fmt.Errorf("cannot sample %d transitions", n)}
	}
	if buf.Len() == 0 {
		return nil, &ReplayError{Op: "sample", Err: errEmptyBuffer}
	}

	b := newBatch(obsDim, buf.Len())
	appendTo(b)
	if n == 0 {
		return b, nil
	}
	return b.Subset(b.SampleIndices(n, rng)), nil
}

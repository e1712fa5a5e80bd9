package replay

import (
	"fmt"

	"golang.org/x/exp/rand"

	ts "github.com/samuelfneumann/pgtrain/timestep"
)

// VectorReplayBuffer holds one ReplayBuffer per environment of a
// vectorized environment so that each sub-buffer stores contiguous
// trajectories.
type VectorReplayBuffer struct {
	buffers []*ReplayBuffer
	obsDim  int
	rng     *rand.Rand
}

// NewVectorReplayBuffer returns a new VectorReplayBuffer with num
// sub-buffers, each with capacity ceil(total / num)
func NewVectorReplayBuffer(total, num, obsDim int,
	seed uint64) (*VectorReplayBuffer, error) {
	if num <= 0 {
		return nil, fmt.Errorf("newVectorReplayBuffer: number of "+
			"sub-buffers must be positive, have %d", num)
	}
	if total < num {
		return nil, fmt.Errorf("newVectorReplayBuffer: total size %d "+
			"smaller than number of sub-buffers %d", total, num)
	}

	size := (total + num - 1) / num
	buffers := make([]*ReplayBuffer, num)
	for i := range buffers {
		buf, err := New(size, obsDim, seed+uint64(i)+1)
		if err != nil {
			return nil, fmt.Errorf("newVectorReplayBuffer: %v", err)
		}
		buffers[i] = buf
	}

	return &VectorReplayBuffer{
		buffers: buffers,
		obsDim:  obsDim,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// BufferNum returns the number of sub-buffers
func (v *VectorReplayBuffer) BufferNum() int {
	return len(v.buffers)
}

// Add adds transitions[i] to sub-buffer bufferIDs[i]
func (v *VectorReplayBuffer) Add(transitions []ts.Transition,
	bufferIDs []int) error {
	if len(transitions) != len(bufferIDs) {
		return fmt.Errorf("add: have %d transitions but %d buffer ids",
			len(transitions), len(bufferIDs))
	}
	for i, id := range bufferIDs {
		if id < 0 || id >= len(v.buffers) {
			return fmt.Errorf("add: buffer id %d out of range [0, %d)", id,
				len(v.buffers))
		}
		if err := v.buffers[id].Add(transitions[i]); err != nil {
			return fmt.Errorf("add: sub-buffer %d: %v", id, err)
		}
	}
	return nil
}

// Len returns the total number of transitions stored
func (v *VectorReplayBuffer) Len() int {
	n := 0
	for _, buf := range v.buffers {
		n += buf.Len()
	}
	return n
}

// Cap returns the total capacity of all sub-buffers
func (v *VectorReplayBuffer) Cap() int {
	return len(v.buffers) * v.buffers[0].Cap()
}

// Reset removes all transitions from every sub-buffer
func (v *VectorReplayBuffer) Reset() {
	for _, buf := range v.buffers {
		buf.Reset()
	}
}

// Unfinished returns the ids of the sub-buffers whose last trajectory
// is unfinished
func (v *VectorReplayBuffer) Unfinished() []int {
	var ids []int
	for i, buf := range v.buffers {
		if buf.Unfinished() {
			ids = append(ids, i)
		}
	}
	return ids
}

// appendTo appends each sub-buffer's transitions, in chronological
// order, to b
func (v *VectorReplayBuffer) appendTo(b *Batch) {
	for _, buf := range v.buffers {
		if buf.Len() > 0 {
			buf.appendTo(b)
		}
	}
}

// Sample returns n transitions sampled uniformly with replacement, or
// all transitions if n == 0. With n == 0, the sub-buffers are
// concatenated in order of their ids.
func (v *VectorReplayBuffer) Sample(n int) (*Batch, error) {
	return sample(v, v.obsDim, n, v.rng, v.appendTo)
}

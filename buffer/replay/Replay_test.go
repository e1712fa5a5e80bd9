package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	ts "github.com/samuelfneumann/pgtrain/timestep"
)

func transition(x float64, action int, done bool) ts.Transition {
	return ts.Transition{
		State:     []float64{x, -x},
		Action:    action,
		Reward:    x,
		Done:      done,
		NextState: []float64{x + 1, -x - 1},
	}
}

func TestReplayBufferCircular(t *testing.T) {
	buf, err := New(3, 2, 1)
	require.NoError(t, err)

	_, err = buf.Sample(0)
	assert.True(t, IsEmptyBuffer(err))

	for i := 0; i < 5; i++ {
		require.NoError(t, buf.Add(transition(float64(i), i%2, i == 3)))
	}
	assert.Equal(t, 3, buf.Len())
	assert.True(t, buf.Unfinished())

	b, err := buf.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, b.Rew)
	assert.Equal(t, []float64{2, -2, 3, -3, 4, -4}, b.Obs)
	assert.Equal(t, []bool{false, true, false}, b.Done)
	assert.Equal(t, []bool{false, true, true}, b.EpisodeEnd)

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
	assert.False(t, buf.Unfinished())
}

func TestReplayBufferInvalid(t *testing.T) {
	_, err := New(0, 2, 1)
	assert.Error(t, err)

	buf, err := New(2, 2, 1)
	require.NoError(t, err)
	assert.Error(t, buf.Add(ts.Transition{State: []float64{1}}))

	require.NoError(t, buf.Add(transition(1, 0, true)))
	_, err = buf.Sample(-1)
	assert.Error(t, err)
}

func TestReplayBufferSampleN(t *testing.T) {
	buf, err := New(10, 2, 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, buf.Add(transition(float64(i), 0, false)))
	}

	b, err := buf.Sample(16)
	require.NoError(t, err)
	assert.Equal(t, 16, b.Len())
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, b.Rew[i], b.ObsAt(i)[0])
	}
}

func TestVectorReplayBuffer(t *testing.T) {
	buf, err := NewVectorReplayBuffer(5, 2, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.BufferNum())
	assert.Equal(t, 6, buf.Cap())

	require.NoError(t, buf.Add(
		[]ts.Transition{transition(1, 0, false), transition(10, 1, false)},
		[]int{0, 1},
	))
	require.NoError(t, buf.Add(
		[]ts.Transition{transition(2, 1, true)},
		[]int{0},
	))
	require.NoError(t, buf.Add(
		[]ts.Transition{transition(11, 0, false)},
		[]int{1},
	))
	assert.Equal(t, 4, buf.Len())
	assert.Equal(t, []int{1}, buf.Unfinished())

	b, err := buf.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 10, 11}, b.Rew)
	assert.Equal(t, []int{0, 1, 1, 0}, b.Act)
	assert.Equal(t, []bool{false, true, false, true}, b.EpisodeEnd)

	assert.Error(t, buf.Add([]ts.Transition{transition(1, 0, false)},
		[]int{2}))
	assert.Error(t, buf.Add([]ts.Transition{transition(1, 0, false)}, nil))

	_, err = NewVectorReplayBuffer(1, 2, 2, 1)
	assert.Error(t, err)

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
}

func TestMinibatches(t *testing.T) {
	b := newBatch(1, 5)
	for i := 0; i < 5; i++ {
		b.Obs = append(b.Obs, float64(i))
		b.ObsNext = append(b.ObsNext, float64(i))
		b.Act = append(b.Act, 0)
		b.Rew = append(b.Rew, float64(i))
		b.Done = append(b.Done, false)
		b.EpisodeEnd = append(b.EpisodeEnd, false)
	}

	chunks := b.Minibatches(2, false, nil)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, chunks)

	rng := rand.New(rand.NewSource(3))
	seen := map[int]bool{}
	for _, chunk := range b.Minibatches(2, true, rng) {
		for _, i := range chunk {
			seen[i] = true
		}
	}
	assert.Len(t, seen, 5)

	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, b.Minibatches(0, false, nil))

	b.Returns = []float64{5, 4, 3, 2, 1}
	sub := b.Subset([]int{4, 0})
	assert.Equal(t, []float64{1, 5}, sub.Returns)
	assert.Equal(t, []float64{4, 0}, sub.Obs)
}

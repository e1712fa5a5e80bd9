package collector

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/pgtrain/buffer/replay"
	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/environment/envconfig"
	"github.com/samuelfneumann/pgtrain/environment/vector"
	ts "github.com/samuelfneumann/pgtrain/timestep"
)

// constPolicy always pushes the cart in the same direction
type constPolicy struct {
	action int
	calls  int
	eval   bool
}

func (c *constPolicy) SelectAction(ts.TimeStep) (int, error) {
	c.calls++
	return c.action, nil
}
func (c *constPolicy) Eval()        { c.eval = true }
func (c *constPolicy) Train()       { c.eval = false }
func (c *constPolicy) IsEval() bool { return c.eval }

func newEnvs(t *testing.T, n int) vector.VectorEnv {
	t.Helper()
	factory, err := envconfig.Factory("CartPole-v0")
	require.NoError(t, err)

	envs := make([]env.Environment, n)
	for i := range envs {
		envs[i] = factory(uint64(i))
	}
	v, err := vector.NewDummy(envs)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

func TestCollectEpisodes(t *testing.T) {
	buf, err := replay.NewVectorReplayBuffer(2000, 4, 4, 1)
	require.NoError(t, err)
	pol := &constPolicy{action: 1}
	c, err := New(pol, newEnvs(t, 4), buf, 1)
	require.NoError(t, err)

	stats, err := c.Collect(context.Background(), Config{NEpisode: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.NEpisodes)
	assert.Len(t, stats.Rews, 6)
	assert.Len(t, stats.Lens, 6)

	// Only whole episodes are stored
	assert.Equal(t, stats.NSteps, buf.Len())
	assert.Empty(t, buf.Unfinished())

	total := 0
	for i, l := range stats.Lens {
		total += l
		// Every step gives reward 1
		assert.Equal(t, float64(l), stats.Rews[i])
	}
	assert.Equal(t, stats.NSteps, total)
	assert.Equal(t, pol.calls, stats.NSteps)
	assert.Equal(t, 6, c.CollectEpisode())
	assert.Equal(t, stats.NSteps, c.CollectStep())
	assert.Greater(t, stats.Rew, 0.0)
	assert.Equal(t, stats.Rew, stats.Len)
}

func TestCollectFewerEpisodesThanEnvs(t *testing.T) {
	c, err := New(&constPolicy{action: 0}, newEnvs(t, 4), nil, 1)
	require.NoError(t, err)

	stats, err := c.Collect(context.Background(), Config{NEpisode: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NEpisodes)
}

func TestCollectSteps(t *testing.T) {
	buf, err := replay.NewVectorReplayBuffer(1000, 3, 4, 1)
	require.NoError(t, err)
	c, err := New(&constPolicy{action: 1}, newEnvs(t, 3), buf, 1)
	require.NoError(t, err)

	stats, err := c.Collect(context.Background(), Config{NStep: 50,
		Random: true})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.NSteps, 50)
	assert.Less(t, stats.NSteps, 53)
	assert.Equal(t, stats.NSteps, buf.Len())

	// Unfinished episodes continue in the next call
	_, err = c.Collect(context.Background(), Config{NStep: 3})
	require.NoError(t, err)
	assert.Equal(t, stats.NSteps+3, c.CollectStep())

	c.ResetStat()
	assert.Equal(t, 0, c.CollectStep())
	require.NoError(t, c.Reset())
	assert.Equal(t, 0, buf.Len())
}

func TestCollectInvalid(t *testing.T) {
	c, err := New(&constPolicy{}, newEnvs(t, 2), nil, 1)
	require.NoError(t, err)

	_, err = c.Collect(context.Background(), Config{})
	assert.Error(t, err)
	_, err = c.Collect(context.Background(), Config{NStep: 1, NEpisode: 1})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Collect(ctx, Config{NStep: 10})
	assert.ErrorIs(t, err, context.Canceled)

	buf, err := replay.NewVectorReplayBuffer(10, 3, 4, 1)
	require.NoError(t, err)
	_, err = New(&constPolicy{}, newEnvs(t, 2), buf, 1)
	assert.Error(t, err)
}

func TestCollectRender(t *testing.T) {
	c, err := New(&constPolicy{action: 1}, newEnvs(t, 1), nil, 1)
	require.NoError(t, err)

	frames := 0
	stats, err := c.Collect(context.Background(), Config{
		NEpisode: 1,
		Render:   time.Nanosecond,
		Frame: func(id int, frame image.Image) error {
			assert.Equal(t, 0, id)
			assert.NotNil(t, frame)
			frames++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, stats.NSteps, frames)
}

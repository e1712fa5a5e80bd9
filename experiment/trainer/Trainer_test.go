package trainer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/pgtrain/agent"
	"github.com/samuelfneumann/pgtrain/buffer/replay"
	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/environment/envconfig"
	"github.com/samuelfneumann/pgtrain/environment/vector"
	"github.com/samuelfneumann/pgtrain/experiment/collector"
	"github.com/samuelfneumann/pgtrain/experiment/tracker"
	ts "github.com/samuelfneumann/pgtrain/timestep"
)

// stubAgent pushes the cart right and records its updates
type stubAgent struct {
	eval    bool
	updates int
	sampled []int
}

func (s *stubAgent) SelectAction(ts.TimeStep) (int, error) { return 1, nil }
func (s *stubAgent) Eval()                                 { s.eval = true }
func (s *stubAgent) Train()                                { s.eval = false }
func (s *stubAgent) IsEval() bool                          { return s.eval }

func (s *stubAgent) Update(sampleSize int, buf replay.Buffer, batchSize,
	repeat int) ([]float64, error) {
	s.updates++
	s.sampled = append(s.sampled, buf.Len())
	losses := make([]float64, repeat)
	return losses, nil
}

func newCollector(t *testing.T, a agent.Policy, n int,
	withBuffer bool) *collector.Collector {
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

	var buf *replay.VectorReplayBuffer
	if withBuffer {
		buf, err = replay.NewVectorReplayBuffer(2000, n, 4, 1)
		require.NoError(t, err)
	}
	c, err := collector.New(a, v, buf, 1)
	require.NoError(t, err)
	return c
}

func newConfig(t *testing.T, a agent.Agent) Config {
	return Config{
		Agent:             a,
		TrainCollector:    newCollector(t, a, 2, true),
		TestCollector:     newCollector(t, a, 2, false),
		MaxEpoch:          2,
		StepPerEpoch:      30,
		EpisodePerCollect: 2,
		RepeatPerCollect:  3,
		EpisodePerTest:    4,
		BatchSize:         8,
		Out:               &bytes.Buffer{},
	}
}

func TestRewardThreshold(t *testing.T) {
	stop := RewardThreshold(195)
	assert.True(t, stop(195))
	assert.True(t, stop(200))
	assert.False(t, stop(194.999))
}

func TestOnPolicy(t *testing.T) {
	a := &stubAgent{}
	cfg := newConfig(t, a)
	logger := tracker.NewScalarLogger(t.TempDir(), 1, 1, 1)
	cfg.Logger = logger
	cfg.Verbose = true

	saved := 0
	cfg.SaveBestFn = func(p agent.Policy) error {
		assert.Equal(t, a, p)
		saved++
		return nil
	}

	result, err := OnPolicy(context.Background(), cfg)
	require.NoError(t, err)

	// The initial test always gives a new best policy
	assert.GreaterOrEqual(t, saved, 1)
	assert.LessOrEqual(t, saved, 3)
	assert.Contains(t, []int{0, 1, 2}, result.BestEpoch)
	assert.Greater(t, result.BestReward, 0.0)

	assert.GreaterOrEqual(t, result.TrainStep, 2*cfg.StepPerEpoch)
	assert.Equal(t, 2*a.updates, result.TrainEpisode)
	assert.Equal(t, 3*cfg.EpisodePerTest, result.TestEpisode)
	assert.Greater(t, result.TestStep, 0)
	assert.Greater(t, result.Duration, result.TestTime)

	// Each update sees exactly the episodes of one collection
	for _, n := range a.sampled {
		assert.Greater(t, n, 0)
	}
	assert.Equal(t, 0, cfg.TrainCollector.Buffer().Len())

	assert.Len(t, logger.Data(tracker.TestReward), 3)
	assert.Len(t, logger.Data(tracker.Loss), a.updates)
	assert.Contains(t, cfg.Out.(*bytes.Buffer).String(), "Epoch #2")
}

func TestOnPolicyStopsInTrain(t *testing.T) {
	a := &stubAgent{}
	cfg := newConfig(t, a)
	cfg.TestInTrain = true
	cfg.StopFn = RewardThreshold(1)

	result, err := OnPolicy(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BestEpoch)
	assert.Equal(t, 0, a.updates)
	assert.True(t, cfg.StopFn(result.BestReward))
}

func TestOnPolicyStopFn(t *testing.T) {
	a := &stubAgent{}
	cfg := newConfig(t, a)
	cfg.StopFn = RewardThreshold(1)

	result, err := OnPolicy(context.Background(), cfg)
	require.NoError(t, err)

	// Training stops after the first epoch
	assert.Equal(t, 2*cfg.EpisodePerTest, result.TestEpisode)
	assert.Greater(t, a.updates, 0)
}

func TestOnPolicyInvalid(t *testing.T) {
	a := &stubAgent{}
	cfg := newConfig(t, a)
	cfg.StepPerCollect = 10
	_, err := OnPolicy(context.Background(), cfg)
	assert.Error(t, err)

	cfg = newConfig(t, a)
	cfg.TrainCollector = newCollector(t, a, 2, false)
	_, err = OnPolicy(context.Background(), cfg)
	assert.Error(t, err)

	cfg = newConfig(t, a)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = OnPolicy(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

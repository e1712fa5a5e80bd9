package cartpole

import (
	"math"
	"testing"

	"github.com/samuelfneumann/pgtrain/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestEnv(t *testing.T, steps int) *Discrete {
	t.Helper()
	starter := environment.NewUniformStarter(StartBounds(), 42)
	task := NewBalance(starter, steps, FailAngle)
	c, first := NewDiscrete(task, 1.0)
	require.True(t, first.First())
	return c
}

func TestStartStateWithinBounds(t *testing.T) {
	c := newTestEnv(t, 200)
	for i := 0; i < 50; i++ {
		step := c.Reset()
		for j := 0; j < step.Observation.Len(); j++ {
			assert.LessOrEqual(t, math.Abs(step.Observation.AtVec(j)), 0.05)
		}
	}
}

func TestSeedIsReproducible(t *testing.T) {
	a := newTestEnv(t, 200)
	b := newTestEnv(t, 200)
	a.Seed(7)
	b.Seed(7)
	assert.True(t, mat.Equal(a.Reset().Observation, b.Reset().Observation))
}

func TestPhysicsMatchesGym(t *testing.T) {
	c := newTestEnv(t, 200)
	c.lastStep.Observation = mat.NewVecDense(4, []float64{0, 0, 0, 0})

	step, done, err := c.Step(mat.NewVecDense(1, []float64{1}))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1.0, step.Reward)

	// From rest, only the velocities change after one Euler step
	obs := step.Observation
	assert.Equal(t, 0.0, obs.AtVec(0))
	assert.InDelta(t, 0.19512, obs.AtVec(1), 1e-4)
	assert.Equal(t, 0.0, obs.AtVec(2))
	assert.InDelta(t, -0.29268, obs.AtVec(3), 1e-4)
}

func TestIllegalAction(t *testing.T) {
	c := newTestEnv(t, 200)
	before := c.LastTimeStep()

	_, _, err := c.Step(mat.NewVecDense(1, []float64{2}))
	assert.Error(t, err)
	_, _, err = c.Step(mat.NewVecDense(1, []float64{0.5}))
	assert.Error(t, err)
	assert.Equal(t, before.Number, c.LastTimeStep().Number)
}

func TestEpisodeTerminatesWhenPoleFalls(t *testing.T) {
	c := newTestEnv(t, 200)
	push := mat.NewVecDense(1, []float64{1})

	var steps int
	for {
		step, done, err := c.Step(push)
		require.NoError(t, err)
		steps++
		if done {
			assert.True(t, step.TerminalEnd())
			break
		}
	}
	assert.Less(t, steps, 200)

	_, _, err := c.Step(push)
	assert.Error(t, err, "stepping a finished episode should fail")
}

func TestEpisodeTimesOut(t *testing.T) {
	c := newTestEnv(t, 5)
	c.lastStep.Observation = mat.NewVecDense(4, []float64{0, 0, 0, 0})

	var step = c.LastTimeStep()
	var done bool
	var err error
	for i := 0; i < 5; i++ {
		// Alternate pushes to keep the pole upright for a few steps
		step, done, err = c.Step(mat.NewVecDense(1, []float64{float64(i % 2)}))
		require.NoError(t, err)
	}
	assert.True(t, done)
	assert.True(t, step.Timeout())
	assert.Equal(t, 5, step.Number)
}

func TestRender(t *testing.T) {
	c := newTestEnv(t, 200)
	img, err := c.Render()
	require.NoError(t, err)
	assert.Equal(t, screenWidth, img.Bounds().Dx())
	assert.Equal(t, screenHeight, img.Bounds().Dy())
}

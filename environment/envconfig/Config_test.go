package envconfig

import (
	"testing"

	"github.com/samuelfneumann/pgtrain/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMakeCartPole(t *testing.T) {
	e, spec, err := Make("CartPole-v0", 1)
	require.NoError(t, err)
	assert.Equal(t, 195.0, spec.RewardThreshold)
	assert.Equal(t, 200, spec.MaxEpisodeSteps)

	n, err := e.ActionSpec().NumActions()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, e.ObservationSpec().Shape.Len())

	_, ok := e.(environment.Renderer)
	assert.True(t, ok)
}

func TestCartPoleV1EpisodeLimit(t *testing.T) {
	e, spec, err := Make("CartPole-v1", 3)
	require.NoError(t, err)
	assert.Equal(t, 475.0, spec.RewardThreshold)

	step := e.Reset()
	for i := 0; !step.Last(); i++ {
		step, _, err = e.Step(mat.NewVecDense(1, []float64{float64(i % 2)}))
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, step.Number, 500)
}

func TestMakeUnknown(t *testing.T) {
	_, _, err := Make("Pong-v4", 1)
	assert.Error(t, err)

	_, err = Factory("Pong-v4")
	assert.Error(t, err)
}

func TestFactorySeedsInstances(t *testing.T) {
	f, err := Factory("CartPole-v0")
	require.NoError(t, err)

	a, b := f(11), f(11)
	assert.True(t, mat.Equal(a.LastTimeStep().Observation,
		b.LastTimeStep().Observation))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	spec, err := Spec("CartPole-v0")
	require.NoError(t, err)
	assert.Panics(t, func() { Register(spec) })
}

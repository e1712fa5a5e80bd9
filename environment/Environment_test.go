package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/pgtrain/timestep"
)

func stepAt(obs ...float64) timestep.TimeStep {
	return timestep.New(timestep.Mid, 1, 1, mat.NewVecDense(len(obs), obs), 1)
}

func TestIntervalLimit(t *testing.T) {
	limit := NewIntervalLimit(map[int]r1.Interval{
		0: {Min: -1, Max: 1},
		2: {Min: -0.5, Max: 0.5},
	}, timestep.TerminalEnd)

	inside := stepAt(0.9, 100, -0.5)
	assert.False(t, limit.End(&inside))
	assert.True(t, inside.Mid())

	outside := stepAt(0, 0, 0.51)
	assert.True(t, limit.End(&outside))
	assert.True(t, outside.TerminalEnd())
}

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)
	assert.Equal(t, 3, limit.Limit())

	s := stepAt(0)
	s.Number = 2
	assert.False(t, limit.End(&s))

	s.Number = 3
	assert.True(t, limit.End(&s))
	assert.True(t, s.Timeout())
}

func TestNumActions(t *testing.T) {
	spec := NewSpec(mat.NewVecDense(1, nil), Action,
		mat.NewVecDense(1, []float64{0}), mat.NewVecDense(1, []float64{2}),
		Discrete)
	n, err := spec.NumActions()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	spec.Cardinality = Continuous
	_, err = spec.NumActions()
	assert.Error(t, err)
}

func TestUniformStarterSeed(t *testing.T) {
	bounds := []r1.Interval{{Min: -0.05, Max: 0.05}, {Min: 1, Max: 2}}
	a := NewUniformStarter(bounds, 5)
	b := NewUniformStarter(bounds, 6)
	b.Seed(5)

	for i := 0; i < 3; i++ {
		sa, sb := a.Start(), b.Start()
		assert.True(t, mat.Equal(sa, sb))
		assert.True(t, sa.AtVec(1) >= 1 && sa.AtVec(1) <= 2)
	}
}

package vector

import (
	"testing"

	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/environment/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func makeEnvs(t *testing.T, n int) []env.Environment {
	t.Helper()
	f, err := envconfig.Factory("CartPole-v0")
	require.NoError(t, err)

	envs := make([]env.Environment, n)
	for i := range envs {
		envs[i] = f(uint64(i))
	}
	return envs
}

func vectorEnvs(t *testing.T, n int) map[string]VectorEnv {
	dummy, err := NewDummy(makeEnvs(t, n))
	require.NoError(t, err)
	subproc, err := NewSubproc(makeEnvs(t, n))
	require.NoError(t, err)
	return map[string]VectorEnv{"dummy": dummy, "subproc": subproc}
}

func TestResetAndStep(t *testing.T) {
	for name, v := range vectorEnvs(t, 4) {
		t.Run(name, func(t *testing.T) {
			defer v.Close()
			assert.Equal(t, 4, v.Len())

			first, err := v.Reset(nil)
			require.NoError(t, err)
			require.Len(t, first, 4)
			for _, step := range first {
				assert.True(t, step.First())
			}

			steps, err := v.Step([]int{0, 1}, []int{3, 1})
			require.NoError(t, err)
			require.Len(t, steps, 2)
			for _, step := range steps {
				assert.Equal(t, 1, step.Number)
				assert.Equal(t, 1.0, step.Reward)
			}
		})
	}
}

func TestSeedingMatchesAcrossImplementations(t *testing.T) {
	vs := vectorEnvs(t, 3)
	dummy, subproc := vs["dummy"], vs["subproc"]
	defer dummy.Close()
	defer subproc.Close()

	require.NoError(t, dummy.Seed(10))
	require.NoError(t, subproc.Seed(10))

	a, err := dummy.Reset(nil)
	require.NoError(t, err)
	b, err := subproc.Reset(nil)
	require.NoError(t, err)
	for i := range a {
		assert.True(t, mat.Equal(a[i].Observation, b[i].Observation))
	}

	// Different environments get different seeds
	assert.False(t, mat.Equal(a[0].Observation, a[1].Observation))
}

func TestInvalidArguments(t *testing.T) {
	for name, v := range vectorEnvs(t, 2) {
		t.Run(name, func(t *testing.T) {
			_, err := v.Reset([]int{2})
			assert.Error(t, err)

			_, err = v.Reset([]int{0, 0})
			assert.Error(t, err)

			_, err = v.Step([]int{0}, nil)
			assert.Error(t, err, "action count must match env count")

			_, err = v.Step([]int{0, 5}, nil)
			assert.Error(t, err, "illegal action must be reported")

			require.NoError(t, v.Close())
			assert.Error(t, v.Close())

			_, err = v.Reset(nil)
			assert.Error(t, err)

			assert.Error(t, v.Seed(1), "seeding a closed env must fail")
		})
	}
}

func TestRender(t *testing.T) {
	for name, v := range vectorEnvs(t, 2) {
		t.Run(name, func(t *testing.T) {
			defer v.Close()
			img, err := v.Render(1)
			require.NoError(t, err)
			assert.NotNil(t, img)
		})
	}
}

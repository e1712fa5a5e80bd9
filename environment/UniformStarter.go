package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a
// hyperrectangle given by one interval per state feature
type UniformStarter struct {
	bounds []r1.Interval
	seed   uint64
	rand   *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter
func NewUniformStarter(bounds []r1.Interval, seed uint64) *UniformStarter {
	u := &UniformStarter{bounds: bounds}
	u.Seed(seed)
	return u
}

// Start samples a starting state
func (u *UniformStarter) Start() mat.Vector {
	return mat.NewVecDense(len(u.bounds), u.rand.Rand(nil))
}

// Seed reseeds the starter
func (u *UniformStarter) Seed(seed uint64) {
	u.seed = seed
	u.rand = distmv.NewUniform(u.bounds, rand.NewSource(seed))
}

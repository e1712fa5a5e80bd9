package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes stochastic gradient descent without momentum
type VanillaConfig struct {
	StepSize float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewVanilla returns a new stochastic gradient descent Solver
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(Vanilla, VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns the Gorgonia VanillaSolver described by v
func (v VanillaConfig) Create() G.Solver {
	return G.NewVanillaSolver(baseOpts(v.StepSize, v.Batch, v.Clip)...)
}

// ValidType returns whether t is Vanilla
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

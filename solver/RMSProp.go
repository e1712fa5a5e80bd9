package solver

import G "gorgonia.org/gorgonia"

// RMSPropConfig describes a configuration of the RMSProp solver
type RMSPropConfig struct {
	StepSize float64
	Epsilon  float64
	Rho      float64 // Decay of the squared gradient average
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewDefaultRMSProp returns a new RMSProp Solver with decay 0.999 and
// no gradient clipping
func NewDefaultRMSProp(stepSize float64, batchSize int) (*Solver, error) {
	return NewRMSProp(stepSize, 1e-8, 0.999, batchSize, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(RMSProp, RMSPropConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Rho:      rho,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns the Gorgonia RMSPropSolver described by r
func (r RMSPropConfig) Create() G.Solver {
	opts := append(baseOpts(r.StepSize, r.Batch, r.Clip),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
	)
	return G.NewRMSPropSolver(opts...)
}

// ValidType returns whether t is RMSProp
func (r RMSPropConfig) ValidType(t Type) bool {
	return t == RMSProp
}

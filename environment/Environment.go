// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"image"

	"github.com/samuelfneumann/pgtrain/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector

	// Seed reseeds the underlying random number generator so that the
	// same sequence of starting states is reproduced for equal seeds
	Seed(seed uint64)
}

// Ender determines when an episode should be ended
type Ender interface {
	End(t *timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment, how episodes start, and how they end
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	AtGoal(state mat.Matrix) bool
	RewardSpec() Spec
}

// Environment implements a simualted environment, which includes a
// Task to complete
type Environment interface {
	// Reset resets the environment between episodes, returning the
	// first TimeStep of a new episode
	Reset() timestep.TimeStep

	// Step takes an environmental step given action and returns the
	// next TimeStep as well as whether the episode has ended. Illegal
	// actions result in an error.
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	// LastTimeStep returns the most recent TimeStep of the environment
	LastTimeStep() timestep.TimeStep

	// Seed seeds the start-state distribution of the environment
	Seed(seed uint64)

	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Renderer is an Environment which can draw its current state
type Renderer interface {
	Environment
	Render() (image.Image, error)
}

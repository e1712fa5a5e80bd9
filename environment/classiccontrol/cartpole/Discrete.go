package cartpole

import (
	"fmt"

	env "github.com/samuelfneumann/pgtrain/environment"
	ts "github.com/samuelfneumann/pgtrain/timestep"
	"gonum.org/v1/gonum/mat"
)

const (
	// Discrete Actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 1
)

// cartpole.Discrete implements the classic control environment
// Cartpole with discrete actions. In this environment, a pole is
// attached to a cart, which can move horizontally. Gravity pulls the
// pole downwards so that balancing it in an upright position is very
// difficult.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity.
//
// Actions are discrete, consisting of the direction to apply
// horizontal force to the cart. Legal actions are in {0, 1}:
//
//	Action		Meaning
//	  0			Apply force left
//	  1			Apply force right
//
// Illegal actions result in an error and leave the environment
// unchanged.
//
// Discrete implements the environment.Environment interface
type Discrete struct {
	*base
}

// NewDiscrete constructs a new Cartpole environment with discrete
// actions
func NewDiscrete(t env.Task, discount float64) (*Discrete, ts.TimeStep) {
	base, firstStep := newBase(t, discount)
	cartpole := Discrete{base}

	return &cartpole, firstStep
}

// ActionSpec returns the action specification of the environment
func (c *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// Step takes one environmental step given action a and returns the next
// timestep as a timestep.TimeStep and a bool indicating whether or not
// the episode has ended. Legal actions are in the set {0, 1}.
func (c *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should "+
			"be %d-dimensional", ActionDims)
	}

	// Discrete action in {0, 1}
	action := a.AtVec(0)
	intAction := int(action)
	if float64(intAction) != action || intAction < MinDiscreteAction ||
		intAction > MaxDiscreteAction {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action "+
			"%v ∉ {0, 1}", action)
	}
	if c.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf("step: episode has " +
			"ended, call Reset()")
	}

	// Convert action (0, 1) to a direction (-1, 1)
	direction := 2*action - 1

	nextState := c.nextState(direction)
	step, last := c.update(a, nextState)
	return step, last, nil
}

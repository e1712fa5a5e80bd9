// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	env "github.com/samuelfneumann/pgtrain/environment"
	ts "github.com/samuelfneumann/pgtrain/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on state variables as reported by the
	// observation spec. Episodes end well before these are reached.
	PositionBounds        float64 = 4.8
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = 24 * 2 * math.Pi / 360
	AngularVelocityBounds float64 = math.MaxFloat64

	ObservationDims int = 4
	ActionDims      int = 1
)

// base implements the physics shared by all Cartpole environments.
// Concrete environments convert their actions into a force direction
// in [-1, 1] and call nextState() and update().
type base struct {
	env.Task
	lastStep       ts.TimeStep
	discount       float64
	gravity        float64
	forceMag       float64
	poleMass       float64
	halfPoleLength float64
	cartMass       float64
	dt             float64
}

// newBase constructs a new base Cartpole environment
func newBase(t env.Task, discount float64) (*base, ts.TimeStep) {
	c := &base{
		Task:           t,
		discount:       discount,
		gravity:        Gravity,
		forceMag:       ForceMag,
		poleMass:       PoleMass,
		halfPoleLength: HalfPoleLength,
		cartMass:       CartMass,
		dt:             Dt,
	}
	firstStep := c.Reset()

	return c, firstStep
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *base) Reset() ts.TimeStep {
	state := c.Start()

	startStep := ts.New(ts.First, 0, c.discount, state, 0)
	c.lastStep = startStep

	return startStep
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (c *base) LastTimeStep() ts.TimeStep {
	return c.lastStep
}

// ObservationSpec returns the observation specification of the
// environment
func (c *base) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	lowerBound := mat.NewVecDense(ObservationDims, []float64{-PositionBounds,
		-SpeedBounds, -AngleBounds, -AngularVelocityBounds})
	upperBound := mat.NewVecDense(ObservationDims, []float64{PositionBounds,
		SpeedBounds, AngleBounds, AngularVelocityBounds})

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (c *base) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{c.discount})
	upperBound := mat.NewVecDense(1, []float64{c.discount})

	return env.NewSpec(shape, env.Discount, lowerBound, upperBound,
		env.Continuous)
}

// nextState computes the next state of the environment after applying
// force in the given direction. The direction is in [-1, 1], with -1
// pushing the cart fully left and 1 pushing the cart fully right.
func (c *base) nextState(direction float64) *mat.VecDense {
	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	force := direction * c.forceMag

	// Calculate physical variables to determine next state
	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := c.poleMass + c.cartMass
	poleMassLength := c.poleMass * c.halfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (c.gravity*sinTheta - cosTheta*temp) / (c.halfPoleLength *
		(4.0/3.0 - c.poleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Update state variables using Euler kinematic integration
	x += c.dt * xDot
	xDot += c.dt * xAcc
	th += c.dt * thDot
	thDot += c.dt * thAcc

	return mat.NewVecDense(ObservationDims, []float64{x, xDot, th, thDot})
}

// update moves the environment into nextState after action a was taken
// and returns the resulting TimeStep and whether the episode ended
func (c *base) update(a mat.Vector, nextState mat.Vector) (ts.TimeStep,
	bool) {
	reward := c.GetReward(c.lastStep.Observation, a, nextState)
	nextStep := ts.New(ts.Mid, reward, c.discount, nextState,
		c.lastStep.Number+1)

	// Check if the step ends the episode
	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last()
}

func (c *base) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	position, speed := state.AtVec(0), state.AtVec(1)
	angle, velocity := state.AtVec(2), state.AtVec(3)

	return fmt.Sprintf(msg, position, speed, angle, velocity)
}

// StartBounds returns the intervals that gym draws Cartpole starting
// states from
func StartBounds() []r1.Interval {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	return []r1.Interval{bounds, bounds, bounds, bounds}
}

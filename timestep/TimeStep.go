// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes how an episode ended. A TerminalEnd is a true
// environmental termination (e.g. the pole fell), while a Timeout is
// an episode cut off by a step limit.
type EndType int

const (
	NotEnded EndType = iota
	TerminalEnd
	Timeout
)

func (e EndType) String() string {
	switch e {
	case TerminalEnd:
		return "TerminalEnd"
	case Timeout:
		return "Timeout"
	default:
		return "NotEnded"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
	endType     EndType
}

// New constructs a new TimeStep
func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Discount: d, Observation: o,
		Number: n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd sets the way in which the episode ended
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// EndType returns the way in which the episode ended
func (t *TimeStep) EndType() EndType {
	return t.endType
}

// TerminalEnd returns whether the TimeStep ended the episode through
// an environmental termination
func (t *TimeStep) TerminalEnd() bool {
	return t.Last() && t.endType == TerminalEnd
}

// Timeout returns whether the TimeStep ended the episode by reaching
// a step limit
func (t *TimeStep) Timeout() bool {
	return t.Last() && t.endType == Timeout
}

// ObservationData returns a copy of the observation as a []float64
func (t *TimeStep) ObservationData() []float64 {
	obs := make([]float64, t.Observation.Len())
	for i := range obs {
		obs[i] = t.Observation.AtVec(i)
	}
	return obs
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}

// Transition packages together a single transition in an environment:
// the observation, the discrete action taken, the reward and the
// following observation.
type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	Done      bool
	NextState []float64
}

// NewTransition creates a new Transition from the TimeStep an action
// was taken in and the TimeStep that followed.
func NewTransition(step TimeStep, action int, next TimeStep) Transition {
	return Transition{
		State:     step.ObservationData(),
		Action:    action,
		Reward:    next.Reward,
		Done:      next.Last(),
		NextState: next.ObservationData(),
	}
}

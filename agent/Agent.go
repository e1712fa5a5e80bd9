// Package agent defines the interfaces of policies and the learning
// algorithms which update them
package agent

import (
	"github.com/samuelfneumann/pgtrain/buffer/replay"
	env "github.com/samuelfneumann/pgtrain/environment"
	ts "github.com/samuelfneumann/pgtrain/timestep"
)

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. A policy in training
// mode selects actions for exploration, while a policy in evaluation
// mode selects the actions used to measure performance.
type Policy interface {
	// SelectAction returns the discrete action to take at timestep t
	SelectAction(t ts.TimeStep) (int, error)

	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Learner implements a learning algorithm that defines how weights are
// updated from the data in a replay buffer.
type Learner interface {
	// Update samples sampleSize transitions from buf (all of them if
	// sampleSize is 0) and updates the policy by making repeat passes
	// over minibatches of batchSize transitions. The loss of each
	// gradient step is returned.
	Update(sampleSize int, buf replay.Buffer, batchSize,
		repeat int) ([]float64, error)
}

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
}

// Serializable is an agent which can be saved to and loaded from disk
type Serializable interface {
	Save(path string) error
	Load(path string) error
}

// Config describes an agent and creates it for a given environment
type Config interface {
	CreateAgent(e env.Environment, seed uint64) (Agent, error)
	Validate() error
}

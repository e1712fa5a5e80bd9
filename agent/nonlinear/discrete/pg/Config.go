package pg

import (
	"fmt"

	"github.com/samuelfneumann/pgtrain/agent"
	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/initwfn"
	"github.com/samuelfneumann/pgtrain/network"
	"github.com/samuelfneumann/pgtrain/solver"
)

// Config implements a configuration for a policy gradient agent with a
// categorical policy. The categorical distribution is parameterized by
// a neural network with N outputs, one for each action in the
// environment. The network outputs the logit of each action, and
// action probabilities are computed through the softmax function.
type Config struct {
	// Policy neural net
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation

	// Weight init function of the policy network
	InitWFn *initwfn.InitWFn

	Solver *solver.Solver

	// BatchSize is the number of transitions in the training graph,
	// the largest minibatch that can be learned from at once
	BatchSize int

	Gamma float64

	// RewardNormalization standardizes returns with a running mean
	// and standard deviation before each update
	RewardNormalization bool

	// DeterministicEval selects the action with the largest
	// probability in evaluation mode
	DeterministicEval bool
}

// NewConfig returns a Config with ReLU hidden layers with biases, an
// orthogonal weight initialization and an Adam solver with learning
// rate lr
func NewConfig(hiddenSizes []int, lr, gamma float64, batchSize int,
	rewNorm bool, seed uint64) (Config, error) {
	biases := make([]bool, len(hiddenSizes))
	activations := make([]*network.Activation, len(hiddenSizes))
	for i := range hiddenSizes {
		biases[i] = true
		activations[i] = network.ReLU()
	}

	init, err := initwfn.NewOrthogonal(initwfn.DefaultOrthogonalGain, seed)
	if err != nil {
		return Config{}, fmt.Errorf("newConfig: %v", err)
	}
	s, err := solver.New(solver.Adam, lr)
	if err != nil {
		return Config{}, fmt.Errorf("newConfig: %v", err)
	}

	c := Config{
		HiddenSizes:         append([]int{}, hiddenSizes...),
		Biases:              biases,
		Activations:         activations,
		InitWFn:             init,
		Solver:              s,
		BatchSize:           batchSize,
		Gamma:               gamma,
		RewardNormalization: rewNorm,
	}
	return c, c.Validate()
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be positive, have %d",
			c.BatchSize)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], have %v",
			c.Gamma)
	}
	if len(c.HiddenSizes) != len(c.Biases) ||
		len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: hidden sizes, biases and activations " +
			"must have the same length")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver")
	}
	return nil
}

// CreateAgent creates and returns the agent determined by the
// configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	return New(e, c, seed)
}

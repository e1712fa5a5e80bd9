package pg

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pgtrain/network"
)

// categoricalMLP is a categorical policy over the logits predicted by
// an MLP. Besides the logits, its graph computes the log probability
// of a batch of actions input through actionIndices.
type categoricalMLP struct {
	net        *network.MLP
	numActions int

	// actionIndices holds one one-hot row per input state
	actionIndices       *G.Node
	logProbInputActions *G.Node
}

// newCategoricalMLP adds the log probability computation to the graph
// of net
func newCategoricalMLP(net *network.MLP) (*categoricalMLP, error) {
	logits := net.Prediction()

	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("ActionIndices"),
	)

	logitsInputActions, err := G.HadamardProd(actionIndices, logits)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: %v", err)
	}
	logitsInputActions, err = G.Sum(logitsInputActions, 1)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: %v", err)
	}

	inputsLogSumExp, err := LogSumExp(logits, 1)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: %v", err)
	}
	logProbInputActions, err := G.Sub(logitsInputActions, inputsLogSumExp)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: %v", err)
	}

	return &categoricalMLP{
		net:                 net,
		numActions:          net.Outputs(),
		actionIndices:       actionIndices,
		logProbInputActions: logProbInputActions,
	}, nil
}

// LogSumExp adds the computation of log(sum(exp(logits))) along an
// axis to the graph of logits. The maximum logit along the axis is
// subtracted before exponentiating so that large logits do not
// overflow.
func LogSumExp(logits *G.Node, along int) (*G.Node, error) {
	max, err := G.Max(logits, along)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}

	exponent, err := G.BroadcastSub(logits, max, nil, []byte{byte(along)})
	if err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}
	if exponent, err = G.Exp(exponent); err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}

	sum, err := G.Sum(exponent, along)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}
	log, err := G.Log(sum)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}

	return G.Add(max, log)
}

// setLogProbInputs sets the states and actions whose log probabilities
// are computed by the graph. States are row-major. Rows past
// len(actions) are zero padding.
func (c *categoricalMLP) setLogProbInputs(states []float64,
	actions []int) error {
	batch := c.net.BatchSize()
	if len(actions) > batch {
		return fmt.Errorf("setLogProbInputs: %d actions exceed batch "+
			"size %d", len(actions), batch)
	}

	input := make([]float64, batch*c.net.Features())
	copy(input, states)
	if err := c.net.SetInput(input); err != nil {
		return fmt.Errorf("setLogProbInputs: %v", err)
	}

	actionIndices := make([]float64, batch*c.numActions)
	for i, a := range actions {
		if a < 0 || a >= c.numActions {
			return fmt.Errorf("setLogProbInputs: illegal action %d", a)
		}
		actionIndices[i*c.numActions+a] = 1.0
	}
	actionIndicesTensor := tensor.NewDense(tensor.Float64,
		[]int{batch, c.numActions},
		tensor.WithBacking(actionIndices),
	)
	return G.Let(c.actionIndices, actionIndicesTensor)
}

// logProbNode returns the node computing the log probability of the
// input actions
func (c *categoricalMLP) logProbNode() *G.Node {
	return c.logProbInputActions
}

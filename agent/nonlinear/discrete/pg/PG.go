// Package pg implements the policy gradient algorithm (REINFORCE) with
// a categorical policy over discrete actions.
package pg

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pgtrain/buffer/replay"
	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/network"
	ts "github.com/samuelfneumann/pgtrain/timestep"
	"github.com/samuelfneumann/pgtrain/utils/floatutils"
)

// eps is added to the return variance before standardizing returns
const eps = 1e-8

// PG implements the policy gradient algorithm with Monte-Carlo returns.
// The policy is updated by minimizing
//
//	-mean(log π(a|s) * G)
//
// over minibatches of collected transitions, where G is the
// (optionally standardized) discounted return.
//
// Two copies of the policy network are kept. The behaviour network
// has batch size 1 and selects actions. The training network has a
// fixed batch size and holds the graph for the policy loss. After each
// update, the weights of the training network are copied to the
// behaviour network.
type PG struct {
	// Policy
	behaviour    *network.MLP
	behaviourVM  G.VM
	numActions   int
	actionOffset int

	trainPolicy       *categoricalMLP
	trainPolicyVM     G.VM
	trainPolicySolver G.Solver
	weights           *G.Node // Per-sample weights of the log probabilities
	loss              *G.Node
	lossVal           G.Value

	gamma             float64
	rewNorm           bool
	retRMS            *RunningMeanStd
	deterministicEval bool
	eval              bool

	rng *rand.Rand
}

// New creates and returns a new PG agent acting in environment e
func New(e env.Environment, c Config, seed uint64) (*PG, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	numActions, err := e.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("new: categorical policy requires "+
			"discrete actions: %v", err)
	}
	features := e.ObservationSpec().Shape.Len()

	// Create the training policy
	trainNet, err := network.NewMLP(features, c.BatchSize, numActions,
		G.NewGraph(), c.HiddenSizes, c.Biases, c.InitWFn.InitWFn(),
		c.Activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %v",
			err)
	}
	trainPolicy, err := newCategoricalMLP(trainNet)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	weights := G.NewVector(
		trainNet.Graph(),
		tensor.Float64,
		G.WithName("Weights"),
		G.WithShape(c.BatchSize),
		G.WithInit(G.Zeroes()),
	)
	loss, err := G.HadamardProd(trainPolicy.logProbNode(), weights)
	if err != nil {
		return nil, fmt.Errorf("new: could not construct loss: %v", err)
	}
	if loss, err = G.Sum(loss); err != nil {
		return nil, fmt.Errorf("new: could not construct loss: %v", err)
	}
	if loss, err = G.Neg(loss); err != nil {
		return nil, fmt.Errorf("new: could not construct loss: %v", err)
	}

	p := &PG{
		numActions:        numActions,
		actionOffset:      int(e.ActionSpec().LowerBound.AtVec(0)),
		trainPolicy:       trainPolicy,
		trainPolicySolver: c.Solver.Solver,
		weights:           weights,
		loss:              loss,
		gamma:             c.Gamma,
		rewNorm:           c.RewardNormalization,
		retRMS:            NewRunningMeanStd(),
		deterministicEval: c.DeterministicEval,
		rng:               rand.New(rand.NewSource(seed)),
	}
	G.Read(loss, &p.lossVal)

	if _, err := G.Grad(loss, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}
	p.trainPolicyVM = G.NewTapeMachine(trainNet.Graph(),
		G.BindDualValues(trainNet.Learnables()...))

	// Create the behaviour policy
	behaviour, err := trainNet.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour "+
			"network: %v", err)
	}
	p.behaviour = behaviour.(*network.MLP)
	p.behaviourVM = G.NewTapeMachine(p.behaviour.Graph())

	return p, nil
}

// Logits returns the logits of the policy in the given state
func (p *PG) Logits(obs []float64) ([]float64, error) {
	if err := p.behaviour.SetInput(obs); err != nil {
		return nil, fmt.Errorf("logits: %v", err)
	}
	defer p.behaviourVM.Reset()

	if err := p.behaviourVM.RunAll(); err != nil {
		return nil, fmt.Errorf("logits: %v", err)
	}
	logits, ok := p.behaviour.Output().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("logits: unexpected output type %T",
			p.behaviour.Output().Data())
	}
	return append([]float64{}, logits...), nil
}

// SelectAction returns an action sampled from the policy at the given
// timestep. In evaluation mode with deterministic evaluation, the most
// probable action is returned instead.
func (p *PG) SelectAction(t ts.TimeStep) (int, error) {
	logits, err := p.Logits(t.ObservationData())
	if err != nil {
		return 0, fmt.Errorf("selectAction: %v", err)
	}

	if p.eval && p.deterministicEval {
		return floatutils.ArgMax(logits) + p.actionOffset, nil
	}

	probs := floatutils.Softmax(logits)
	action := int(distuv.NewCategorical(probs, p.rng).Rand())
	return action + p.actionOffset, nil
}

// ProcessFn computes the returns of each transition in a batch. If
// reward normalization is used, returns are standardized by the
// running return statistics, which are then updated with the
// unstandardized returns.
func (p *PG) ProcessFn(b *replay.Batch) {
	bootstrap := 0.0
	if p.rewNorm {
		bootstrap = p.retRMS.Mean
	}
	returns := DiscountedReturns(b.Rew, b.Done, b.EpisodeEnd, p.gamma,
		bootstrap)

	if !p.rewNorm {
		b.Returns = returns
		return
	}
	b.Returns = p.retRMS.Normalize(returns, eps)
	p.retRMS.Update(returns)
}

// Learn takes repeat passes over the batch, taking one gradient step
// for each shuffled minibatch of batchSize transitions. The returns of
// the batch must have been computed with ProcessFn. The losses of each
// gradient step are returned.
func (p *PG) Learn(b *replay.Batch, batchSize, repeat int) ([]float64,
	error) {
	if b.Returns == nil || len(b.Returns) != b.Len() {
		return nil, fmt.Errorf("learn: batch returns have not been computed")
	}
	graphBatch := p.trainPolicy.net.BatchSize()
	if batchSize <= 0 || batchSize > graphBatch {
		return nil, fmt.Errorf("learn: batch size must be in [1, %d], "+
			"have %d", graphBatch, batchSize)
	}
	if b.ObsDim != p.trainPolicy.net.Features() {
		return nil, fmt.Errorf("learn: observations have %d features, "+
			"want %d", b.ObsDim, p.trainPolicy.net.Features())
	}

	losses := make([]float64, 0, repeat*(b.Len()/batchSize+1))
	for i := 0; i < repeat; i++ {
		for _, idx := range b.Minibatches(batchSize, true, p.rng) {
			loss, err := p.step(b, idx)
			if err != nil {
				return losses, fmt.Errorf("learn: %v", err)
			}
			losses = append(losses, loss)
		}
	}

	if err := network.Set(p.behaviour, p.trainPolicy.net); err != nil {
		return losses, fmt.Errorf("learn: could not update behaviour "+
			"policy: %v", err)
	}
	return losses, nil
}

// step takes a single gradient step on the rows idx of a batch. Rows
// of the training graph past len(idx) are padding with zero weight.
func (p *PG) step(b *replay.Batch, idx []int) (float64, error) {
	features := b.ObsDim
	graphBatch := p.trainPolicy.net.BatchSize()

	obs := make([]float64, 0, len(idx)*features)
	actions := make([]int, len(idx))
	weights := make([]float64, graphBatch)
	for k, i := range idx {
		obs = append(obs, b.ObsAt(i)...)
		actions[k] = b.Act[i] - p.actionOffset
		weights[k] = b.Returns[i] / float64(len(idx))
	}

	if err := p.trainPolicy.setLogProbInputs(obs, actions); err != nil {
		return 0, err
	}
	weightsTensor := tensor.NewDense(
		tensor.Float64,
		p.weights.Shape(),
		tensor.WithBacking(weights),
	)
	if err := G.Let(p.weights, weightsTensor); err != nil {
		return 0, err
	}

	defer p.trainPolicyVM.Reset()
	if err := p.trainPolicyVM.RunAll(); err != nil {
		return 0, err
	}
	if err := p.trainPolicySolver.Step(p.trainPolicy.net.Model()); err != nil {
		return 0, err
	}

	return scalar(p.lossVal)
}

// Update samples sampleSize transitions from buf, or uses all of them
// if sampleSize is 0, computes their returns and learns from them.
// Returns are computed over whole trajectories before sampling.
func (p *PG) Update(sampleSize int, buf replay.Buffer, batchSize,
	repeat int) ([]float64, error) {
	if sampleSize < 0 {
		return nil, fmt.Errorf("update: cannot sample %d transitions",
			sampleSize)
	}
	b, err := buf.Sample(0)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	p.ProcessFn(b)
	if sampleSize > 0 {
		b = b.Subset(b.SampleIndices(sampleSize, p.rng))
	}

	losses, err := p.Learn(b, batchSize, repeat)
	if err != nil {
		return losses, fmt.Errorf("update: %v", err)
	}
	return losses, nil
}

// Eval sets the algorithm into evaluation mode
func (p *PG) Eval() { p.eval = true }

// Train sets the algorithm into training mode
func (p *PG) Train() { p.eval = false }

// IsEval returns whether the algorithm is in evaluation mode
func (p *PG) IsEval() bool { return p.eval }

// ReturnStats returns the running return statistics used for reward
// normalization
func (p *PG) ReturnStats() RunningMeanStd {
	return *p.retRMS
}

// pgGob is the serialized form of a PG policy
type pgGob struct {
	Policy *network.MLP
	RetRMS RunningMeanStd
}

// Save saves the policy weights and return statistics to path
func (p *PG) Save(path string) error {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(pgGob{
		Policy: p.behaviour,
		RetRMS: *p.retRMS,
	})
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load loads policy weights and return statistics saved with Save.
// The saved policy must have the same architecture as p.
func (p *PG) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}

	var dec pgGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&dec); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if err := p.trainPolicy.net.Set(dec.Policy); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if err := p.behaviour.Set(dec.Policy); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	*p.retRMS = dec.RetRMS
	return nil
}

// Close closes the VMs of the agent
func (p *PG) Close() error {
	if err := p.behaviourVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := p.trainPolicyVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	return nil
}

// scalar returns the float64 held by a scalar Gorgonia Value
func scalar(v G.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("scalar: value not computed")
	}
	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, fmt.Errorf("scalar: value %v is not a float64 scalar", v)
}

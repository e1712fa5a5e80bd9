package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP implements a multi-layered perceptron with a single output
// layer of a given number of units. The network takes a batch of
// inputs as a matrix of shape (batch, features) and predicts a matrix
// of shape (batch, outputs).
type MLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for cloning and gobbing
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron with
// outputs output units. The graph parameter g is populated with the
// MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added so that the network
// predicts outputs values for each input. Bias units for each hidden
// layer are specified by biases, and hidden layer activations by
// activations. For index i, hiddenSizes[i] is the number of nodes in
// hidden layer i; biases[i] is true if the hidden layer will contain a
// bias unit; and activations[i] is the activation of hidden layer i.
// The parameter init determines the weight initialization scheme.
// Biases are always initialized to zero.
func NewMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (*MLP, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newMLP: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newMLP: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if features <= 0 || batch <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newMLP: features, batch size and outputs "+
			"must be positive, have (%d, %d, %d)", features, batch, outputs)
	}
	for i, size := range hiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newMLP: hidden layer %d has size %d",
				i, size)
		}
		if activations[i] == nil {
			return nil, fmt.Errorf("newMLP: hidden layer %d has no "+
				"activation", i)
		}
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Add the final linear layer so that outputs are predicted
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	bs := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), Identity())

	layers := make([]*fcLayer, len(sizes))
	in := features
	for i := range sizes {
		layers[i] = newfcLayer(g, in, sizes[i], bs[i], acts[i], init,
			fmt.Sprintf("L%d", i))
		in = sizes[i]
	}

	net := &MLP{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: append([]int{}, hiddenSizes...),
		biases:      append([]bool{}, biases...),
		activations: append([]*Activation{}, activations...),
	}

	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %v",
			err)
	}
	return net, nil
}

// Graph returns the computational graph of the MLP.
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// Clone clones an MLP into a new computational graph
func (m *MLP) Clone() (NeuralNet, error) {
	return m.CloneWithBatch(m.batchSize)
}

// CloneWithBatch clones an MLP into a new computational graph with a
// new input batch size. The weights of the clone are equal to the
// weights of m.
func (m *MLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	net, err := NewMLP(m.numInputs, batchSize, m.numOutputs, G.NewGraph(),
		m.hiddenSizes, m.biases, G.Zeroes(), m.activations)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	if err := net.Set(m); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not set weights: %v",
			err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input vector
func (m *MLP) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs per input vector
func (m *MLP) Outputs() int {
	return m.numOutputs
}

// HiddenSizes returns the sizes of the hidden layers
func (m *MLP) HiddenSizes() []int {
	return append([]int{}, m.hiddenSizes...)
}

// SetInput sets the value of the input node before running the forward
// pass. The input should be a batch of row-major input vectors.
func (m *MLP) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Set sets the weights of an MLP to be equal to the weights of
// another network with the same architecture
func (m *MLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: source has %d learnables, destination %d",
			len(sourceNodes), len(nodes))
	}

	for i, destLearnable := range nodes {
		if !destLearnable.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: learnable %d has shape %v, want %v", i,
				sourceNodes[i].Shape(), destLearnable.Shape())
		}
		weights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %d of source has no "+
				"value", i)
		}
		if err := G.Let(destLearnable, weights.Clone().(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Polyak sets the weights of an MLP to a Polyak average of its own
// weights and those of source: w = (1-tau)*w + tau*w_source
func (m *MLP) Polyak(source NeuralNet, tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("polyak: tau must be in [0, 1], got %v", tau)
	}
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: source has %d learnables, destination %d",
			len(sourceNodes), len(nodes))
	}

	for i := range nodes {
		weights, ok := nodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("polyak: learnable %d has no value", i)
		}
		sourceWeights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("polyak: learnable %d of source has no "+
				"value", i)
		}
		if !weights.Shape().Eq(sourceWeights.Shape()) {
			return fmt.Errorf("polyak: learnable %d has shape %v, want %v",
				i, sourceWeights.Shape(), weights.Shape())
		}

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		if err := G.Let(nodes[i], newWeights); err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes in an MLP
func (m *MLP) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make(G.Nodes, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.learnables()...)
		}
		m.learnables = learnables
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *MLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		m.model = G.NodesToValueGrads(m.Learnables())
	}
	return m.model
}

// fwd performs the forward pass of the MLP on the input node
func (m *MLP) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Output returns the output of the MLP after the graph has been run
func (m *MLP) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the MLP
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}

// mlpGob is the serialized form of an MLP
type mlpGob struct {
	Features    int
	Outputs     int
	BatchSize   int
	HiddenSizes []int
	Biases      []bool
	Activations []*Activation
	Weights     [][]float64
}

// GobEncode implements the gob.GobEncoder interface
func (m *MLP) GobEncode() ([]byte, error) {
	weights := make([][]float64, len(m.Learnables()))
	for i, node := range m.Learnables() {
		data, ok := node.Value().Data().([]float64)
		if !ok {
			return nil, fmt.Errorf("gobEncode: learnable %v has non-float64 "+
				"data", node.Name())
		}
		weights[i] = append([]float64{}, data...)
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	err := enc.Encode(mlpGob{
		Features:    m.numInputs,
		Outputs:     m.numOutputs,
		BatchSize:   m.batchSize,
		HiddenSizes: m.hiddenSizes,
		Biases:      m.biases,
		Activations: m.activations,
		Weights:     weights,
	})
	if err != nil {
		return nil, fmt.Errorf("gobEncode: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded MLP
// is built in a new computational graph.
func (m *MLP) GobDecode(in []byte) error {
	var enc mlpGob
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&enc); err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}

	net, err := NewMLP(enc.Features, enc.BatchSize, enc.Outputs, G.NewGraph(),
		enc.HiddenSizes, enc.Biases, G.Zeroes(), enc.Activations)
	if err != nil {
		return fmt.Errorf("gobDecode: could not construct MLP: %v", err)
	}

	nodes := net.Learnables()
	if len(nodes) != len(enc.Weights) {
		return fmt.Errorf("gobDecode: have %d weight tensors, want %d",
			len(enc.Weights), len(nodes))
	}
	for i, node := range nodes {
		if len(enc.Weights[i]) != node.Shape().TotalSize() {
			return fmt.Errorf("gobDecode: weight tensor %d has %d values, "+
				"want %d", i, len(enc.Weights[i]), node.Shape().TotalSize())
		}
		w := tensor.New(
			tensor.WithBacking(enc.Weights[i]),
			tensor.WithShape(node.Shape()...),
		)
		if err := G.Let(node, w); err != nil {
			return fmt.Errorf("gobDecode: %v", err)
		}
	}

	// The output of net is read into net.predVal, so the read must be
	// bound again once net is copied into m
	*m = *net
	G.Read(m.prediction, &m.predVal)
	return nil
}

// Package network implements feed forward neural networks as
// Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network built on a Gorgonia computational
// graph. Input is set with SetInput, after which a VM running the
// network's graph computes the output, accessible through Output.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}

// Set sets the weights of dest to be equal to the weights of source
func Set(dest, source NeuralNet) error {
	return dest.Set(source)
}

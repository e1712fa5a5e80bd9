package network

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func newTestMLP(t *testing.T, batch int) *MLP {
	t.Helper()
	net, err := NewMLP(4, batch, 2, G.NewGraph(), []int{8, 8},
		[]bool{true, true}, G.GlorotU(1.0), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)
	return net
}

func forward(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	require.NoError(t, net.SetInput(input))
	require.NoError(t, vm.RunAll())
	out, ok := net.Output().Data().([]float64)
	require.True(t, ok)
	return append([]float64{}, out...)
}

func TestNewMLPValidation(t *testing.T) {
	_, err := NewMLP(4, 1, 2, G.NewGraph(), []int{8}, []bool{true, true},
		G.Zeroes(), []*Activation{ReLU()})
	assert.Error(t, err)

	_, err = NewMLP(4, 1, 2, G.NewGraph(), []int{8}, []bool{true},
		G.Zeroes(), []*Activation{})
	assert.Error(t, err)

	_, err = NewMLP(0, 1, 2, G.NewGraph(), []int{8}, []bool{true},
		G.Zeroes(), []*Activation{ReLU()})
	assert.Error(t, err)
}

func TestForwardShape(t *testing.T) {
	net := newTestMLP(t, 3)
	assert.Equal(t, 3, net.BatchSize())
	assert.Equal(t, 4, net.Features())
	assert.Equal(t, 2, net.Outputs())
	assert.Len(t, net.Learnables(), 6)

	out := forward(t, net, make([]float64, 12))
	assert.Len(t, out, 6)

	assert.Error(t, net.SetInput(make([]float64, 5)))
}

func TestCloneWithBatch(t *testing.T) {
	net := newTestMLP(t, 1)
	input := []float64{0.1, -0.2, 0.3, 0.4}
	want := forward(t, net, input)

	clone, err := net.CloneWithBatch(2)
	require.NoError(t, err)
	assert.Equal(t, 2, clone.BatchSize())

	out := forward(t, clone, append(append([]float64{}, input...), input...))
	assert.InDeltaSlice(t, want, out[:2], 1e-12)
	assert.InDeltaSlice(t, want, out[2:], 1e-12)
}

func TestSet(t *testing.T) {
	a := newTestMLP(t, 1)
	b := newTestMLP(t, 1)
	input := []float64{1, 2, 3, 4}

	require.NoError(t, Set(b, a))
	assert.InDeltaSlice(t, forward(t, a, input), forward(t, b, input), 1e-12)

	other, err := NewMLP(4, 1, 3, G.NewGraph(), []int{8, 8},
		[]bool{true, true}, G.Zeroes(), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)
	assert.Error(t, other.Set(a))
}

func TestPolyak(t *testing.T) {
	a := newTestMLP(t, 1)
	b := newTestMLP(t, 1)

	before := make([][]float64, len(b.Learnables()))
	for i, n := range b.Learnables() {
		before[i] = append([]float64(nil), n.Value().Data().([]float64)...)
	}

	require.NoError(t, b.Polyak(a, 0.25))
	for i, n := range b.Learnables() {
		src := a.Learnables()[i].Value().Data().([]float64)
		got := n.Value().Data().([]float64)
		for j := range got {
			assert.InDelta(t, 0.75*before[i][j]+0.25*src[j], got[j], 1e-12)
		}
	}

	require.NoError(t, b.Polyak(a, 1))
	input := []float64{1, -1, 0.5, 2}
	assert.InDeltaSlice(t, forward(t, a, input), forward(t, b, input), 1e-12)

	assert.Error(t, b.Polyak(a, 1.5))
}

func TestGob(t *testing.T) {
	net := newTestMLP(t, 1)
	input := []float64{0.5, 0.5, -0.5, 1}
	want := forward(t, net, input)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(net))

	var decoded MLP
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	assert.Equal(t, []int{8, 8}, decoded.HiddenSizes())
	assert.Nil(t, decoded.Output())
	assert.InDeltaSlice(t, want, forward(t, &decoded, input), 1e-12)
	assert.NotNil(t, decoded.Output())

	// A decoded network can be cloned and synced like a constructed one
	clone, err := decoded.CloneWithBatch(2)
	require.NoError(t, err)
	require.NoError(t, clone.Set(&decoded))
	out := forward(t, clone, append(append([]float64{}, input...), input...))
	assert.InDeltaSlice(t, append(want, want...), out, 1e-12)
}

func TestParseActivation(t *testing.T) {
	a, err := ParseActivation("relu")
	require.NoError(t, err)
	assert.Equal(t, "relu", a.String())

	_, err = ParseActivation("gelu")
	assert.Error(t, err)

	assert.Equal(t, []string{"identity", "relu", "sigmoid", "tanh"},
		ActivationNames())
	assert.True(t, Identity().IsIdentity())
	assert.False(t, Sigmoid().IsIdentity())
}

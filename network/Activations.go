package network

import (
	"fmt"
	"sort"

	G "gorgonia.org/gorgonia"
)

// activations maps the name of each activation to its forward pass
var activations = map[string]func(x *G.Node) (*G.Node, error){
	"identity": func(x *G.Node) (*G.Node, error) { return x, nil },
	"relu":     G.Rectify,
	"sigmoid":  G.Sigmoid,
	"tanh":     G.Tanh,
}

// Activation is an elementwise activation function applied to the
// output of a layer. Activations are gob encoded by name.
type Activation struct {
	name string
	f    func(x *G.Node) (*G.Node, error)
}

// ParseActivation returns the Activation with the given name
func ParseActivation(name string) (*Activation, error) {
	f, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("parseActivation: unknown activation %q "+
			"(known: %v)", name, ActivationNames())
	}
	return &Activation{name: name, f: f}, nil
}

// ActivationNames returns the sorted names of all activations
func ActivationNames() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustActivation(name string) *Activation {
	a, err := ParseActivation(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Identity returns the identity activation
func Identity() *Activation { return mustActivation("identity") }

// ReLU returns the rectified linear activation
func ReLU() *Activation { return mustActivation("relu") }

// Sigmoid returns the logistic sigmoid activation
func Sigmoid() *Activation { return mustActivation("sigmoid") }

// TanH returns the hyperbolic tangent activation
func TanH() *Activation { return mustActivation("tanh") }

func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String returns the name of the activation
func (a *Activation) String() string {
	return a.name
}

// IsIdentity returns whether the activation is the identity
func (a *Activation) IsIdentity() bool {
	return a.name == "identity"
}

// GobEncode implements the gob.GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.name), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	decoded, err := ParseActivation(string(encoded))
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	*a = *decoded
	return nil
}

// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be JSON serialized into configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/pgtrain/utils/typedjson"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// New returns a new Solver of the given type with default
// hyperparameters for that type and the given step size.
func New(t Type, stepSize float64) (*Solver, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("new: step size must be positive, have %v",
			stepSize)
	}

	// Losses are averaged over the batch in the computational graph,
	// so solvers never rescale gradients by the batch size
	switch t {
	case Adam:
		return NewDefaultAdam(stepSize, 1)
	case Vanilla:
		return NewVanilla(stepSize, 1, -1.0)
	case RMSProp:
		return NewDefaultRMSProp(stepSize, 1)
	default:
		return nil, fmt.Errorf("new: unknown solver type %q", t)
	}
}

// Types returns the available solver types
func Types() []Type {
	return []Type{Adam, Vanilla, RMSProp}
}

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// configTypes holds the configuration type of each solver Type
var configTypes = typedjson.Registry{}

func init() {
	configTypes.Register(string(Adam), AdamConfig{})
	configTypes.Register(string(Vanilla), VanillaConfig{})
	configTypes.Register(string(RMSProp), RMSPropConfig{})
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	decoded, typeName, err := configTypes.Decode(data, "Type", "Config")
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	config := decoded.(Config)
	if !config.ValidType(Type(typeName)) {
		return fmt.Errorf("unmarshalJSON: invalid solver type %v for "+
			"configuration %T", typeName, config)
	}

	s.Type = Type(typeName)
	s.Config = config
	s.Solver = config.Create()
	return nil
}

// baseOpts returns the options shared by all solvers
func baseOpts(stepSize float64, batch int, clip float64) []G.SolverOpt {
	opts := []G.SolverOpt{
		G.WithLearnRate(stepSize),
		G.WithBatchSize(float64(batch)),
	}
	if clip > 0 {
		opts = append(opts, G.WithClip(clip))
	}
	return opts
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}

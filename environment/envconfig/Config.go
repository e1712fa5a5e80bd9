// Package envconfig provides a registry of named, gym-style
// environment configurations. Environments are created by ID, e.g.
// "CartPole-v0", with their default physical parameters, episode
// cutoffs and reward thresholds.
package envconfig

import (
	"fmt"
	"sort"

	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/environment/classiccontrol/cartpole"
)

// EnvSpec describes a registered environment
type EnvSpec struct {
	ID              string
	MaxEpisodeSteps int
	RewardThreshold float64
	Discount        float64

	create func(EnvSpec, uint64) env.Environment
}

var registry = map[string]EnvSpec{}

func init() {
	Register(EnvSpec{
		ID:              "CartPole-v0",
		MaxEpisodeSteps: 200,
		RewardThreshold: 195.0,
		Discount:        1.0,
		create:          createCartpole,
	})
	Register(EnvSpec{
		ID:              "CartPole-v1",
		MaxEpisodeSteps: 500,
		RewardThreshold: 475.0,
		Discount:        1.0,
		create:          createCartpole,
	})
}

// Register registers an environment specification. It panics if the
// ID is already registered or if the spec cannot create environments.
func Register(spec EnvSpec) {
	if _, ok := registry[spec.ID]; ok {
		panic(fmt.Sprintf("register: environment %v already registered",
			spec.ID))
	}
	if spec.create == nil {
		panic(fmt.Sprintf("register: environment %v has no constructor",
			spec.ID))
	}
	registry[spec.ID] = spec
}

// Spec returns the registered specification of an environment
func Spec(id string) (EnvSpec, error) {
	spec, ok := registry[id]
	if !ok {
		return EnvSpec{}, fmt.Errorf("spec: no such environment %q "+
			"(registered: %v)", id, IDs())
	}
	return spec, nil
}

// IDs returns the sorted IDs of all registered environments
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Make creates the environment registered under id, seeding its
// start-state distribution with seed.
func Make(id string, seed uint64) (env.Environment, EnvSpec, error) {
	spec, err := Spec(id)
	if err != nil {
		return nil, EnvSpec{}, fmt.Errorf("make: %v", err)
	}
	return spec.create(spec, seed), spec, nil
}

// Factory returns a function which creates new instances of the
// environment registered under id. The seed passed to the returned
// function seeds each new instance.
func Factory(id string) (func(seed uint64) env.Environment, error) {
	spec, err := Spec(id)
	if err != nil {
		return nil, fmt.Errorf("factory: %v", err)
	}
	return func(seed uint64) env.Environment {
		return spec.create(spec, seed)
	}, nil
}

func createCartpole(spec EnvSpec, seed uint64) env.Environment {
	starter := env.NewUniformStarter(cartpole.StartBounds(), seed)
	task := cartpole.NewBalance(starter, spec.MaxEpisodeSteps,
		cartpole.FailAngle)
	c, _ := cartpole.NewDiscrete(task, spec.Discount)
	return c
}

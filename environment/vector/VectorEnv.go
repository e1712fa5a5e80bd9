// Package vector implements vectorized environments, which manage a
// number of independent copies of an environment and step them
// together.
package vector

import (
	"fmt"
	"image"

	env "github.com/samuelfneumann/pgtrain/environment"
	ts "github.com/samuelfneumann/pgtrain/timestep"
)

// VectorEnv manages a fixed number of environments. Methods taking a
// slice of environment ids operate on the environments with those ids
// in the order given; an empty slice refers to every environment in
// order 0, 1, ..., Len()-1.
type VectorEnv interface {
	// Len returns the number of environments managed
	Len() int

	// Seed seeds environment i with seed + i
	Seed(seed uint64) error

	// Reset resets the environments with the given ids and returns
	// their first TimeSteps
	Reset(ids []int) ([]ts.TimeStep, error)

	// Step takes actions[i] in environment ids[i]. The returned
	// TimeSteps are ordered like ids.
	Step(actions []int, ids []int) ([]ts.TimeStep, error)

	// Render draws environment id, if it supports rendering
	Render(id int) (image.Image, error)

	ObservationSpec() env.Spec
	ActionSpec() env.Spec

	// Close releases the environments. Any further use returns an
	// error.
	Close() error
}

// resolveIDs returns the environment ids to operate on, validating
// that each is in range and appears only once
func resolveIDs(ids []int, n int) ([]int, error) {
	if len(ids) == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id < 0 || id >= n {
			return nil, fmt.Errorf("environment id %d out of range [0, %d)",
				id, n)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate environment id %d", id)
		}
		seen[id] = true
	}
	return ids, nil
}

// validateEnvs ensures that a group of environments can be vectorized
func validateEnvs(envs []env.Environment) error {
	if len(envs) == 0 {
		return fmt.Errorf("at least one environment is required")
	}
	if _, err := envs[0].ActionSpec().NumActions(); err != nil {
		return fmt.Errorf("only discrete-action environments can be "+
			"vectorized: %v", err)
	}
	return nil
}

// step takes a single discrete action in e
func step(e env.Environment, action int) (ts.TimeStep, error) {
	a := actionVec(action)
	next, _, err := e.Step(a)
	return next, err
}

// render renders e if it implements env.Renderer
func render(e env.Environment) (image.Image, error) {
	r, ok := e.(env.Renderer)
	if !ok {
		return nil, fmt.Errorf("environment %T cannot be rendered", e)
	}
	return r.Render()
}

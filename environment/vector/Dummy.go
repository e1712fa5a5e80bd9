package vector

import (
	"fmt"
	"image"

	env "github.com/samuelfneumann/pgtrain/environment"
	ts "github.com/samuelfneumann/pgtrain/timestep"
	"gonum.org/v1/gonum/mat"
)

// Dummy is a VectorEnv which steps its environments sequentially in
// the calling goroutine.
type Dummy struct {
	envs   []env.Environment
	closed bool
}

// NewDummy returns a new Dummy vector environment over envs
func NewDummy(envs []env.Environment) (*Dummy, error) {
	if err := validateEnvs(envs); err != nil {
		return nil, fmt.Errorf("newDummy: %v", err)
	}
	return &Dummy{envs: envs}, nil
}

// Len returns the number of environments
func (d *Dummy) Len() int { return len(d.envs) }

// Seed seeds environment i with seed + i
func (d *Dummy) Seed(seed uint64) error {
	if d.closed {
		return fmt.Errorf("seed: environment closed")
	}
	for i, e := range d.envs {
		e.Seed(seed + uint64(i))
	}
	return nil
}

// Reset resets the environments with the given ids
func (d *Dummy) Reset(ids []int) ([]ts.TimeStep, error) {
	if d.closed {
		return nil, fmt.Errorf("reset: environment closed")
	}
	ids, err := resolveIDs(ids, len(d.envs))
	if err != nil {
		return nil, fmt.Errorf("reset: %v", err)
	}

	steps := make([]ts.TimeStep, len(ids))
	for i, id := range ids {
		steps[i] = d.envs[id].Reset()
	}
	return steps, nil
}

// Step takes actions[i] in environment ids[i]
func (d *Dummy) Step(actions []int, ids []int) ([]ts.TimeStep, error) {
	if d.closed {
		return nil, fmt.Errorf("step: environment closed")
	}
	ids, err := resolveIDs(ids, len(d.envs))
	if err != nil {
		return nil, fmt.Errorf("step: %v", err)
	}
	if len(actions) != len(ids) {
		return nil, fmt.Errorf("step: got %d actions for %d environments",
			len(actions), len(ids))
	}

	steps := make([]ts.TimeStep, len(ids))
	for i, id := range ids {
		steps[i], err = step(d.envs[id], actions[i])
		if err != nil {
			return nil, fmt.Errorf("step: environment %d: %v", id, err)
		}
	}
	return steps, nil
}

// Render draws environment id
func (d *Dummy) Render(id int) (image.Image, error) {
	if id < 0 || id >= len(d.envs) {
		return nil, fmt.Errorf("render: environment id %d out of range", id)
	}
	return render(d.envs[id])
}

// ObservationSpec returns the observation specification shared by the
// environments
func (d *Dummy) ObservationSpec() env.Spec { return d.envs[0].ObservationSpec() }

// ActionSpec returns the action specification shared by the
// environments
func (d *Dummy) ActionSpec() env.Spec { return d.envs[0].ActionSpec() }

// Close closes the vector environment
func (d *Dummy) Close() error {
	if d.closed {
		return fmt.Errorf("close: environment already closed")
	}
	d.closed = true
	return nil
}

func actionVec(action int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(action)})
}

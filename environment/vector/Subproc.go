package vector

import (
	"fmt"
	"image"
	"sync"

	"github.com/hashicorp/go-multierror"
	env "github.com/samuelfneumann/pgtrain/environment"
	ts "github.com/samuelfneumann/pgtrain/timestep"
)

type command int

const (
	cmdReset command = iota
	cmdStep
	cmdSeed
	cmdRender
)

type request struct {
	cmd    command
	action int
	seed   uint64
	reply  chan<- response
}

type response struct {
	step  ts.TimeStep
	image image.Image
	err   error
}

// Subproc is a VectorEnv which runs each environment in its own
// goroutine. Operations on several environments are dispatched to all
// workers at once and run concurrently.
type Subproc struct {
	specs   [2]env.Spec // observation, action
	workers []chan request
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewSubproc returns a new Subproc vector environment over envs. Each
// environment is owned by its worker goroutine from then on and must
// not be used by the caller.
func NewSubproc(envs []env.Environment) (*Subproc, error) {
	if err := validateEnvs(envs); err != nil {
		return nil, fmt.Errorf("newSubproc: %v", err)
	}

	s := &Subproc{
		specs:   [2]env.Spec{envs[0].ObservationSpec(), envs[0].ActionSpec()},
		workers: make([]chan request, len(envs)),
	}
	for i, e := range envs {
		s.workers[i] = make(chan request)
		s.wg.Add(1)
		go s.work(e, s.workers[i])
	}
	return s, nil
}

// work serves requests for a single environment until its channel is
// closed
func (s *Subproc) work(e env.Environment, requests <-chan request) {
	defer s.wg.Done()
	for req := range requests {
		var resp response
		switch req.cmd {
		case cmdReset:
			resp.step = e.Reset()
		case cmdStep:
			resp.step, resp.err = step(e, req.action)
		case cmdSeed:
			e.Seed(req.seed)
		case cmdRender:
			resp.image, resp.err = render(e)
		}
		req.reply <- resp
	}
}

// dispatch sends one request per id and collects the responses in the
// order of ids. Errors from individual environments are aggregated.
func (s *Subproc) dispatch(ids []int, build func(i int) request) (
	[]response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("environment closed")
	}

	replies := make([]chan response, len(ids))
	for i, id := range ids {
		replies[i] = make(chan response, 1)
		req := build(i)
		req.reply = replies[i]
		s.workers[id] <- req
	}

	var errs error
	responses := make([]response, len(ids))
	for i := range ids {
		responses[i] = <-replies[i]
		if err := responses[i].err; err != nil {
			errs = multierror.Append(errs,
				fmt.Errorf("environment %d: %v", ids[i], err))
		}
	}
	return responses, errs
}

// Len returns the number of environments
func (s *Subproc) Len() int { return len(s.workers) }

// Seed seeds environment i with seed + i
func (s *Subproc) Seed(seed uint64) error {
	ids, _ := resolveIDs(nil, len(s.workers))
	if _, err := s.dispatch(ids, func(i int) request {
		return request{cmd: cmdSeed, seed: seed + uint64(ids[i])}
	}); err != nil {
		return fmt.Errorf("seed: %v", err)
	}
	return nil
}

// Reset resets the environments with the given ids
func (s *Subproc) Reset(ids []int) ([]ts.TimeStep, error) {
	ids, err := resolveIDs(ids, len(s.workers))
	if err != nil {
		return nil, fmt.Errorf("reset: %v", err)
	}

	responses, err := s.dispatch(ids, func(int) request {
		return request{cmd: cmdReset}
	})
	if err != nil {
		return nil, fmt.Errorf("reset: %v", err)
	}
	return steps(responses), nil
}

// Step takes actions[i] in environment ids[i] concurrently
func (s *Subproc) Step(actions []int, ids []int) ([]ts.TimeStep, error) {
	ids, err := resolveIDs(ids, len(s.workers))
	if err != nil {
		return nil, fmt.Errorf("step: %v", err)
	}
	if len(actions) != len(ids) {
		return nil, fmt.Errorf("step: got %d actions for %d environments",
			len(actions), len(ids))
	}

	responses, err := s.dispatch(ids, func(i int) request {
		return request{cmd: cmdStep, action: actions[i]}
	})
	if err != nil {
		return nil, fmt.Errorf("step: %v", err)
	}
	return steps(responses), nil
}

// Render draws environment id
func (s *Subproc) Render(id int) (image.Image, error) {
	ids, err := resolveIDs([]int{id}, len(s.workers))
	if err != nil {
		return nil, fmt.Errorf("render: %v", err)
	}
	responses, err := s.dispatch(ids, func(int) request {
		return request{cmd: cmdRender}
	})
	if err != nil {
		return nil, fmt.Errorf("render: %v", err)
	}
	return responses[0].image, nil
}

// ObservationSpec returns the observation specification shared by the
// environments
func (s *Subproc) ObservationSpec() env.Spec { return s.specs[0] }

// ActionSpec returns the action specification shared by the
// environments
func (s *Subproc) ActionSpec() env.Spec { return s.specs[1] }

// Close stops all worker goroutines and waits for them to exit
func (s *Subproc) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("close: environment already closed")
	}
	s.closed = true
	for _, w := range s.workers {
		close(w)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func steps(responses []response) []ts.TimeStep {
	out := make([]ts.TimeStep, len(responses))
	for i := range responses {
		out[i] = responses[i].step
	}
	return out
}

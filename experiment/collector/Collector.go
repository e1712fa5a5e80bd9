// Package collector implements collectors, which run a policy in a
// vectorized environment and store the resulting transitions in a
// replay buffer.
package collector

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/exp/rand"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/pgtrain/agent"
	"github.com/samuelfneumann/pgtrain/buffer/replay"
	"github.com/samuelfneumann/pgtrain/environment/vector"
	ts "github.com/samuelfneumann/pgtrain/timestep"
	"github.com/samuelfneumann/pgtrain/utils/floatutils"
)

// Config determines how much data a call to Collect gathers. Exactly
// one of NStep and NEpisode must be positive.
type Config struct {
	// NStep is the minimum number of environment steps to collect
	NStep int

	// NEpisode is the number of whole episodes to collect
	NEpisode int

	// Random selects uniformly random actions instead of querying the
	// policy
	Random bool

	// Render is the time to sleep between rendered frames. Frames are
	// only rendered if Render > 0.
	Render time.Duration

	// Frame receives each rendered frame
	Frame func(envID int, frame image.Image) error
}

// Stats summarizes a call to Collect
type Stats struct {
	NEpisodes int
	NSteps    int

	// Rews and Lens hold the return and length of each finished episode
	Rews []float64
	Lens []int

	// Rew, RewStd and Len are the mean return, the standard deviation
	// of the returns and the mean length of finished episodes, or 0 if
	// no episode finished
	Rew    float64
	RewStd float64
	Len    float64
}

// Collector runs a policy in a vectorized environment. If the
// Collector has a replay buffer, every transition is added to the
// sub-buffer with the same id as the environment which produced it.
type Collector struct {
	policy agent.Policy
	envs   vector.VectorEnv
	buffer *replay.VectorReplayBuffer

	numActions   int
	actionOffset int

	// Last timestep and running return and length of the current
	// episode in each environment
	steps       []ts.TimeStep
	episodeRews []float64
	episodeLens []int

	collectStep    int
	collectEpisode int
	collectTime    time.Duration

	rng *rand.Rand
}

// New returns a new Collector. The buffer may be nil, in which case
// transitions are not stored. Otherwise it must have one sub-buffer
// per environment. The environments are reset on creation.
func New(policy agent.Policy, envs vector.VectorEnv,
	buffer *replay.VectorReplayBuffer, seed uint64) (*Collector, error) {
	if buffer != nil && buffer.BufferNum() != envs.Len() {
		return nil, fmt.Errorf("new: buffer has %d sub-buffers but there "+
			"are %d environments", buffer.BufferNum(), envs.Len())
	}

	numActions, err := envs.ActionSpec().NumActions()
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	c := &Collector{
		policy:       policy,
		envs:         envs,
		buffer:       buffer,
		numActions:   numActions,
		actionOffset: int(envs.ActionSpec().LowerBound.AtVec(0)),
		steps:        make([]ts.TimeStep, envs.Len()),
		episodeRews:  make([]float64, envs.Len()),
		episodeLens:  make([]int, envs.Len()),
		rng:          rand.New(rand.NewSource(seed)),
	}
	if err := c.Reset(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return c, nil
}

// Reset resets the environments, the buffer and the collected step
// and episode counters
func (c *Collector) Reset() error {
	c.ResetBuffer()
	c.ResetStat()
	return c.ResetEnv()
}

// ResetStat resets the collected step and episode counters
func (c *Collector) ResetStat() {
	c.collectStep = 0
	c.collectEpisode = 0
	c.collectTime = 0
}

// ResetBuffer removes all transitions from the buffer
func (c *Collector) ResetBuffer() {
	if c.buffer != nil {
		c.buffer.Reset()
	}
}

// ResetEnv resets every environment, discarding unfinished episodes
func (c *Collector) ResetEnv() error {
	steps, err := c.envs.Reset(nil)
	if err != nil {
		return fmt.Errorf("resetEnv: %v", err)
	}
	copy(c.steps, steps)
	for i := range c.episodeRews {
		c.episodeRews[i] = 0
		c.episodeLens[i] = 0
	}
	return nil
}

// Buffer returns the replay buffer of the collector, which may be nil
func (c *Collector) Buffer() *replay.VectorReplayBuffer {
	return c.buffer
}

// Policy returns the policy run by the collector
func (c *Collector) Policy() agent.Policy {
	return c.policy
}

// CollectStep returns the number of steps collected since the last
// call to ResetStat
func (c *Collector) CollectStep() int {
	return c.collectStep
}

// CollectEpisode returns the number of episodes collected since the
// last call to ResetStat
func (c *Collector) CollectEpisode() int {
	return c.collectEpisode
}

// CollectTime returns the time spent collecting since the last call to
// ResetStat
func (c *Collector) CollectTime() time.Duration {
	return c.collectTime
}

// Collect runs the policy until at least cfg.NStep steps or exactly
// cfg.NEpisode episodes have been collected.
//
// With NEpisode, environments which would finish surplus episodes are
// no longer stepped, and every environment is reset once collection
// finishes, so that only whole episodes are collected. With NStep,
// environments keep their state between calls.
func (c *Collector) Collect(ctx context.Context, cfg Config) (Stats, error) {
	if (cfg.NStep > 0) == (cfg.NEpisode > 0) {
		return Stats{}, fmt.Errorf("collect: exactly one of n_step (%d) "+
			"and n_episode (%d) must be positive", cfg.NStep, cfg.NEpisode)
	}
	start := time.Now()

	ready := make([]int, c.envs.Len())
	for i := range ready {
		ready[i] = i
	}
	if cfg.NEpisode > 0 && cfg.NEpisode < len(ready) {
		ready = ready[:cfg.NEpisode]
	}

	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		actions, err := c.actions(ready, cfg.Random)
		if err != nil {
			return stats, fmt.Errorf("collect: %v", err)
		}
		next, err := c.envs.Step(actions, ready)
		if err != nil {
			return stats, fmt.Errorf("collect: %v", err)
		}

		if err := c.store(ready, actions, next); err != nil {
			return stats, fmt.Errorf("collect: %v", err)
		}
		if err := c.render(ready, cfg); err != nil {
			return stats, fmt.Errorf("collect: %v", err)
		}
		stats.NSteps += len(ready)

		// Record and reset finished episodes
		var ended []int
		for i, id := range ready {
			if !next[i].Last() {
				continue
			}
			ended = append(ended, id)
			stats.Rews = append(stats.Rews, c.episodeRews[id])
			stats.Lens = append(stats.Lens, c.episodeLens[id])
		}
		if len(ended) > 0 {
			if err := c.reset(ended); err != nil {
				return stats, fmt.Errorf("collect: %v", err)
			}
			stats.NEpisodes += len(ended)

			// Stop stepping environments which would produce surplus
			// episodes
			if cfg.NEpisode > 0 {
				surplus := len(ready) - (cfg.NEpisode - stats.NEpisodes)
				if surplus > 0 {
					ready = remove(ready, ended[:min(surplus, len(ended))])
				}
			}
		}

		if (cfg.NStep > 0 && stats.NSteps >= cfg.NStep) ||
			(cfg.NEpisode > 0 && stats.NEpisodes >= cfg.NEpisode) {
			break
		}
	}

	if cfg.NEpisode > 0 {
		if err := c.ResetEnv(); err != nil {
			return stats, fmt.Errorf("collect: %v", err)
		}
	}

	stats.summarize()
	c.collectStep += stats.NSteps
	c.collectEpisode += stats.NEpisodes
	c.collectTime += time.Since(start)

	klog.V(4).InfoS("Collected", "steps", stats.NSteps, "episodes",
		stats.NEpisodes, "reward", stats.Rew)
	return stats, nil
}

// actions returns the actions to take in the environments with the
// given ids
func (c *Collector) actions(ids []int, random bool) ([]int, error) {
	actions := make([]int, len(ids))
	for i, id := range ids {
		if random {
			actions[i] = c.rng.Intn(c.numActions) + c.actionOffset
			continue
		}
		a, err := c.policy.SelectAction(c.steps[id])
		if err != nil {
			return nil, err
		}
		actions[i] = a
	}
	return actions, nil
}

// store records the transitions of one step in the environments with
// the given ids
func (c *Collector) store(ids, actions []int, next []ts.TimeStep) error {
	transitions := make([]ts.Transition, len(ids))
	for i, id := range ids {
		transitions[i] = ts.NewTransition(c.steps[id], actions[i], next[i])
		c.steps[id] = next[i]
		c.episodeRews[id] += next[i].Reward
		c.episodeLens[id]++
	}

	if c.buffer == nil {
		return nil
	}
	return c.buffer.Add(transitions, ids)
}

// reset resets the environments with the given ids
func (c *Collector) reset(ids []int) error {
	first, err := c.envs.Reset(ids)
	if err != nil {
		return err
	}
	for i, id := range ids {
		c.steps[id] = first[i]
		c.episodeRews[id] = 0
		c.episodeLens[id] = 0
	}
	return nil
}

// render renders the environments with the given ids if requested
func (c *Collector) render(ids []int, cfg Config) error {
	if cfg.Render <= 0 {
		return nil
	}
	for _, id := range ids {
		frame, err := c.envs.Render(id)
		if err != nil {
			return err
		}
		if cfg.Frame != nil {
			if err := cfg.Frame(id, frame); err != nil {
				return err
			}
		}
	}
	time.Sleep(cfg.Render)
	return nil
}

// summarize computes the summary statistics of finished episodes
func (s *Stats) summarize() {
	if len(s.Rews) == 0 {
		return
	}
	s.Rew, s.RewStd = floatutils.PopMeanStdDev(s.Rews)

	lens := make([]float64, len(s.Lens))
	for i, l := range s.Lens {
		lens[i] = float64(l)
	}
	s.Len, _ = floatutils.PopMeanStdDev(lens)
}

// remove returns ids without the elements of drop
func remove(ids, drop []int) []int {
	dropped := make(map[int]bool, len(drop))
	for _, id := range drop {
		dropped[id] = true
	}
	kept := make([]int, 0, len(ids))
	for _, id := range ids {
		if !dropped[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

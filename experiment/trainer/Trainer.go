// Package trainer implements the on-policy training loop, which
// alternates between collecting episodes with the current policy and
// updating the policy on the collected data.
package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/pgtrain/agent"
	"github.com/samuelfneumann/pgtrain/experiment/checkpointer"
	"github.com/samuelfneumann/pgtrain/experiment/collector"
	"github.com/samuelfneumann/pgtrain/experiment/tracker"
	"github.com/samuelfneumann/pgtrain/utils/progressbar"
)

// StopFn returns whether training should stop given the mean test
// reward
type StopFn func(meanReward float64) bool

// RewardThreshold returns a StopFn which stops training once the mean
// test reward is at least threshold
func RewardThreshold(threshold float64) StopFn {
	return func(meanReward float64) bool {
		return meanReward >= threshold
	}
}

// SaveBestFn saves a policy which achieved a new best test reward
type SaveBestFn func(policy agent.Policy) error

// Config configures an on-policy training run
type Config struct {
	Agent          agent.Agent
	TrainCollector *collector.Collector
	TestCollector  *collector.Collector

	MaxEpoch     int
	StepPerEpoch int

	// Exactly one of StepPerCollect and EpisodePerCollect must be
	// positive
	StepPerCollect    int
	EpisodePerCollect int

	RepeatPerCollect int
	EpisodePerTest   int
	BatchSize        int

	// Optional
	StopFn       StopFn
	SaveBestFn   SaveBestFn
	Checkpointer checkpointer.Checkpointer
	Logger       tracker.Logger

	// TestInTrain tests the policy as soon as a training collection
	// satisfies StopFn, ending training early if the test does too
	TestInTrain bool

	// Verbose displays a progress bar for each epoch on Out, which
	// defaults to os.Stderr
	Verbose bool
	Out     io.Writer
}

// Validate checks that a Config describes a runnable training loop
func (c Config) Validate() error {
	if c.Agent == nil {
		return fmt.Errorf("validate: no agent")
	}
	if c.TrainCollector == nil || c.TestCollector == nil {
		return fmt.Errorf("validate: train and test collectors are required")
	}
	if c.TrainCollector.Buffer() == nil {
		return fmt.Errorf("validate: train collector has no buffer")
	}
	if c.MaxEpoch <= 0 || c.StepPerEpoch <= 0 || c.RepeatPerCollect <= 0 ||
		c.EpisodePerTest <= 0 || c.BatchSize <= 0 {
		return fmt.Errorf("validate: epochs, steps per epoch, repeats " +
			"per collect, episodes per test and batch size must be positive")
	}
	if (c.StepPerCollect > 0) == (c.EpisodePerCollect > 0) {
		return fmt.Errorf("validate: exactly one of steps per collect and " +
			"episodes per collect must be positive")
	}
	return nil
}

// Result summarizes a training run
type Result struct {
	BestReward    float64
	BestRewardStd float64
	BestEpoch     int

	TrainStep        int
	TrainEpisode     int
	TrainCollectTime time.Duration
	TrainModelTime   time.Duration
	TrainSpeed       float64 // Steps per second

	TestStep    int
	TestEpisode int
	TestTime    time.Duration
	TestSpeed   float64 // Steps per second

	Duration time.Duration
}

// String implements the fmt.Stringer interface
func (r Result) String() string {
	return fmt.Sprintf("{BestReward: %.6f BestRewardStd: %.6f "+
		"BestEpoch: %d TrainStep: %d TrainEpisode: %d "+
		"TrainCollectTime: %v TrainModelTime: %v TrainSpeed: %.2f step/s "+
		"TestStep: %d TestEpisode: %d TestTime: %v TestSpeed: %.2f step/s "+
		"Duration: %v}", r.BestReward, r.BestRewardStd, r.BestEpoch,
		r.TrainStep, r.TrainEpisode, r.TrainCollectTime, r.TrainModelTime,
		r.TrainSpeed, r.TestStep, r.TestEpisode, r.TestTime, r.TestSpeed,
		r.Duration)
}

// onPolicy holds the state of a training run
type onPolicy struct {
	Config

	start        time.Time
	envStep      int
	gradientStep int

	bestEpoch     int
	bestReward    float64
	bestRewardStd float64
}

// OnPolicy runs the on-policy training loop. The policy is first tested
// to obtain an initial best reward. Then, in each epoch, data is
// collected and the policy updated until StepPerEpoch steps have been
// collected, after which the policy is tested again. Training stops
// after MaxEpoch epochs, once StopFn holds for the best test reward, or
// when ctx is cancelled.
func OnPolicy(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, errors.Wrap(err, "onPolicy")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}

	t := &onPolicy{Config: cfg, start: time.Now()}
	t.TrainCollector.ResetStat()
	t.TestCollector.ResetStat()

	test, err := t.test(ctx, 0)
	if err != nil {
		return Result{}, errors.Wrap(err, "onPolicy: initial test")
	}
	t.bestReward, t.bestRewardStd = test.Rew, test.RewStd
	if err := t.saveBest(); err != nil {
		return Result{}, err
	}
	klog.InfoS("Initial test", "reward", test.Rew, "rewardStd", test.RewStd)

	for epoch := 1; epoch <= t.MaxEpoch; epoch++ {
		stopped, err := t.trainEpoch(ctx, epoch)
		if err != nil {
			return t.result(), errors.Wrapf(err, "onPolicy: epoch %d", epoch)
		}
		if stopped {
			return t.result(), t.saveData(epoch)
		}

		test, err := t.test(ctx, epoch)
		if err != nil {
			return t.result(), errors.Wrapf(err, "onPolicy: epoch %d test",
				epoch)
		}
		if t.bestReward < test.Rew {
			t.bestEpoch = epoch
			t.bestReward, t.bestRewardStd = test.Rew, test.RewStd
			if err := t.saveBest(); err != nil {
				return t.result(), err
			}
		}
		if err := t.saveData(epoch); err != nil {
			return t.result(), err
		}

		klog.InfoS("Epoch finished", "epoch", epoch, "testReward", test.Rew,
			"testRewardStd", test.RewStd, "bestReward", t.bestReward,
			"bestRewardStd", t.bestRewardStd, "bestEpoch", t.bestEpoch)
		if t.Verbose {
			fmt.Fprintf(t.Out, "Epoch #%d: test_reward: %.6f ± %.6f, "+
				"best_reward: %.6f ± %.6f in #%d\n", epoch, test.Rew,
				test.RewStd, t.bestReward, t.bestRewardStd, t.bestEpoch)
		}

		if t.StopFn != nil && t.StopFn(t.bestReward) {
			break
		}
	}

	return t.result(), nil
}

// trainEpoch collects data and updates the policy until StepPerEpoch
// steps have been collected. It returns true if training stopped early
// because a test run after a training collection satisfied StopFn.
func (t *onPolicy) trainEpoch(ctx context.Context, epoch int) (bool, error) {
	var bar *progressbar.ManualProgressBar
	if t.Verbose {
		bar = progressbar.NewManualProgressBar(t.Out,
			fmt.Sprintf("Epoch #%d", epoch), 40, t.StepPerEpoch)
		defer bar.Finish()
	}

	t.Agent.Train()
	steps := 0
	var lastRew, lastLen float64
	for steps < t.StepPerEpoch {
		stats, err := t.TrainCollector.Collect(ctx, collector.Config{
			NStep:    t.StepPerCollect,
			NEpisode: t.EpisodePerCollect,
		})
		if err != nil {
			return false, err
		}
		t.envStep += stats.NSteps
		steps += stats.NSteps
		if t.Logger != nil {
			t.Logger.LogTrainData(stats, t.envStep)
		}
		if stats.NEpisodes > 0 {
			lastRew, lastLen = stats.Rew, stats.Len
		}
		if bar != nil {
			bar.Add(stats.NSteps)
			bar.SetPostfix(fmt.Sprintf("env_step=%d rew=%.2f len=%.0f",
				t.envStep, lastRew, lastLen))
			bar.Display()
		}

		if stats.NEpisodes > 0 && t.TestInTrain && t.StopFn != nil &&
			t.StopFn(stats.Rew) {
			test, err := t.test(ctx, epoch)
			if err != nil {
				return false, err
			}
			if t.StopFn(test.Rew) {
				t.bestEpoch = epoch
				t.bestReward, t.bestRewardStd = test.Rew, test.RewStd
				klog.InfoS("Stopping early", "epoch", epoch,
					"testReward", test.Rew)
				return true, t.saveBest()
			}
			t.Agent.Train()
		}

		losses, err := t.Agent.Update(0, t.TrainCollector.Buffer(),
			t.BatchSize, t.RepeatPerCollect)
		if err != nil {
			return false, err
		}
		t.TrainCollector.ResetBuffer()

		if len(losses) > 0 {
			t.gradientStep += len(losses)
		} else {
			t.gradientStep++
		}
		if t.Logger != nil {
			t.Logger.LogUpdateData(losses, t.gradientStep)
		}
	}
	return false, nil
}

// test resets the test collector and runs EpisodePerTest episodes with
// the policy in evaluation mode
func (t *onPolicy) test(ctx context.Context, epoch int) (collector.Stats,
	error) {
	if err := t.TestCollector.ResetEnv(); err != nil {
		return collector.Stats{}, err
	}
	t.TestCollector.ResetBuffer()

	t.Agent.Eval()
	stats, err := t.TestCollector.Collect(ctx, collector.Config{
		NEpisode: t.EpisodePerTest,
	})
	if err != nil {
		return stats, err
	}
	if t.Logger != nil {
		t.Logger.LogTestData(stats, t.envStep)
	}
	klog.V(1).InfoS("Tested", "epoch", epoch, "reward", stats.Rew,
		"rewardStd", stats.RewStd, "length", stats.Len)
	return stats, nil
}

// saveBest calls SaveBestFn if it is set
func (t *onPolicy) saveBest() error {
	if t.SaveBestFn == nil {
		return nil
	}
	if err := t.SaveBestFn(t.Agent); err != nil {
		return errors.Wrap(err, "could not save best policy")
	}
	return nil
}

// saveData checkpoints the agent and saves logged data
func (t *onPolicy) saveData(epoch int) error {
	if t.Checkpointer != nil {
		if err := t.Checkpointer.Checkpoint(epoch); err != nil {
			return errors.Wrap(err, "could not checkpoint")
		}
	}
	if t.Logger != nil {
		if err := t.Logger.Save(); err != nil {
			return errors.Wrap(err, "could not save logged data")
		}
	}
	return nil
}

// result gathers the statistics of the training run
func (t *onPolicy) result() Result {
	duration := time.Since(t.start)
	trainCollectTime := t.TrainCollector.CollectTime()
	testTime := t.TestCollector.CollectTime()

	r := Result{
		BestReward:       t.bestReward,
		BestRewardStd:    t.bestRewardStd,
		BestEpoch:        t.bestEpoch,
		TrainStep:        t.TrainCollector.CollectStep(),
		TrainEpisode:     t.TrainCollector.CollectEpisode(),
		TrainCollectTime: trainCollectTime,
		TrainModelTime:   duration - trainCollectTime - testTime,
		TestStep:         t.TestCollector.CollectStep(),
		TestEpisode:      t.TestCollector.CollectEpisode(),
		TestTime:         testTime,
		Duration:         duration,
	}
	if trainTime := duration - testTime; trainTime > 0 {
		r.TrainSpeed = float64(r.TrainStep) / trainTime.Seconds()
	}
	if testTime > 0 {
		r.TestSpeed = float64(r.TestStep) / testTime.Seconds()
	}
	return r
}

// pgtrain trains a categorical policy-gradient agent on a gym-style
// control task and checks that it reaches the task's reward threshold.
//
// See -help for flags.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/pgtrain/agent"
	"github.com/samuelfneumann/pgtrain/agent/nonlinear/discrete/pg"
	"github.com/samuelfneumann/pgtrain/buffer/replay"
	"github.com/samuelfneumann/pgtrain/config"
	env "github.com/samuelfneumann/pgtrain/environment"
	"github.com/samuelfneumann/pgtrain/environment/envconfig"
	"github.com/samuelfneumann/pgtrain/environment/vector"
	"github.com/samuelfneumann/pgtrain/experiment/checkpointer"
	"github.com/samuelfneumann/pgtrain/experiment/collector"
	"github.com/samuelfneumann/pgtrain/experiment/tracker"
	"github.com/samuelfneumann/pgtrain/experiment/trainer"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "pgtrain",
		Short: "Train a policy-gradient agent on a control task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			out := cmd.OutOrStdout()
			result, policy, err := run(ctx, cfg, out)
			if err != nil {
				return err
			}
			defer policy.Close()

			fmt.Fprintf(out, "%+v\n", result)
			return watch(ctx, cfg, policy, out)
		},
		SilenceUsage: true,
	}
	cfg.AddFlags(cmd.Flags())

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	return cmd
}

// envs creates n environments of the configured task inside a vector
// environment
func envs(cfg config.Config, n int, subproc bool) (vector.VectorEnv,
	envconfig.EnvSpec, error) {
	spec, err := envconfig.Spec(cfg.Task)
	if err != nil {
		return nil, envconfig.EnvSpec{}, err
	}
	factory, err := envconfig.Factory(cfg.Task)
	if err != nil {
		return nil, envconfig.EnvSpec{}, err
	}

	es := make([]env.Environment, n)
	for i := range es {
		es[i] = factory(cfg.Seed + uint64(i))
	}

	var venv vector.VectorEnv
	if subproc {
		venv, err = vector.NewSubproc(es)
	} else {
		venv, err = vector.NewDummy(es)
	}
	if err != nil {
		return nil, envconfig.EnvSpec{}, err
	}
	if err := venv.Seed(cfg.Seed); err != nil {
		venv.Close()
		return nil, envconfig.EnvSpec{}, err
	}
	return venv, spec, nil
}

// run trains a PG agent as configured by cfg and returns the training
// result together with the trained policy. An error is returned if
// the best test reward does not reach the reward threshold.
func run(ctx context.Context, cfg config.Config, out io.Writer) (
	result trainer.Result, _ *pg.PG, err error) {
	if err := cfg.Validate(); err != nil {
		return trainer.Result{}, nil, err
	}
	if cfg.Device != config.CPU {
		klog.Warningf("device %v is not supported, training on %v",
			cfg.Device, config.CPU)
	}

	trainEnvs, spec, err := envs(cfg, cfg.TrainingNum, cfg.Subproc)
	if err != nil {
		return trainer.Result{}, nil, errors.Wrap(err, "training envs")
	}
	testEnvs, _, err := envs(cfg, cfg.TestNum, false)
	if err != nil {
		trainEnvs.Close()
		return trainer.Result{}, nil, errors.Wrap(err, "test envs")
	}
	defer func() {
		var closeErr *multierror.Error
		closeErr = multierror.Append(closeErr, trainEnvs.Close())
		closeErr = multierror.Append(closeErr, testEnvs.Close())
		if err := closeErr.ErrorOrNil(); err != nil {
			klog.ErrorS(err, "Could not close environments")
		}
	}()

	rewardThreshold := cfg.ResolveRewardThreshold(spec.RewardThreshold)
	stopFn := trainer.RewardThreshold(rewardThreshold)
	klog.InfoS("Starting training", "task", cfg.Task, "rewardThreshold",
		rewardThreshold, "logPath", cfg.LogPath())

	// Policy
	e, _, err := envconfig.Make(cfg.Task, cfg.Seed)
	if err != nil {
		return trainer.Result{}, nil, err
	}
	agentConfig, err := pg.NewConfig(cfg.HiddenSizes, cfg.LR, cfg.Gamma,
		cfg.BatchSize, cfg.RewNorm == 1, cfg.Seed)
	if err != nil {
		return trainer.Result{}, nil, errors.Wrap(err, "agent config")
	}
	policy, err := pg.New(e, agentConfig, cfg.Seed)
	if err != nil {
		return trainer.Result{}, nil, errors.Wrap(err, "agent")
	}
	defer func() {
		if err != nil {
			policy.Close()
		}
	}()

	// Collectors
	obsDim := trainEnvs.ObservationSpec().Shape.Len()
	buffer, err := replay.NewVectorReplayBuffer(cfg.BufferSize,
		cfg.TrainingNum, obsDim, cfg.Seed)
	if err != nil {
		return trainer.Result{}, nil, errors.Wrap(err, "buffer")
	}
	trainCollector, err := collector.New(policy, trainEnvs, buffer, cfg.Seed)
	if err != nil {
		return trainer.Result{}, nil, errors.Wrap(err, "train collector")
	}
	testCollector, err := collector.New(policy, testEnvs, nil, cfg.Seed)
	if err != nil {
		return trainer.Result{}, nil, errors.Wrap(err, "test collector")
	}

	// Logging
	logPath := cfg.LogPath()
	if err := writeConfig(cfg, logPath); err != nil {
		return trainer.Result{}, nil, err
	}
	logger := tracker.NewDefaultScalarLogger(logPath)

	saveBest := checkpointer.NewBest(cfg.CheckpointPath())
	var ckpt checkpointer.Checkpointer
	if cfg.SaveInterval > 0 {
		ckpt, err = checkpointer.NewNStep(cfg.SaveInterval, policy,
			checkpointer.EpochFilename(filepath.Join(logPath, "checkpoint"),
				".ckpt"))
		if err != nil {
			return trainer.Result{}, nil, err
		}
	}

	result, err = trainer.OnPolicy(ctx, trainer.Config{
		Agent:             policy,
		TrainCollector:    trainCollector,
		TestCollector:     testCollector,
		MaxEpoch:          cfg.Epoch,
		StepPerEpoch:      cfg.StepPerEpoch,
		EpisodePerCollect: cfg.EpisodePerCollect,
		RepeatPerCollect:  cfg.RepeatPerCollect,
		EpisodePerTest:    cfg.TestNum,
		BatchSize:         cfg.BatchSize,
		StopFn:            stopFn,
		SaveBestFn: func(p agent.Policy) error {
			return saveBest(p)
		},
		Checkpointer: ckpt,
		Logger:       logger,
		TestInTrain:  true,
		Verbose:      cfg.Verbose,
		Out:          out,
	})
	if err != nil {
		return result, nil, err
	}

	if !stopFn(result.BestReward) {
		return result, nil, fmt.Errorf("best reward %v did not reach the "+
			"reward threshold %v", result.BestReward, rewardThreshold)
	}
	return result, policy, nil
}

// writeConfig writes the configuration of a run to config.json in dir
func writeConfig(cfg config.Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create log directory")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, "config.json"), data,
		0644), "could not write config")
}

// watch runs a single evaluation episode of policy on a fresh
// environment and prints its reward and length. If rendering is
// enabled, each frame is written to the render directory of the log
// path.
func watch(ctx context.Context, cfg config.Config, policy *pg.PG,
	out io.Writer) error {
	venv, _, err := envs(cfg, 1, false)
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	defer venv.Close()

	policy.Eval()
	c, err := collector.New(policy, venv, nil, cfg.Seed)
	if err != nil {
		return errors.Wrap(err, "watch")
	}

	collect := collector.Config{NEpisode: 1}
	if cfg.Render > 0 {
		dir := filepath.Join(cfg.LogPath(), "render")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "could not create render directory")
		}
		collect.Render = time.Duration(cfg.Render * float64(time.Second))
		frame := 0
		collect.Frame = func(_ int, img image.Image) error {
			frame++
			return gg.SavePNG(filepath.Join(dir,
				fmt.Sprintf("frame%05d.png", frame)), img)
		}
	}

	stats, err := c.Collect(ctx, collect)
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	fmt.Fprintf(out, "Final reward: %v, length: %v\n", stats.Rew, stats.Len)
	return nil
}

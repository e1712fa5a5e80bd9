// Package config holds the command line configuration of a PG training
// run
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Algorithm is the name of the algorithm, used as the last element of
// the log path
const Algorithm = "pg"

// CheckpointFile is the name of the best policy checkpoint written to
// the log path
const CheckpointFile = "policy.ckpt"

// Device is the device on which training runs
type Device string

const (
	Ascend Device = "Ascend"
	CPU    Device = "CPU"
	GPU    Device = "GPU"
)

// Devices returns all valid devices
func Devices() []Device {
	return []Device{Ascend, CPU, GPU}
}

// String implements pflag.Value
func (d *Device) String() string {
	return string(*d)
}

// Set implements pflag.Value. Only one of the values in Devices is
// accepted.
func (d *Device) Set(value string) error {
	for _, valid := range Devices() {
		if Device(value) == valid {
			*d = valid
			return nil
		}
	}
	return fmt.Errorf("invalid device %q, must be one of %v", value,
		Devices())
}

// Type implements pflag.Value
func (d *Device) Type() string {
	return "device"
}

// Config describes a PG training run
type Config struct {
	Task            string   `json:"task"`
	RewardThreshold *float64 `json:"reward_threshold,omitempty"`
	Seed            uint64   `json:"seed"`
	BufferSize      int      `json:"buffer_size"`
	LR              float64  `json:"lr"`
	Gamma           float64  `json:"gamma"`

	Epoch             int `json:"epoch"`
	StepPerEpoch      int `json:"step_per_epoch"`
	EpisodePerCollect int `json:"episode_per_collect"`
	RepeatPerCollect  int `json:"repeat_per_collect"`
	BatchSize         int `json:"batch_size"`

	HiddenSizes []int `json:"hidden_sizes"`
	TrainingNum int   `json:"training_num"`
	TestNum     int   `json:"test_num"`

	LogDir  string  `json:"logdir"`
	Render  float64 `json:"render"`
	RewNorm int     `json:"rew_norm"`
	Device  Device  `json:"device"`

	Subproc      bool `json:"subproc"`
	SaveInterval int  `json:"save_interval"`
	Verbose      bool `json:"verbose"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Task:              "CartPole-v0",
		Seed:              1,
		BufferSize:        20000,
		LR:                1e-3,
		Gamma:             0.95,
		Epoch:             10,
		StepPerEpoch:      40000,
		EpisodePerCollect: 8,
		RepeatPerCollect:  2,
		BatchSize:         64,
		HiddenSizes:       []int{64, 64},
		TrainingNum:       8,
		TestNum:           100,
		LogDir:            "log",
		Render:            0,
		RewNorm:           1,
		Device:            CPU,
		Verbose:           true,
	}
}

// thresholdFlag sets an optional float
type thresholdFlag struct {
	value **float64
}

func (t thresholdFlag) String() string {
	if t.value == nil || *t.value == nil {
		return ""
	}
	return fmt.Sprint(**t.value)
}

func (t thresholdFlag) Set(s string) error {
	var v float64
	if _, err := fmt.Sscan(s, &v); err != nil {
		return fmt.Errorf("invalid reward threshold %q: %v", s, err)
	}
	*t.value = &v
	return nil
}

func (t thresholdFlag) Type() string {
	return "float"
}

// AddFlags registers a flag for each field of c on fs, using the
// current values of c as defaults
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Task, "task", c.Task, "environment id")
	fs.Var(thresholdFlag{&c.RewardThreshold}, "reward-threshold",
		"mean test reward at which training stops (default: the task's)")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.IntVar(&c.BufferSize, "buffer-size", c.BufferSize,
		"total replay buffer size")
	fs.Float64Var(&c.LR, "lr", c.LR, "learning rate")
	fs.Float64Var(&c.Gamma, "gamma", c.Gamma, "discount factor")
	fs.IntVar(&c.Epoch, "epoch", c.Epoch, "number of epochs")
	fs.IntVar(&c.StepPerEpoch, "step-per-epoch", c.StepPerEpoch,
		"environment steps per epoch")
	fs.IntVar(&c.EpisodePerCollect, "episode-per-collect",
		c.EpisodePerCollect, "episodes collected between updates")
	fs.IntVar(&c.RepeatPerCollect, "repeat-per-collect",
		c.RepeatPerCollect, "passes over the collected data per update")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "minibatch size")
	fs.IntSliceVar(&c.HiddenSizes, "hidden-sizes", c.HiddenSizes,
		"hidden layer sizes of the policy network")
	fs.IntVar(&c.TrainingNum, "training-num", c.TrainingNum,
		"number of training environments")
	fs.IntVar(&c.TestNum, "test-num", c.TestNum,
		"number of test environments")
	fs.StringVar(&c.LogDir, "logdir", c.LogDir, "log root directory")
	fs.Float64Var(&c.Render, "render", c.Render,
		"seconds between rendered frames, 0 to disable")
	fs.IntVar(&c.RewNorm, "rew-norm", c.RewNorm,
		"normalize returns (0 or 1)")
	fs.Var(&c.Device, "device", fmt.Sprintf("device, one of %v",
		Devices()))
	fs.BoolVar(&c.Subproc, "subproc", c.Subproc,
		"step training environments in their own goroutines")
	fs.IntVar(&c.SaveInterval, "save-interval", c.SaveInterval,
		"epochs between checkpoints, 0 to disable")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose,
		"display training progress")
}

// Validate checks that c describes a valid training run
func (c Config) Validate() error {
	var problems []string
	positive := []struct {
		name  string
		value int
	}{
		{"buffer-size", c.BufferSize},
		{"epoch", c.Epoch},
		{"step-per-epoch", c.StepPerEpoch},
		{"episode-per-collect", c.EpisodePerCollect},
		{"repeat-per-collect", c.RepeatPerCollect},
		{"batch-size", c.BatchSize},
		{"training-num", c.TrainingNum},
		{"test-num", c.TestNum},
	}
	for _, p := range positive {
		if p.value <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, "+
				"got %d", p.name, p.value))
		}
	}

	if c.Task == "" {
		problems = append(problems, "task must be set")
	}
	if c.LR <= 0 {
		problems = append(problems, fmt.Sprintf("lr must be positive, "+
			"got %v", c.LR))
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		problems = append(problems, fmt.Sprintf("gamma must be in [0, 1], "+
			"got %v", c.Gamma))
	}
	if len(c.HiddenSizes) == 0 {
		problems = append(problems, "hidden-sizes must not be empty")
	}
	for _, size := range c.HiddenSizes {
		if size <= 0 {
			problems = append(problems, fmt.Sprintf("hidden-sizes must be "+
				"positive, got %v", c.HiddenSizes))
			break
		}
	}
	if c.Render < 0 {
		problems = append(problems, fmt.Sprintf("render must be "+
			"non-negative, got %v", c.Render))
	}
	if c.RewNorm != 0 && c.RewNorm != 1 {
		problems = append(problems, fmt.Sprintf("rew-norm must be 0 or 1, "+
			"got %d", c.RewNorm))
	}
	if c.SaveInterval < 0 {
		problems = append(problems, fmt.Sprintf("save-interval must be "+
			"non-negative, got %d", c.SaveInterval))
	}
	if err := (&c.Device).Set(string(c.Device)); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("validate: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogPath returns the directory logs and checkpoints are written to
func (c Config) LogPath() string {
	return filepath.Join(c.LogDir, c.Task, Algorithm)
}

// CheckpointPath returns the path of the best policy checkpoint
func (c Config) CheckpointPath() string {
	return filepath.Join(c.LogPath(), CheckpointFile)
}

// defaultThresholds are used for tasks when no reward threshold is
// given on the command line
var defaultThresholds = map[string]float64{
	"CartPole-v0": 195,
}

// ResolveRewardThreshold returns the reward threshold of the run: the
// command line value if set, otherwise the default of the task, and
// otherwise the threshold of the registered environment
func (c Config) ResolveRewardThreshold(envThreshold float64) float64 {
	if c.RewardThreshold != nil {
		return *c.RewardThreshold
	}
	if th, ok := defaultThresholds[c.Task]; ok {
		return th
	}
	return envThreshold
}

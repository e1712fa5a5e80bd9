// Package tracker implements loggers, which track the scalars produced
// while training and save them after training has finished
package tracker

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/pgtrain/experiment/collector"
)

// Names of the scalars logged
const (
	TrainReward   = "train/reward"
	TrainLength   = "train/length"
	TestReward    = "test/reward"
	TestRewardStd = "test/reward_std"
	TestLength    = "test/length"
	Loss          = "loss"
)

// Logger keeps track of training data and saves the data after
// training has finished
type Logger interface {
	// LogTrainData logs the statistics of a training collection at the
	// given environment step
	LogTrainData(stats collector.Stats, step int)

	// LogTestData logs the statistics of a test collection at the
	// given environment step
	LogTestData(stats collector.Stats, step int)

	// LogUpdateData logs the losses of an update at the given gradient
	// step
	LogUpdateData(losses []float64, step int)

	// Save saves all logged data
	Save() error
}

// Point is a single logged scalar
type Point struct {
	Step  int
	Value float64
}

// LoadData loads and returns the data saved by a ScalarLogger
func LoadData(filename string) (map[string][]Point, error) {
	// Open file
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open data file")
	}
	defer file.Close()

	// Create the decoder and the variable to store the data in
	dec := gob.NewDecoder(file)
	var data map[string][]Point

	// Decode the data
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Wrap(err, "could not decode data")
	}

	return data, nil
}

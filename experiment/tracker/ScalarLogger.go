package tracker

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"

	"github.com/samuelfneumann/pgtrain/experiment/collector"
)

// DataFile is the name of the file in which a ScalarLogger saves its
// data
const DataFile = "scalars.gob"

// ScalarLogger keeps logged scalars in memory and writes them to
// DataFile in its directory when saved. Each kind of data is logged
// at most once per interval of steps. Every logged scalar is also
// written to the klog info log at verbosity 2.
type ScalarLogger struct {
	dir string

	trainInterval  int
	testInterval   int
	updateInterval int

	lastTrain  int
	lastTest   int
	lastUpdate int

	data map[string][]Point
}

// NewScalarLogger returns a new ScalarLogger saving to dir, logging
// train data every trainInterval environment steps, test data every
// testInterval environment steps and update data every updateInterval
// gradient steps
func NewScalarLogger(dir string, trainInterval, testInterval,
	updateInterval int) *ScalarLogger {
	return &ScalarLogger{
		dir:            dir,
		trainInterval:  trainInterval,
		testInterval:   testInterval,
		updateInterval: updateInterval,
		lastTrain:      -1,
		lastTest:       -1,
		lastUpdate:     -1,
		data:           make(map[string][]Point),
	}
}

// NewDefaultScalarLogger returns a new ScalarLogger with a train and
// update interval of 1000 and a test interval of 1
func NewDefaultScalarLogger(dir string) *ScalarLogger {
	return NewScalarLogger(dir, 1000, 1, 1000)
}

// due returns whether enough steps have passed since last to log again
func due(step, last, interval int) bool {
	return last < 0 || step-last >= interval
}

// LogTrainData logs the mean return and length of training episodes.
// Nothing is logged if no episode finished.
func (s *ScalarLogger) LogTrainData(stats collector.Stats, step int) {
	if stats.NEpisodes == 0 || !due(step, s.lastTrain, s.trainInterval) {
		return
	}
	s.write(step, TrainReward, stats.Rew)
	s.write(step, TrainLength, stats.Len)
	s.lastTrain = step
}

// LogTestData logs the mean and standard deviation of the return and
// the mean length of test episodes
func (s *ScalarLogger) LogTestData(stats collector.Stats, step int) {
	if !due(step, s.lastTest, s.testInterval) {
		return
	}
	s.write(step, TestReward, stats.Rew)
	s.write(step, TestRewardStd, stats.RewStd)
	s.write(step, TestLength, stats.Len)
	s.lastTest = step
}

// LogUpdateData logs the mean loss of an update
func (s *ScalarLogger) LogUpdateData(losses []float64, step int) {
	if len(losses) == 0 || !due(step, s.lastUpdate, s.updateInterval) {
		return
	}
	s.write(step, Loss, stat.Mean(losses, nil))
	s.lastUpdate = step
}

func (s *ScalarLogger) write(step int, name string, value float64) {
	s.data[name] = append(s.data[name], Point{Step: step, Value: value})
	klog.V(2).InfoS("Scalar", "name", name, "step", step, "value", value)
}

// Data returns the points logged under name
func (s *ScalarLogger) Data(name string) []Point {
	return append([]Point{}, s.data[name]...)
}

// Save writes all logged data to DataFile in the logger's directory
func (s *ScalarLogger) Save() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(err, "could not create log directory")
	}

	filename := filepath.Join(s.dir, DataFile)
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "could not create %v", filename)
	}

	if err := gob.NewEncoder(file).Encode(s.data); err != nil {
		file.Close()
		return errors.Wrap(err, "could not encode data")
	}
	return errors.Wrapf(file.Close(), "could not close %v", filename)
}

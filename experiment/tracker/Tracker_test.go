package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/pgtrain/experiment/collector"
)

func TestScalarLoggerIntervals(t *testing.T) {
	l := NewScalarLogger(t.TempDir(), 10, 1, 2)

	stats := collector.Stats{NEpisodes: 2, Rew: 5, RewStd: 1, Len: 5}
	l.LogTrainData(stats, 4)
	l.LogTrainData(stats, 8)
	l.LogTrainData(stats, 14)
	l.LogTrainData(collector.Stats{}, 40)
	assert.Equal(t, []Point{{4, 5}, {14, 5}}, l.Data(TrainReward))
	assert.Len(t, l.Data(TrainLength), 2)

	l.LogTestData(stats, 0)
	l.LogTestData(stats, 1)
	assert.Equal(t, []Point{{0, 1}, {1, 1}}, l.Data(TestRewardStd))

	l.LogUpdateData([]float64{1, 3}, 1)
	l.LogUpdateData([]float64{1, 3}, 2)
	l.LogUpdateData([]float64{5}, 3)
	l.LogUpdateData(nil, 10)
	assert.Equal(t, []Point{{1, 2}, {3, 5}}, l.Data(Loss))
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "CartPole-v0", "pg")
	l := NewDefaultScalarLogger(dir)
	l.LogTestData(collector.Stats{Rew: 9.5, RewStd: 0.5, Len: 9.5}, 0)
	require.NoError(t, l.Save())

	data, err := LoadData(filepath.Join(dir, DataFile))
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 9.5}}, data[TestReward])
	assert.Equal(t, []Point{{0, 0.5}}, data[TestRewardStd])

	_, err = LoadData(filepath.Join(dir, "missing.gob"))
	assert.Error(t, err)
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	l := NewDefaultScalarLogger(dir)
	l.LogTestData(collector.Stats{Rew: 1}, 0)
	require.NoError(t, l.Save())

	l.LogTestData(collector.Stats{Rew: 2}, 1)
	require.NoError(t, l.Save())

	data, err := LoadData(filepath.Join(dir, DataFile))
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 1}, {1, 2}}, data[TestReward])
}

func TestSaveUnwritable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, DataFile), 0755))

	l := NewDefaultScalarLogger(dir)
	l.LogTestData(collector.Stats{Rew: 1}, 0)
	assert.Error(t, l.Save())
}

package checkpointer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// text is a Serializable string
type text string

func (t text) Save(path string) error {
	return os.WriteFile(path, []byte(t), 0644)
}

func TestBest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CartPole-v0", "pg", "policy.ckpt")
	saveBest := NewBest(path)

	require.NoError(t, saveBest(text("first")))
	require.NoError(t, saveBest(text("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	assert.Error(t, saveBest(42))
}

func TestNStep(t *testing.T) {
	dir := t.TempDir()
	c, err := NewNStep(2, text("policy"),
		EpochFilename(filepath.Join(dir, "checkpoint"), ".ckpt"))
	require.NoError(t, err)

	for epoch := 1; epoch <= 5; epoch++ {
		require.NoError(t, c.Checkpoint(epoch))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{"checkpoint2.ckpt", "checkpoint4.ckpt"}, names)

	_, err = NewNStep(0, text("policy"), EpochFilename("checkpoint", ""))
	assert.Error(t, err)
	_, err = NewNStep(1, text("policy"), nil)
	assert.Error(t, err)
}

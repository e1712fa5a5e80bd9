package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewManualProgressBar(&buf, "Epoch #1", 10, 4)

	bar.Add(2)
	assert.Equal(t, 2, bar.Progress())
	assert.Contains(t, bar.String(), "50.00%")
	assert.True(t, strings.HasPrefix(bar.String(), "Epoch #1 |"))

	bar.Add(10)
	assert.Equal(t, 4, bar.Progress())

	bar.SetPostfix("rew=1.00")
	bar.Finish()
	assert.Contains(t, buf.String(), "100.00%")
	assert.Contains(t, buf.String(), "rew=1.00")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

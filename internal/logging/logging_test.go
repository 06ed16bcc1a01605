package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pase.log")
	log, closer, err := Setup(Options{Path: path, Level: "DEBUG"})
	require.NoError(t, err)

	log.WithField("order", "c1").Debug("dish ready")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dish ready")
	assert.Contains(t, string(data), "order=c1")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	_, _, err := Setup(Options{Path: filepath.Join(t.TempDir(), "x.log"), Level: "loud"})
	assert.ErrorContains(t, err, "unknown log level")
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, logrus.InfoLevel)
	log.Debug("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=warning")
	assert.NotContains(t, out, "\x1b[", "colors are disabled")
}

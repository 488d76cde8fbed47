package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		Logger = newLogger()
	})

	require.NoError(t, Configure("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	WithField("file", "f-1").Debug("renamed")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "renamed", line["msg"])
	assert.Equal(t, "f-1", line["file"])
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	t.Cleanup(func() {
		Logger = newLogger()
	})
	assert.Error(t, Configure("loud", "text"))
}

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	defer func() {
		SetOutput(os.Stderr)
		_ = Configure("info", "json")
	}()

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	WithFields(logrus.Fields{"request_id": "abc", "contours": 3}).Debug("converted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "converted", entry["msg"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.Equal(t, float64(3), entry["contours"])

	buf.Reset()
	require.NoError(t, Configure("warn", "text"))
	Info("hidden")
	assert.Empty(t, buf.String())
	Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, Configure("", "xml"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, parseLevel(""))
	assert.Equal(t, logrus.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, logrus.ErrorLevel, parseLevel("error"))
}

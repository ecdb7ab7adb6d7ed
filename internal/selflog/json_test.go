package selflog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON_EmptyPathWritesStderrJSONLines(t *testing.T) {
	log := NewJSON("")
	jl, ok := log.(*jsonLogger)
	require.True(t, ok)

	var buf bytes.Buffer
	jl.log.Logger.SetOutput(&buf)
	jl.WithField("attempt", 3).Warn("clamped batchSize")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "clamped batchSize", decoded["msg"])
	assert.Equal(t, "warning", decoded["level"])
	assert.Equal(t, float64(3), decoded["attempt"])
	assert.Equal(t, "healops", decoded["component"])
}

func TestNewJSON_PathEnablesFileRotationTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "healops.log")

	log := NewJSON(path)
	log.Info("diagnostic logger started")

	_, err := os.Stat(path)
	require.NoError(t, err, "expected lumberjack to create the log file on first write")
}

func TestNew_DispatchesToConfiguredMode(t *testing.T) {
	assert.IsType(t, &jsonLogger{}, New(ModeJSON, ""))
	assert.IsType(t, &noopLogger{}, New(ModeOff, ""))
	assert.IsType(t, &noopLogger{}, New(Mode("bogus"), ""))
}

func TestJSONLogger_WithFieldsChaining(t *testing.T) {
	log := NewJSON("")
	chained := log.WithFields(map[string]any{"requestId": "abc", "retry": 1})
	jl, ok := chained.(*jsonLogger)
	require.True(t, ok)
	assert.Equal(t, logrus.Fields{"component": "healops", "requestId": "abc", "retry": 1}, jl.log.Data)
}

package observability

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/jinjor/flux/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConsoleLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "flux"}, zapcore.AddSync(&buf))

	GetLogger().Debug("clock switched")
	Sync()
	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "flux.")
	assert.Contains(t, out, "clock switched")
}

func TestJSONLoggerRespectsLevel(t *testing.T) {
	ResetForTest()
	defer ResetForTest()
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "flux"}, zapcore.AddSync(&buf))

	GetLogger().Info("dropped")
	GetLogger().Warn("kept")
	Sync()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "flux", entry["logger"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	defer ResetForTest()
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
	GetLogger().Debug("hidden")
	GetLogger().Info("shown")
	Sync()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestStdLogIsRedirected(t *testing.T) {
	ResetForTest()
	defer ResetForTest()
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	log.Print("from the standard logger")
	Sync()
	assert.Contains(t, buf.String(), "from the standard logger")
}

func TestInitializeOnce(t *testing.T) {
	ResetForTest()
	defer ResetForTest()
	var first, second bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
	GetLogger().Info("hello")
	Sync()
	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestFileLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()
	path := filepath.Join(t.TempDir(), "flux.log")
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&buf))
	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestFallbackLogger(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
}

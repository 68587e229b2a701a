package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raainshe/animedash/internal/config"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()

	_, err := Initialize(&config.LoggingConfig{Level: "debug", ToStdout: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	GetLogger().Logger.SetOutput(&buf)
	GetLogger().Logger.SetFormatter(&logrus.JSONFormatter{})
	t.Cleanup(func() { loggerInstance = nil })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestInitialize_InvalidLevel(t *testing.T) {
	_, err := Initialize(&config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestInitialize_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "animedash.log")

	logger, err := Initialize(&config.LoggingConfig{Level: "info", File: file, MaxSize: 1})
	require.NoError(t, err)
	t.Cleanup(func() { loggerInstance = nil })

	assert.NotNil(t, logger.file)
	assert.FileExists(t, file)
	Shutdown()
}

func TestWithComponent_AddsComponentField(t *testing.T) {
	buf := captureLogger(t)

	GetDashboardLogger().Info("refreshed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "dashboard", entry["component"])
	assert.Equal(t, "refreshed", entry["msg"])
}

func TestLogError_IncludesContext(t *testing.T) {
	buf := captureLogger(t)

	LogError(ComponentLibrary, "fetch_library", errors.New("boom"), map[string]interface{}{"url": "/api/library/list"})

	entry := decodeLine(t, buf)
	assert.Equal(t, "library", entry["component"])
	assert.Equal(t, "fetch_library", entry["operation"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "/api/library/list", entry["url"])
}

func TestLogLogin_MasksUsername(t *testing.T) {
	buf := captureLogger(t)

	LogLogin("http://localhost:5000", "administrator", nil)

	entry := decodeLine(t, buf)
	assert.Equal(t, "ad***********", entry["username"])
	assert.Equal(t, "login", entry["action"])
}

func TestSetLogLevel(t *testing.T) {
	captureLogger(t)

	require.NoError(t, SetLogLevel("WARN"))
	assert.Equal(t, "warning", GetLogLevel())
	assert.Error(t, SetLogLevel("nope"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "ad***", maskSecret("admin"))
}

func TestLogCommand_UsesCLIComponent(t *testing.T) {
	buf := captureLogger(t)

	LogCommand("status", []string{"--json"})

	entry := decodeLine(t, buf)
	assert.Equal(t, "cli", entry["component"])
	assert.Equal(t, "status", entry["command"])
	assert.Equal(t, "CLI command executed", entry["msg"])
}

func TestWithComponent_ConfigFields(t *testing.T) {
	buf := captureLogger(t)

	GetLogger().WithComponent(ComponentConfig).WithFields(logrus.Fields{"credentials": true}).Debug("Configuration loaded")

	entry := decodeLine(t, buf)
	assert.Equal(t, "config", entry["component"])
	assert.Equal(t, true, entry["credentials"])
}

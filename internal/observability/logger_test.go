// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// -- Test Cases --

func TestInitialize(t *testing.T) {

	t.Run("should initialize console logger", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
		}
		Initialize(cfg, zapcore.AddSync(&buf))
		logger := GetLogger()
		logger.Info("This is a test message.")
		_ = logger.Sync()

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.", "Output should contain the message")
		assert.Contains(t, output, "TestService.", "Console names carry a trailing dot")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		}
		Initialize(cfg, zapcore.AddSync(&buf))
		logger := GetLogger()
		logger.Warn("This is a JSON message.", zap.String("key", "value"))
		_ = logger.Sync()

		// -- the output should be a valid JSON object --
		var logEntry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &logEntry)
		require.NoError(t, err, "Log output should be valid JSON")

		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
		GetLogger().Info("should be filtered")
		GetLogger().Warn("should appear")
		_ = GetLogger().Sync()

		assert.NotContains(t, buf.String(), "should be filtered")
		assert.Contains(t, buf.String(), "should appear")
	})

	t.Run("should fall back to info on a bad level", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "nonsense", Format: "json"}, zapcore.AddSync(&buf))
		GetLogger().Info("still logs at info")
		_ = GetLogger().Sync()

		assert.Contains(t, buf.String(), "still logs at info")
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		logFile := filepath.Join(t.TempDir(), "deskpilot-test.log")

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logFile,
			MaxSize: 1,
		}
		Initialize(cfg, zapcore.AddSync(&bytes.Buffer{}))
		GetLogger().Error("written to file")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "written to file"))
	})

	t.Run("second initialize is a no-op", func(t *testing.T) {
		ResetForTest()
		var first, second bytes.Buffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
		GetLogger().Info("routed to the first writer")
		_ = GetLogger().Sync()

		assert.Contains(t, first.String(), "routed to the first writer")
		assert.Empty(t, second.String())
	})
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger(), "a fallback logger must always be available")
}

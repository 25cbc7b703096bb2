package observability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/EngThi/YT/internal/config"
)

func encodeEntry(t *testing.T, enc zapcore.Encoder, level zapcore.Level, msg string) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{Level: level, Message: msg}, nil)
	require.NoError(t, err)
	return buf.String()
}

func TestConsoleEncoderColorizesLevels(t *testing.T) {
	cfg := config.LoggerConfig{
		Format: "console",
		Colors: config.ColorConfig{Info: "green", Error: "red"},
	}
	enc := getEncoder(cfg)

	infoLine := encodeEntry(t, enc, zapcore.InfoLevel, "hello")
	assert.Contains(t, infoLine, colorGreen)
	assert.Contains(t, infoLine, "INFO")
	assert.Contains(t, infoLine, colorReset)

	errLine := encodeEntry(t, enc, zapcore.ErrorLevel, "boom")
	assert.Contains(t, errLine, colorRed)
}

func TestConsoleEncoderUnknownColorFallsBack(t *testing.T) {
	cfg := config.LoggerConfig{
		Format: "console",
		Colors: config.ColorConfig{Warn: "mauve"},
	}
	line := encodeEntry(t, getEncoder(cfg), zapcore.WarnLevel, "hm")
	assert.Contains(t, line, "WARN")
	for _, code := range []string{colorRed, colorGreen, colorYellow, colorBlue} {
		assert.NotContains(t, line, code)
	}
}

func TestJSONEncoderHasNoColorCodes(t *testing.T) {
	line := encodeEntry(t, getEncoder(config.LoggerConfig{Format: "json"}), zapcore.InfoLevel, "structured")
	assert.True(t, strings.Contains(line, `"INFO"`))
	assert.NotContains(t, line, "\x1b[")
}

func TestGetLoggerBeforeInitializeFallsBack(t *testing.T) {
	// Do not call InitializeLogger here; the fallback must be usable.
	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Debug("fallback logger works")
}

func TestColorMapCoversConfiguredNames(t *testing.T) {
	for _, name := range []string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"} {
		assert.NotEmpty(t, colorMap[name], "color %q must map to an ANSI code", name)
	}
}

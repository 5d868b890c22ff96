package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("verbose"))
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "integration_id", "int-1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "integration_id=int-1")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****wxyz", logging.MaskSecret("APP_USR-abcdwxyz"))
	assert.Equal(t, "****", logging.MaskSecret("abc"))
}

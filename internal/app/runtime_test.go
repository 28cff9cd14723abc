package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestModeToggle(t *testing.T) {
	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelInfo, logLevel(nil))
	require.Equal(t, slog.LevelDebug, logLevel(&Config{LogLevel: "debug"}))
	require.Equal(t, slog.LevelWarn, logLevel(&Config{LogLevel: " WARN "}))
	require.Equal(t, slog.LevelInfo, logLevel(&Config{LogLevel: "chatty"}))
}

package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevelFallback(t *testing.T) {
	l, err := NewLogger(Config{Level: "loud", OutputPath: filepath.Join(t.TempDir(), "out.log")})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerDebugConsole(t *testing.T) {
	l, err := NewLogger(Config{
		Level:      "debug",
		Format:     "console",
		OutputPath: filepath.Join(t.TempDir(), "out.log"),
		Fields:     map[string]string{"service": "editor"},
	})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	l.Debug("hello")
	require.NoError(t, l.Sync())
}

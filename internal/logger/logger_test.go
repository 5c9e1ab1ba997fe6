package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug"))
	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("warn"))
	assert.False(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zapcore.ErrorLevel))

	assert.Error(t, Init("loud"))
}

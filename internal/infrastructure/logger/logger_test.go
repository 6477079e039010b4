package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		l, err := NewLogger("debug")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.DebugLevel))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		l, err := NewLogger("chatty")
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zap.DebugLevel))
		assert.True(t, l.Core().Enabled(zap.InfoLevel))
	})
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := New(zap.New(core)).WithComponent("graph-builder")

	l.Info("hello", zap.String("address", "0xabc"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "graph-builder", fields["component"])
	assert.Equal(t, "0xabc", fields["address"])
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := New(zap.New(core)).WithFields(map[string]interface{}{"network": "ethereum", "depth": 2})

	l.Info("trace")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ethereum", fields["network"])
	assert.EqualValues(t, 2, fields["depth"])
}

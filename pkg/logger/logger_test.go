package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestChildLoggersCarryFields(t *testing.T) {
	l, logs := observed()

	l.Named("chat").WithConversation("c1").Info("turn completed")
	l.WithRequest("corr", "").Info("request completed")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "chat", entries[0].LoggerName)
		assert.Equal(t, "c1", entries[0].ContextMap()["conversation_id"])

		ctx := entries[1].ContextMap()
		assert.Equal(t, "corr", ctx["correlation_id"])
		assert.NotContains(t, ctx, "request_id")
	}
}

func TestNew(t *testing.T) {
	l, err := New(Options{Level: "warn"})
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	dev, err := New(Options{Level: "debug", Development: true})
	assert.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestSetGlobal(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	l := NewNop()
	SetGlobal(l)
	assert.Same(t, l, Global())
}

package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithFields(map[string]interface{}{"component": "wizard"}).
		Info("transition", map[string]interface{}{"from": "IntakePending", "to": "IntakeSubmitting"})
	log.WithError(errors.New("boom")).Error("request failed", nil)
	log.Debug("cache hit", map[string]interface{}{"key": "listDeals"})

	entries := logs.All()
	assert.Len(t, entries, 3)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "wizard", ctx["component"])
	assert.Equal(t, "IntakeSubmitting", ctx["to"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestZapWrapper_RedactsCredentials(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.Info("token saved", map[string]interface{}{"Access": "access-1", "refresh": "refresh-1", "user": "alice"})

	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "[redacted]", ctx["Access"])
	assert.Equal(t, "[redacted]", ctx["refresh"])
	assert.Equal(t, "alice", ctx["user"])
}

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, "json", "stderr")
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	log.Info("ignored", map[string]interface{}{"k": "v"})
	assert.NoError(t, log.Sync())
}

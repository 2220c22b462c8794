package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		debug bool
		want  zapcore.Level
	}{
		{"default production", "", false, zapcore.InfoLevel},
		{"default debug", "", true, zapcore.DebugLevel},
		{"explicit warn", "warn", false, zapcore.WarnLevel},
		{"explicit level wins over debug", "error", true, zapcore.ErrorLevel},
		{"upper case", "DEBUG", false, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.debug)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Level())
		})
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := New("chatty", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

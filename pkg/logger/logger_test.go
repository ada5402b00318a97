package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw     string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warning ", zapcore.WarnLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"Error", zapcore.ErrorLevel, false},
		{"", zapcore.InfoLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			level, err := ParseLevel(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, level)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvEncoding, "console")

	config, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, config.Level)
	require.Equal(t, "console", config.Encoding)
	require.Equal(t, "stderr", config.OutputPath)
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv(EnvLevel, "loud")
	_, err := ConfigFromEnv()
	require.Error(t, err)

	t.Setenv(EnvLevel, "")
	t.Setenv(EnvEncoding, "xml")
	_, err = ConfigFromEnv()
	require.Error(t, err)
}

func TestSetAndGet(t *testing.T) {
	previous := Get()
	defer Set(previous)

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	Get().Debug("resolved", zap.String("path", "a/b"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "resolved", entry.Message)
	require.Equal(t, "a/b", entry.ContextMap()["path"])
}

func TestInit_InvalidOutputFallsBackToNop(t *testing.T) {
	previous := Get()
	defer Set(previous)

	config := DefaultConfig()
	config.OutputPath = "unknown-scheme://nowhere"
	require.Error(t, Init(config))
	require.NotNil(t, Get())
}

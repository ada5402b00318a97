// Package logger provides the global zap logger shared by the pathtemplate packages.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvLevel    = "PATHTEMPLATE_LOG_LEVEL"
	EnvEncoding = "PATHTEMPLATE_LOG_ENCODING"
)

var (
	mu           sync.RWMutex
	globalLogger *zap.Logger
)

// Config holds the logger configuration options
type Config struct {
	Level      zapcore.Level
	Encoding   string
	OutputPath string
	ErrorPath  string
}

// DefaultConfig returns a JSON logger writing info and above to stderr, leaving
// stdout to the command output.
func DefaultConfig() Config {
	return Config{
		Level:      zapcore.InfoLevel,
		Encoding:   "json",
		OutputPath: "stderr",
		ErrorPath:  "stderr",
	}
}

// ConfigFromEnv starts from DefaultConfig and applies PATHTEMPLATE_LOG_LEVEL and
// PATHTEMPLATE_LOG_ENCODING when set.
func ConfigFromEnv() (Config, error) {
	config := DefaultConfig()
	if raw := os.Getenv(EnvLevel); raw != "" {
		level, err := ParseLevel(raw)
		if err != nil {
			return config, err
		}
		config.Level = level
	}
	if raw := os.Getenv(EnvEncoding); raw != "" {
		switch encoding := strings.ToLower(strings.TrimSpace(raw)); encoding {
		case "json", "console":
			config.Encoding = encoding
		default:
			return config, fmt.Errorf("invalid %s %q, must be json or console", EnvEncoding, raw)
		}
	}
	return config, nil
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitive.
func ParseLevel(raw string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", raw)
}

// Build creates a logger from config without installing it.
func Build(config Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(config.Level)
	zapConfig.Encoding = config.Encoding
	zapConfig.OutputPaths = []string{config.OutputPath}
	zapConfig.ErrorOutputPaths = []string{config.ErrorPath}

	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.LevelKey = "level"
	zapConfig.EncoderConfig.MessageKey = "message"
	zapConfig.EncoderConfig.CallerKey = "caller"
	zapConfig.EncoderConfig.StacktraceKey = "stacktrace"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return zapConfig.Build()
}

// Init builds a logger from config and installs it as the global logger. On failure
// the global logger becomes a no-op logger and the error is returned.
func Init(config Config) error {
	l, err := Build(config)
	if err != nil {
		l = zap.NewNop()
	}
	Set(l)
	return err
}

// Set replaces the global logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
}

// Get returns the global logger instance.
// If the logger hasn't been initialized, it will be initialized with default config.
func Get() *zap.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil {
		built, err := Build(DefaultConfig())
		if err != nil {
			built = zap.NewNop()
		}
		globalLogger = built
	}
	return globalLogger
}

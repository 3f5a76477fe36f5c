// Package logger provides structured logging for the agent
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	mu           sync.RWMutex
)

// contextKey is the type for context keys
type contextKey string

const (
	// JobIDKey is the context key for the job ID
	JobIDKey contextKey = "job_id"
	// GroupIDKey is the context key for the data group ID
	GroupIDKey contextKey = "group_id"
	// StreamIDKey is the context key for the data stream ID
	StreamIDKey contextKey = "stream_id"
)

// Config represents logger configuration
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	OutputPaths []string
}

// Init builds a logger from cfg and installs it as the global logger.
// Calling Init again replaces the previous logger.
func Init(cfg Config) error {
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set installs l as the global logger. Tests use it with zaptest loggers.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
}

func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}

	// Messages go to stdout in the CLI, so logs default to stderr.
	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Development {
		logger = logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return logger, nil
}

// Get returns the global logger, creating an info-level JSON logger on first
// use if Init was never called.
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
		l, err := newLogger(Config{Level: "info", Encoding: "json"})
		if err != nil {
			l = zap.NewNop()
		}
		globalLogger = l
	}
	return globalLogger
}

// ForReader returns a child of base tagged with the reader name and the
// group/stream the reader feeds. A nil base means the global logger.
func ForReader(base *zap.Logger, name, groupID, streamID string) *zap.Logger {
	if base == nil {
		base = Get()
	}
	return base.With(
		zap.String("connector", name),
		zap.String("group_id", groupID),
		zap.String("stream_id", streamID),
	)
}

// WithContext returns a logger with context values
func WithContext(ctx context.Context) *zap.Logger {
	logger := Get()

	if jobID, ok := ctx.Value(JobIDKey).(string); ok {
		logger = logger.With(zap.String("job_id", jobID))
	}
	if groupID, ok := ctx.Value(GroupIDKey).(string); ok {
		logger = logger.With(zap.String("group_id", groupID))
	}
	if streamID, ok := ctx.Value(StreamIDKey).(string); ok {
		logger = logger.With(zap.String("stream_id", streamID))
	}

	return logger
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// Package logging provides the daemon's structured logger.
package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var once sync.Once

// Logger enforces the field-based logging style used across the daemon.
type Logger struct {
	*zap.SugaredLogger
}

// integerLevelEncoder writes levels as numbers: debug 20, info 30,
// warn 40, error 50.
func integerLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt8((int8(l) + 3) * 10)
}

var appLogger *Logger

// New builds a new Logger. In local development (MONITORD_ENV=local) it
// uses zap's development config; otherwise production JSON on stdout.
func New() *Logger {
	var cfg zap.Config
	outputLevel := zap.InfoLevel
	if levelEnv := os.Getenv("LOG_LEVEL"); levelEnv != "" {
		lvl, err := zapcore.ParseLevel(levelEnv)
		if err != nil {
			log.Println(fmt.Errorf("invalid log level, defaulting to INFO: %w", err))
		} else {
			outputLevel = lvl
		}
	}

	if os.Getenv("MONITORD_ENV") != "local" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stdout"}
		cfg.InitialFields = map[string]any{"name": "probed"}
		cfg.EncoderConfig.EncodeLevel = integerLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.TimeKey = "time"
		cfg.Level = zap.NewAtomicLevelAt(outputLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{SugaredLogger: logger.Sugar()}
}

// Default returns the process-wide logger, creating it on first use.
func Default() *Logger {
	once.Do(func() {
		appLogger = New()
	})
	return appLogger
}

// WithTask returns a child logger tagged with a task id.
func (l *Logger) WithTask(taskID string) *Logger {
	return &Logger{l.With("task_id", taskID)}
}

// FromContext returns the Logger attached to ctx, or the process default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

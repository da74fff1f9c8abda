// Package logger builds the process zap logger and hands out named
// component loggers.
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
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	initOnce    sync.Once
	initialized bool
)

// New builds a logger writing to stdout at the given level.
func New(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	switch format {
	case FormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(lvl))
	return zap.New(core, zap.AddCaller()), nil
}

// Initialize replaces the zap globals. Only the first call has effect.
func Initialize(level, format string) error {
	var err error
	initOnce.Do(func() {
		var l *zap.Logger
		l, err = New(level, format)
		if err != nil {
			return
		}
		zap.ReplaceGlobals(l)
		initialized = true
		l.Info("logger initialized", zap.String("level", level), zap.String("format", format))
	})
	return err
}

// For returns a named logger for one component.
func For(component string) *zap.SugaredLogger {
	if !initialized {
		_ = Initialize("info", FormatJSON)
	}
	return zap.S().Named(component)
}

// Sync flushes buffered entries.
func Sync() error {
	return zap.L().Sync()
}

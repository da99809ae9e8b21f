package zaplog

import (
	"go.uber.org/zap"

	"github.com/arloliu/tether/types"
)

// Logger adapts a *zap.Logger to types.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Compile-time assertion that Logger implements types.Logger.
var _ types.Logger = (*Logger)(nil)

// New wraps a zap logger.
//
// Key/value pairs passed to the logging methods become zap fields. A nil
// logger yields a no-op logger.
//
// Parameters:
//   - l: The zap logger to write to
//
// Returns:
//   - *Logger: A logger usable with tether.WithLogger
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	w, _ := tether.New[pb.InventoryClient](factory,
//	    tether.WithLogger(zaplog.New(logger.Named("inventory"))),
//	)
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}

	return &Logger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

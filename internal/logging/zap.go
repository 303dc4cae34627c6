package logging

import (
	"go.uber.org/zap"

	"github.com/c1ydehhx/upflb/types"
)

// ZapLogger implements types.Logger on top of a zap.SugaredLogger.
//
// Key/value pairs are passed to the sugared "w" methods, so the output is
// structured the same way as with SlogLogger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ types.Logger = (*ZapLogger)(nil)

// NewZap wraps a sugared zap logger. A nil logger is replaced by zap.NewNop().
//
// Example:
//
//	base, _ := zap.NewProduction()
//	logger := logging.NewZap(base.Sugar())
func NewZap(logger *zap.SugaredLogger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &ZapLogger{logger: logger}
}

// Debug logs at debug level.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

// Info logs at info level.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

// Warn logs at warning level.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

// Error logs at error level.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

// Fatal logs at fatal level and exits the process.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.logger.Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

package types

// Logger is the structured logger every upflb component writes to.
//
// Fields follow the message as alternating key, value arguments, the
// convention shared by zap.SugaredLogger and log/slog. internal/logging holds
// adapters for both plus a no-op logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// Fatal logs and then terminates. Production adapters exit the process;
	// test loggers fail the test instead.
	Fatal(msg string, keysAndValues ...any)
}

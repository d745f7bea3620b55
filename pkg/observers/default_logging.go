package observers

import "log/slog"

// NewDefaultLoggingObserver creates a logging observer on slog.Default for the phase machine
func NewDefaultLoggingObserver() *LoggingObserver {
	return NewLoggingObserver(slog.Default(), "phase_machine")
}

package restyle

import "log/slog"

var logger = slog.Default()

// SetLogger replaces the package level logger.
// A nil input resets it to [slog.Default].
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}

	logger = l
}

package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog closes closer and logs a failure instead of returning it.
// Use it in defers where the primary error must win.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}

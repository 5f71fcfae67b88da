package app

import (
	"io"
	"log/slog"

	"github.com/flemzord/botstrap/internal/security"
)

// NewLogger builds the process logger. Format "auto" picks the text handler
// when w is a terminal and JSON otherwise. Every record passes through the
// redactor before it is written.
func NewLogger(w io.Writer, format string, isTerminal bool, level slog.Level, redactor *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch {
	case format == "json", format != "text" && !isTerminal:
		inner = slog.NewJSONHandler(w, opts)
	default:
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

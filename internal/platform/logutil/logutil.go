// Package logutil provides small helpers around log/slog so constructors
// can accept an optional logger without nil checks at every call site.
package logutil

import (
	"io"
	"log/slog"
)

// discard is the shared no-output logger.
var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Noop returns a logger that drops everything.
func Noop() *slog.Logger { return discard }

// NoopIfNil returns l when non-nil, otherwise a discard logger.
// Intended as the first line in constructors that accept *slog.Logger.
func NoopIfNil(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return discard
}

// Component returns l annotated with a component attribute, discarding
// output when l is nil. Used by wiring code to hand each subsystem a
// recognizable logger.
func Component(l *slog.Logger, name string) *slog.Logger {
	return NoopIfNil(l).With("component", name)
}

// Package logging wires up the decred/slog backend used across the server.
//
// The teacher repo (vctt94-pokerbisonrelay) gets its per-subsystem slog.Logger
// values from github.com/vctt94/bisonbotkit/logging, a small wrapper that isn't
// fetchable here (it's local-replaced to a sibling checkout in the teacher's
// go.mod). This package reproduces the same shape — a backend you construct
// once and then ask for named subsystem loggers — directly on top of the real
// github.com/decred/slog package.
package logging

import (
	"io"
	"os"

	"github.com/decred/slog"
)

// Config controls backend construction.
type Config struct {
	// DebugLevel is one of trace, debug, info, warn, error, critical, off.
	DebugLevel string
	// Writer receives formatted log lines. Defaults to os.Stdout.
	Writer io.Writer
}

// Backend hands out tagged slog.Logger instances sharing one output stream
// and level, mirroring logBackend.Logger("SUBSYSTEM") in the teacher.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
}

// NewBackend constructs a Backend from Config, defaulting to info level and
// stdout when left unset.
func NewBackend(cfg Config) (*Backend, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	level := slog.LevelInfo
	if cfg.DebugLevel != "" {
		lvl, ok := slog.LevelFromString(cfg.DebugLevel)
		if !ok {
			return nil, &UnknownLevelError{Level: cfg.DebugLevel}
		}
		level = lvl
	}

	return &Backend{
		backend: slog.NewBackend(w),
		level:   level,
	}, nil
}

// Logger returns a tagged logger at the backend's configured level.
func (b *Backend) Logger(subsystemTag string) slog.Logger {
	l := b.backend.Logger(subsystemTag)
	l.SetLevel(b.level)
	return l
}

// UnknownLevelError reports an unrecognized -debuglevel value.
type UnknownLevelError struct {
	Level string
}

func (e *UnknownLevelError) Error() string {
	return "unknown log level: " + e.Level
}

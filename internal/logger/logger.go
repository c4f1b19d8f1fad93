// Package logger configures the zerolog logger shared by the CLI, the store,
// and the import engine.
package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON to w at info level, or a
// human-readable console logger at debug level when debug is set.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	if debug {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Caller().Logger()
	}

	return logger
}

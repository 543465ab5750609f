package config

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger at the given level. Unparseable
// levels fall back to info rather than failing startup.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)
}

// Package log wraps zerolog behind package-level event builders so callers
// never need to carry a logger instance around.
package log

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	Logger = zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	log.Logger = Logger
}

// Info starts an info-level log event.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error starts an error-level log event.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn starts a warn-level log event.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug starts a debug-level log event.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal starts a fatal-level log event and exits after writing it.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

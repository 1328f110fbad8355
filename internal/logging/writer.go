// Package logging configures the zerolog logger used by every jsbundle command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Log formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewWriter returns the writer zerolog output goes through. Console output is
// colourised only when out is a terminal.
func NewWriter(out io.Writer, format string) io.Writer {
	if format == FormatJSON {
		return out
	}

	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    !IsTerminal(out),
	}
}

// IsTerminal reports whether w is a terminal file descriptor
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ParseLogLevel converts a level name to a zerolog level. Unknown names map to info.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds a logger writing to out and installs it as the global logger.
func Setup(out io.Writer, format, level string) (zerolog.Logger, error) {
	if format != FormatConsole && format != FormatJSON {
		return zerolog.Nop(), fmt.Errorf("invalid log format: %s (valid: console, json)", format)
	}

	logger := zerolog.New(NewWriter(out, format)).
		Level(ParseLogLevel(level)).
		With().
		Timestamp().
		Logger()

	log.Logger = logger
	return logger, nil
}

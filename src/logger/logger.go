package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides leveled logging tagged with a component name
type Logger struct {
	name   string
	base   zerolog.Logger
	logger zerolog.Logger
	config interface{}
}

type levelSource interface {
	GetLogLevel() string
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout
func NewLogger(config interface{}, name string) *Logger {
	return NewLoggerTo(os.Stdout, config, name)
}

// -----------------------------------------------------------------------------

// NewLoggerTo creates a Logger writing to w
func NewLoggerTo(w io.Writer, config interface{}, name string) *Logger {
	level := "INFO"
	if ls, ok := config.(levelSource); ok {
		level = ls.GetLogLevel()
	}

	base := zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
	return &Logger{
		name:   name,
		base:   base,
		logger: base.With().Str("component", name).Logger(),
		config: config,
	}
}

// -----------------------------------------------------------------------------

// ParseLevel maps the config level names onto zerolog levels. Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "WARNING":
		return zerolog.WarnLevel
	case "CRITICAL":
		return zerolog.FatalLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same sink and level
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		base:   l.base,
		logger: l.base.With().Str("component", name).Logger(),
		config: l.config,
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}

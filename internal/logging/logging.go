package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	LevelError = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Config controls the verbosity and destination of a Logger.
type Config struct {
	Level  int
	Output io.Writer
}

// Logger is a thin leveled wrapper around zerolog used throughout the
// builder. The printf-style methods mirror how call sites consume it.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	return &Logger{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: out}).
			Level(zerologLevel(config.Level)).
			With().Timestamp().Logger(),
	}
}

// zerologLevel clamps so any verbosity beyond LevelDebug stays at debug.
func zerologLevel(level int) zerolog.Level {
	switch {
	case level >= LevelDebug:
		return zerolog.DebugLevel
	case level == LevelInfo:
		return zerolog.InfoLevel
	case level == LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var zerologLevels = map[Level]zerolog.Level{
	LevelError: zerolog.ErrorLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelDebug: zerolog.DebugLevel,
}

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	base         = newLogger(os.Stdout, LevelInfo)
)

func newLogger(w io.Writer, l Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(out).Level(zerologLevels[l]).With().Timestamp().Logger()
}

// ParseLevel maps "debug", "info", "warn" or "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel sets the global log level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = l
	base = base.Level(zerologLevels[l])
}

// Setup directs all log output to w.
func Setup(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w, currentLevel)
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// Conn returns a logger tagged with one connection's id and peer address.
func Conn(id, remote string) zerolog.Logger {
	return current().With().Str("conn", id).Str("remote", remote).Logger()
}

// Debug logs protocol-level detail.
func Debug(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

// Info logs informative messages if the level allows.
func Info(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

// Warn logs recoverable problems.
func Warn(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

// Error logs error messages.
func Error(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
}

// Fatal logs independent of error level and exits.
func Fatal(format string, v ...interface{}) {
	l := current()
	l.WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}

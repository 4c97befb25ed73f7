package logging

import (
	"log/slog"
	"os"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers  = make(map[string]*slog.Logger)
	globalLevelVar = &slog.LevelVar{}
	mutex          sync.RWMutex
)

// Config represents logging configuration.
type Config struct {
	// Level is one of INFO, WARN or FATAL.
	Level string
}

// Initialize sets up the logging system. Records at or above the configured
// level go to stderr as colorized level-tagged lines, and to the systemd
// journal when one is listening.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalLevelVar.Set(ParseLevel(config.Level))

	// Recreate existing module loggers so they pick up the new handler chain.
	for module := range moduleLoggers {
		moduleLoggers[module] = slog.New(newHandler(globalLevelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandler(globalLevelVar)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	logger := slog.New(newHandler(globalLevelVar)).With("module", module)
	moduleLoggers[module] = logger
	return logger
}

// newHandler builds the handler chain: colorized console on stderr, plus the
// systemd journal when available.
func newHandler(level slog.Leveler) slog.Handler {
	console := NewConsoleHandler(os.Stderr, level)

	if IsJournalAvailable() {
		return NewMultiHandler(console, NewJournalHandler(level))
	}
	return console
}

// ParseLevel converts a level name to a slog.Level. The names follow the CLI
// surface: INFO, WARN and FATAL. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "WARN":
		return slog.LevelWarn
	case "FATAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

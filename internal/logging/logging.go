// Package logging configures the structured and human-readable loggers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	initOnce            sync.Once
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Add trace and fatal level names.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// replaceLevelNames customizes level names beyond slog's built-in set.
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}
	return a
}

// Init initializes the logging system with structured and human-readable
// loggers. Structured logs are JSON; when logPath is non-empty they are
// written to a size-rotated file, otherwise to stdout. Human-readable logs
// always go to stderr as text.
func Init(logPath string, level slog.Level) {
	initOnce.Do(func() {
		var structuredOut io.Writer = os.Stdout
		if logPath != "" {
			structuredOut = &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}

		structuredHandler := slog.NewJSONHandler(structuredOut, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevelNames,
		})
		structuredLogger = slog.New(structuredHandler)

		humanReadableHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevelNames,
		})
		humanReadableLogger = slog.New(humanReadableHandler)

		slog.SetDefault(structuredLogger)
	})
}

// Structured returns the structured (JSON) logger, initializing with
// defaults if Init was never called.
func Structured() *slog.Logger {
	Init("", slog.LevelInfo)
	return structuredLogger
}

// Human returns the human-readable (text) logger.
func Human() *slog.Logger {
	Init("", slog.LevelInfo)
	return humanReadableLogger
}

// ForModule returns a structured logger scoped to the named module.
func ForModule(name string) *slog.Logger {
	return Structured().With("module", name)
}

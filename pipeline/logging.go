package pipeline

import (
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger builds the process logger: text on stderr, plus JSON into a
// size-rotated file when a path is configured.
func SetupLogger(logFile, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	stderr := slog.NewTextHandler(os.Stderr, opts)
	if logFile == "" {
		return slog.New(stderr)
	}

	file := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB
		MaxBackups: 1,
	}, opts)

	return slog.New(slogmulti.Fanout(stderr, file))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

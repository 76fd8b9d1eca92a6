package main

import (
	"log/slog"
	"os"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/logger"
)

// newLogger builds the CLI logger from the logging flags. Pretty output
// falls back to plain text when stderr is not a terminal.
func newLogger() logger.Logger {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.Text(os.Stderr, level)
	default:
		if !isTerminal(os.Stderr.Fd()) {
			return logger.Text(os.Stderr, level)
		}
		return logger.Pretty(os.Stderr, level)
	}
}

// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

const defaultTimeout = 60 * time.Second

// LoadEnv loads .env style files into the environment. Missing files are
// skipped; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

// CommonFlags are the connection, logging and tracing flags shared by every binary.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "DriveLock API key",
			Sources: cli.EnvVars("DRIVELOCK_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "DriveLock API base URL, host or environment name",
			Sources: cli.EnvVars("DRIVELOCK_BASE_URL"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "HTTP timeout per request attempt",
			Value:   defaultTimeout,
			Sources: cli.EnvVars("DRIVELOCK_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces with OTLP/HTTP (configured by OTEL_EXPORTER_OTLP_* variables)",
			Sources: cli.EnvVars("DRIVELOCK_TRACING"),
		},
	}
}

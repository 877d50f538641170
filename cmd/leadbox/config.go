package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"leadbox/internal/config"
	"leadbox/internal/security"
	"leadbox/pkg/fileutil"
)

const configFileName = "leadbox.yaml"

// loadConfig resolves the config file location and loads it. A missing file
// is fine; the built-in defaults apply.
func loadConfig() (*config.Config, string, error) {
	path := configFile
	if path == "" {
		path = fileutil.FindConfigOptional(configFileName)
	}

	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		if path != "" {
			return nil, path, fmt.Errorf("%s: %w", path, err)
		}
		return nil, path, err
	}
	return cfg, path, nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := security.CreateSecureDir(logDir, security.PermDirectory); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := security.OpenAppendFile(logPath, security.PermLogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(handler), file, nil
}

// consoleLogger is used by one-shot commands that have no log file.
func consoleLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

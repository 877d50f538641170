package main

import (
	"fmt"
	"os"
	"strings"

	"leadbox/internal/config"
	"leadbox/internal/server"
	"leadbox/internal/store"
	"leadbox/internal/trigger"

	"github.com/spf13/cobra"
)

var (
	logFile  string
	testMode bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the HTTP server: the static site, SEO files, lead forms and the
deployment webhook.

A push to the deploy branch starts scripts/deploy.sh (relative to the project
path) as a detached process. Its output is appended to logs/deploy.log.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("LEADBOX_LOG_FILE", "./leadbox.log"), "Path to server log file")
	serveCmd.Flags().String("db", "", `Path to SQLite database, "" disables it (default: database.path from config)`)
	serveCmd.Flags().String("host", "", "Host to bind to (default: server.host from config)")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: server.port from config)")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("LEADBOX_TEST_MODE") == "1", "Disable rate limiting")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, logFileHandle, err := setupLogging(logFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting leadbox", "version", version)

	cfg, path, err := loadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "config", path, "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if path == "" {
		logger.Info("No configuration file found, using defaults")
	} else {
		logger.Info("Configuration loaded", "config", path)
	}
	for _, warning := range cfg.Warnings {
		logger.Warn("Configuration warning", "warning", warning)
	}

	if err := applyServeOverrides(cmd, cfg); err != nil {
		logger.Error("Invalid command-line override", "error", err)
		return err
	}

	if cfg.Webhook.Secret == "" {
		logger.Warn("webhook.secret is not set; webhook deliveries are not authenticated")
	}

	var st *store.Store
	if cfg.Database.Path != "" {
		logger.Info("Opening database", "db", cfg.Database.Path)
		st, err = store.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("Failed to open database", "error", err)
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer st.Close()
	} else {
		logger.Warn("Database disabled; lead forms and /status are unavailable")
	}

	trig := trigger.New(cfg.Deploy, trigger.DetachedSpawner{}, logger)

	logger.Info("Deploy target",
		"project_path", cfg.Deploy.ProjectPath,
		"branch", cfg.Deploy.Branch,
		"script", cfg.Deploy.ScriptPath(),
		"log_file", cfg.Deploy.LogFilePath())

	srv := server.NewServer(cfg, st, trig, logger, version, testMode)

	if err := srv.Start(); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// applyServeOverrides copies explicitly set flags onto cfg and validates the
// result again.
func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("db") {
		value, err := flags.GetString("db")
		if err != nil {
			return err
		}
		cfg.Database.Path = value
	}
	if flags.Changed("host") {
		value, err := flags.GetString("host")
		if err != nil {
			return err
		}
		cfg.Server.Host = value
	}
	if flags.Changed("port") {
		value, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Server.Port = value
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

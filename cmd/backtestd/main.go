package main

import (
	"fmt"
	"os"

	"backtestopt/internal/cli"
	"backtestopt/internal/config"
	"backtestopt/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("BACKTESTOPT_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtestopt: loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    true,
		File:       cfg.Logging.File != "",
		FilePath:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

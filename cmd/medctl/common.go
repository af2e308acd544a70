package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/medical-doc-extractor/internal/config"
	"github.com/kirillkom/medical-doc-extractor/internal/observability/logging"
)

// loadConfig logs to stderr so stdout stays free for command output and the
// MCP transport.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(os.Stderr, "medctl", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/sdbus/internal/config"
	"github.com/marmos91/sdbus/internal/logger"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default location init writes to, absent an
// explicit --config flag. Its directory is the last one Load searches,
// after the working directory and /etc/sdbusd.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sdbusd", "sdbusd.yaml"), nil
}

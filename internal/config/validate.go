package config

import (
	"fmt"
	"os"
	"strings"

	dserrors "github.com/davstore/davstore/internal/errors"
)

// validLogLevels are the accepted output.log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	const op = "config.Validate"

	if cfg == nil {
		return dserrors.Config(op, "configuration is nil")
	}

	if strings.TrimSpace(cfg.Storage.FilesystemFolder) == "" {
		return dserrors.Config(op, "storage.filesystem_folder is required")
	}
	if info, err := os.Stat(cfg.Storage.FilesystemFolder); err == nil && !info.IsDir() {
		return dserrors.Config(op, "storage.filesystem_folder is not a directory")
	}

	if !validLogLevels[cfg.Output.LogLevel] {
		return dserrors.Config(op, fmt.Sprintf("invalid output.log_level %q", cfg.Output.LogLevel))
	}

	return nil
}

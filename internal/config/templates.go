package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = "# tuplectl client configuration\n\n"

// Template renders cfg in the config.toml layout read by Load.
func Template(cfg Config) ([]byte, error) {
	body, err := toml.Marshal(fileConfig{
		Address:        cfg.Address,
		ConnectTimeout: cfg.ConnectTimeout.String(),
		IOTimeout:      cfg.IOTimeout.String(),
		LogLevel:       cfg.LogLevel,
		Limits: fileLimits{
			MaxElements:    cfg.Limits.MaxElements,
			MaxStringBytes: cfg.Limits.MaxStringBytes,
			MaxDepth:       cfg.Limits.MaxDepth,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return append([]byte(templateHeader), body...), nil
}

// WriteTemplate writes the default configuration to path.
func WriteTemplate(path string, overwrite bool) error {
	data, err := Template(Default())
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
